package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

type incidentWire struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
	Latitude    *float64      `json:"latitude,omitempty"`
	Longitude   *float64      `json:"longitude,omitempty"`
	Status      string        `json:"status"`
	Urgency     string        `json:"urgency"`
	AssignedTo  userRef       `json:"assigned_to"`
	CreatedBy   userRef       `json:"created_by"`
	CreatedAt   timestamp     `json:"created_at"`
	UpdatedAt   timestamp     `json:"updated_at"`
	Comments    []commentWire `json:"comments,omitempty"`
}

type draftWire struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Urgency     string   `json:"urgency"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

type updateWire struct {
	Status     *string  `json:"status,omitempty"`
	AssignedTo *userRef `json:"assigned_to,omitempty"`
}

type pageWire struct {
	Results json.RawMessage `json:"results"`
}

func (w incidentWire) toModel() (models.Incident, error) {
	status, err := models.ParseStatus(w.Status)
	if err != nil {
		return models.Incident{}, err
	}
	urgency, err := models.ParseUrgency(w.Urgency)
	if err != nil {
		return models.Incident{}, err
	}

	inc := models.Incident{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Location:    w.Location,
		Status:      status,
		Urgency:     urgency,
		AssignedTo:  w.AssignedTo.ID,
		CreatedBy:   w.CreatedBy.id(),
		CreatedAt:   time.Time(w.CreatedAt),
		UpdatedAt:   time.Time(w.UpdatedAt),
	}
	if w.Latitude != nil && w.Longitude != nil {
		inc.Coordinates = &models.Coordinates{Lat: *w.Latitude, Lon: *w.Longitude}
	}
	for _, cw := range w.Comments {
		c := cw.toModel()
		if c.IncidentID == 0 {
			c.IncidentID = w.ID
		}
		inc.Comments = append(inc.Comments, c)
	}
	return inc, nil
}

// DecodeIncident decodes a single incident object.
func DecodeIncident(data []byte) (models.Incident, error) {
	var w incidentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Incident{}, decodingError("incident", err)
	}
	inc, err := w.toModel()
	if err != nil {
		return models.Incident{}, decodingError("incident", err)
	}
	return inc, nil
}

// DecodeIncidents decodes a JSON array of incidents, or a paginated object
// whose "results" member holds that array.
func DecodeIncidents(data []byte) ([]models.Incident, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '{' {
		var page pageWire
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, decodingError("incident list", err)
		}
		if page.Results == nil {
			return nil, decodingError("incident list", errors.New("object without results"))
		}
		raw = page.Results
	}

	var ws []incidentWire
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, decodingError("incident list", err)
	}
	out := make([]models.Incident, 0, len(ws))
	for _, w := range ws {
		inc, err := w.toModel()
		if err != nil {
			return nil, decodingError("incident list", err)
		}
		out = append(out, inc)
	}
	return out, nil
}

func (c *Codec) incidentWire(inc models.Incident) incidentWire {
	w := incidentWire{
		ID:          inc.ID,
		Title:       inc.Title,
		Description: inc.Description,
		Location:    inc.Location,
		Status:      c.EncodeStatus(inc.Status),
		Urgency:     c.EncodeUrgency(inc.Urgency),
		AssignedTo:  refOf(inc.AssignedTo),
		CreatedBy:   refOf(&inc.CreatedBy),
		CreatedAt:   timestamp(inc.CreatedAt),
		UpdatedAt:   timestamp(inc.UpdatedAt),
	}
	if inc.Coordinates != nil {
		lat, lon := inc.Coordinates.Lat, inc.Coordinates.Lon
		w.Latitude, w.Longitude = &lat, &lon
	}
	for _, cm := range inc.Comments {
		w.Comments = append(w.Comments, c.commentWire(cm))
	}
	return w
}

// EncodeIncident renders inc the way the API returns it.
func (c *Codec) EncodeIncident(inc models.Incident) ([]byte, error) {
	return json.Marshal(c.incidentWire(inc))
}

func (c *Codec) EncodeIncidents(incs []models.Incident) ([]byte, error) {
	ws := make([]incidentWire, 0, len(incs))
	for _, inc := range incs {
		ws = append(ws, c.incidentWire(inc))
	}
	return json.Marshal(ws)
}

// EncodeIncidentDraft renders the body of an incident-create request.
func (c *Codec) EncodeIncidentDraft(d models.IncidentDraft) ([]byte, error) {
	w := draftWire{
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location,
		Urgency:     c.EncodeUrgency(d.Urgency),
	}
	if d.Coordinates != nil {
		lat, lon := d.Coordinates.Lat, d.Coordinates.Lon
		w.Latitude, w.Longitude = &lat, &lon
	}
	return json.Marshal(w)
}

// DecodeIncidentDraft parses an incident-create body. The urgency is
// normalized but not validated; see models.IncidentDraft.Validate.
func DecodeIncidentDraft(data []byte) (models.IncidentDraft, error) {
	var w draftWire
	if err := json.Unmarshal(data, &w); err != nil {
		return models.IncidentDraft{}, decodingError("incident draft", err)
	}
	d := models.IncidentDraft{
		Title:       w.Title,
		Description: w.Description,
		Location:    w.Location,
		Urgency:     models.Urgency(w.Urgency),
	}
	if u, err := models.ParseUrgency(w.Urgency); err == nil {
		d.Urgency = u
	}
	if w.Latitude != nil && w.Longitude != nil {
		d.Coordinates = &models.Coordinates{Lat: *w.Latitude, Lon: *w.Longitude}
	}
	return d, nil
}

// EncodeIncidentUpdate renders a PATCH body holding only the set fields.
func (c *Codec) EncodeIncidentUpdate(u models.IncidentUpdate) ([]byte, error) {
	var w updateWire
	if u.Status != nil {
		s := c.EncodeStatus(*u.Status)
		w.Status = &s
	}
	if u.AssignedTo != nil {
		ref := refOf(u.AssignedTo)
		w.AssignedTo = &ref
	}
	return json.Marshal(w)
}

// DecodeIncidentUpdate parses a PATCH body. An unknown status token is a
// decoding error.
func DecodeIncidentUpdate(data []byte) (models.IncidentUpdate, error) {
	var w updateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return models.IncidentUpdate{}, decodingError("incident update", err)
	}
	var u models.IncidentUpdate
	if w.Status != nil {
		s, err := models.ParseStatus(*w.Status)
		if err != nil {
			return models.IncidentUpdate{}, decodingError("incident update", err)
		}
		u.Status = &s
	}
	if w.AssignedTo != nil {
		u.AssignedTo = w.AssignedTo.ID
	}
	return u, nil
}
