// Package services contains application services for the incident client.
// They sit on top of the authenticated pipeline and are what the CLI calls.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/pipeline"
	"github.com/dmitrijs2005/incidentdesk/internal/common"
	"github.com/dmitrijs2005/incidentdesk/internal/logging"
)

// IncidentFilter narrows List results. A nil Status keeps every incident.
type IncidentFilter struct {
	Status *models.Status
}

// IncidentService defines incident and comment operations.
//
// Mutations are validated locally first; invalid input is reported as a
// client.ValidationError without any request being made. Successful status
// changes, assignments and comments are recorded in the inbox.
type IncidentService interface {
	List(ctx context.Context, filter IncidentFilter) ([]models.Incident, error)
	ListAssigned(ctx context.Context) ([]models.Incident, error)
	Get(ctx context.Context, id int64) (models.Incident, error)
	Create(ctx context.Context, draft models.IncidentDraft) (models.Incident, error)
	UpdateStatus(ctx context.Context, id int64, status models.Status) (models.Incident, error)
	Assign(ctx context.Context, id, userID int64) (models.Incident, error)
	Comments(ctx context.Context, id int64) ([]models.Comment, error)
	AddComment(ctx context.Context, id int64, text string) (models.Comment, error)
}

type incidentService struct {
	pipe  *pipeline.Pipeline
	codec *codec.Codec
	inbox InboxService
	log   logging.Logger

	// seen remembers the last known state of each incident so that inbox
	// messages can name the previous status.
	mu   sync.Mutex
	seen map[int64]models.Incident
}

// NewIncidentService wires the service. inbox may be nil.
func NewIncidentService(pipe *pipeline.Pipeline, c *codec.Codec, inbox InboxService, log logging.Logger) IncidentService {
	return &incidentService{pipe: pipe, codec: c, inbox: inbox, log: log, seen: make(map[int64]models.Incident)}
}

func incidentPath(id int64) string {
	return fmt.Sprintf("%s%d/", common.PathIncidents, id)
}

func commentsPath(id int64) string {
	return incidentPath(id) + "comments/"
}

func (s *incidentService) remember(incs ...models.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inc := range incs {
		s.seen[inc.ID] = inc
	}
}

func (s *incidentService) lookup(id int64) (models.Incident, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.seen[id]
	return inc, ok
}

func checkID(id int64) error {
	if id <= 0 {
		return client.InvalidRequestError(fmt.Errorf("invalid incident id %d", id))
	}
	return nil
}

func (s *incidentService) List(ctx context.Context, filter IncidentFilter) ([]models.Incident, error) {
	incs, err := pipeline.Execute(ctx, s.pipe, pipeline.Get(common.PathIncidents), codec.DecodeIncidents)
	if err != nil {
		return nil, err
	}
	s.remember(incs...)

	if filter.Status != nil {
		incs = FilterByStatus(incs, *filter.Status)
	}
	return incs, nil
}

func (s *incidentService) ListAssigned(ctx context.Context) ([]models.Incident, error) {
	incs, err := pipeline.Execute(ctx, s.pipe, pipeline.Get(common.PathAssigned), codec.DecodeIncidents)
	if err != nil {
		return nil, err
	}
	s.remember(incs...)
	return incs, nil
}

func (s *incidentService) Get(ctx context.Context, id int64) (models.Incident, error) {
	if err := checkID(id); err != nil {
		return models.Incident{}, err
	}
	inc, err := pipeline.Execute(ctx, s.pipe, pipeline.Get(incidentPath(id)), codec.DecodeIncident)
	if err != nil {
		return models.Incident{}, err
	}
	s.remember(inc)
	return inc, nil
}

func (s *incidentService) Create(ctx context.Context, draft models.IncidentDraft) (models.Incident, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)
	draft.Location = strings.TrimSpace(draft.Location)
	if fields := draft.Validate(); len(fields) > 0 {
		return models.Incident{}, client.ValidationError(0, fields)
	}

	body, err := s.codec.EncodeIncidentDraft(draft)
	if err != nil {
		return models.Incident{}, client.InvalidRequestError(err)
	}
	inc, err := pipeline.Execute(ctx, s.pipe, pipeline.Post(common.PathIncidents, body), codec.DecodeIncident)
	if err != nil {
		return models.Incident{}, err
	}
	s.remember(inc)
	s.log.Info(ctx, "incident created", "id", inc.ID, "urgency", inc.Urgency)
	return inc, nil
}

func (s *incidentService) UpdateStatus(ctx context.Context, id int64, status models.Status) (models.Incident, error) {
	if err := checkID(id); err != nil {
		return models.Incident{}, err
	}
	if !status.Valid() {
		return models.Incident{}, client.ValidationError(0, map[string][]string{
			"status": {fmt.Sprintf("%q is not a valid choice.", status)},
		})
	}

	inc, err := s.patch(ctx, id, models.IncidentUpdate{Status: &status})
	if err != nil {
		return models.Incident{}, err
	}

	from := models.Status("")
	if prev, ok := s.lookup(id); ok {
		from = prev.Status
	}
	s.remember(inc)
	if s.inbox != nil && from != inc.Status {
		if err := s.inbox.StatusChanged(ctx, inc, from); err != nil {
			s.log.Warn(ctx, "inbox write failed", "id", id, "error", err)
		}
	}
	return inc, nil
}

func (s *incidentService) Assign(ctx context.Context, id, userID int64) (models.Incident, error) {
	if err := checkID(id); err != nil {
		return models.Incident{}, err
	}
	if userID <= 0 {
		return models.Incident{}, client.ValidationError(0, map[string][]string{
			"assigned_to": {"Invalid pk - object does not exist."},
		})
	}

	inc, err := s.patch(ctx, id, models.IncidentUpdate{AssignedTo: &userID})
	if err != nil {
		return models.Incident{}, err
	}
	s.remember(inc)
	if s.inbox != nil {
		if err := s.inbox.Assigned(ctx, inc); err != nil {
			s.log.Warn(ctx, "inbox write failed", "id", id, "error", err)
		}
	}
	return inc, nil
}

func (s *incidentService) patch(ctx context.Context, id int64, upd models.IncidentUpdate) (models.Incident, error) {
	body, err := s.codec.EncodeIncidentUpdate(upd)
	if err != nil {
		return models.Incident{}, client.InvalidRequestError(err)
	}
	return pipeline.Execute(ctx, s.pipe, pipeline.Patch(incidentPath(id), body), codec.DecodeIncident)
}

func (s *incidentService) Comments(ctx context.Context, id int64) ([]models.Comment, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	cs, err := pipeline.Execute(ctx, s.pipe, pipeline.Get(commentsPath(id)), codec.DecodeComments)
	if err != nil {
		return nil, err
	}
	for i := range cs {
		if cs[i].IncidentID == 0 {
			cs[i].IncidentID = id
		}
	}
	return cs, nil
}

func (s *incidentService) AddComment(ctx context.Context, id int64, text string) (models.Comment, error) {
	if err := checkID(id); err != nil {
		return models.Comment{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, client.ValidationError(0, map[string][]string{
			"text": {"This field may not be blank."},
		})
	}

	body, err := s.codec.EncodeCommentText(text)
	if err != nil {
		return models.Comment{}, client.InvalidRequestError(err)
	}
	c, err := pipeline.Execute(ctx, s.pipe, pipeline.Post(commentsPath(id), body), codec.DecodeComment)
	if err != nil {
		return models.Comment{}, err
	}
	if c.IncidentID == 0 {
		c.IncidentID = id
	}

	if s.inbox != nil {
		title := ""
		if inc, ok := s.lookup(id); ok {
			title = inc.Title
		}
		if err := s.inbox.Commented(ctx, c, title); err != nil {
			s.log.Warn(ctx, "inbox write failed", "id", id, "error", err)
		}
	}
	return c, nil
}
