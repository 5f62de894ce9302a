package mockapi

import (
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password"

var ErrNotFound = errors.New("not found")

type account struct {
	profile models.UserProfile
	hash    []byte
}

// Store is the in-memory data set behind the mock backend.
type Store struct {
	mu sync.RWMutex

	accounts  map[int64]*account
	byName    map[string]int64
	incidents map[int64]*models.Incident
	comments  map[int64][]models.Comment

	nextIncident int64
	nextComment  int64
	now          func() time.Time
}

// NewStore returns a Store seeded with four users and four incidents.
func NewStore() (*Store, error) {
	return newStore(bcrypt.DefaultCost, time.Now)
}

func newStore(cost int, now func() time.Time) (*Store, error) {
	s := &Store{
		accounts:  map[int64]*account{},
		byName:    map[string]int64{},
		incidents: map[int64]*models.Incident{},
		comments:  map[int64][]models.Comment{},
		now:       now,
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), cost)
	if err != nil {
		return nil, err
	}

	for _, p := range []models.UserProfile{
		{ID: 1, Username: "jperez", Email: "jperez@example.com", FirstName: "Juan", LastName: "Pérez", Role: models.RoleAdmin},
		{ID: 2, Username: "mgarcia", Email: "mgarcia@example.com", FirstName: "María", LastName: "García", Role: models.RoleManager},
		{ID: 3, Username: "alopez", Email: "alopez@example.com", FirstName: "Ana", LastName: "López", Role: models.RoleWorker},
		{ID: 4, Username: "srodriguez", Email: "srodriguez@example.com", FirstName: "Sergio", LastName: "Rodríguez", Role: models.RoleWorker},
	} {
		s.accounts[p.ID] = &account{profile: p, hash: hash}
		s.byName[p.Username] = p.ID
	}

	t := now().UTC().Truncate(time.Millisecond)
	three, four := int64(3), int64(4)
	seed := []models.Incident{
		{
			Title: "Water leak in restroom", Description: "Water is pooling under the sink.",
			Location: "Building A, floor 2", Coordinates: &models.Coordinates{Lat: 40.4168, Lon: -3.7038},
			Status: models.StatusPending, Urgency: models.UrgencyHigh, CreatedBy: 3,
			CreatedAt: t.Add(-2 * time.Hour), UpdatedAt: t.Add(-2 * time.Hour),
		},
		{
			Title: "Hallway light out", Description: "Two ceiling lights are off.",
			Location: "Building B, ground floor", Status: models.StatusInProgress, Urgency: models.UrgencyLow,
			AssignedTo: &three, CreatedBy: 4,
			CreatedAt: t.Add(-26 * time.Hour), UpdatedAt: t.Add(-3 * time.Hour),
		},
		{
			Title: "Emergency exit blocked", Description: "Pallets stacked in front of the exit door.",
			Location: "Warehouse", Status: models.StatusResolved, Urgency: models.UrgencyCritical,
			AssignedTo: &four, CreatedBy: 2,
			CreatedAt: t.Add(-72 * time.Hour), UpdatedAt: t.Add(-24 * time.Hour),
		},
		{
			Title: "Noisy air conditioning", Description: "Rattling sound in meeting room 3.",
			Location: "Building A, floor 1", Status: models.StatusCancelled, Urgency: models.UrgencyMedium,
			CreatedBy: 3, CreatedAt: t.Add(-240 * time.Hour), UpdatedAt: t.Add(-200 * time.Hour),
		},
	}
	for i := range seed {
		s.nextIncident++
		inc := seed[i]
		inc.ID = s.nextIncident
		s.incidents[inc.ID] = &inc
	}

	s.nextComment++
	s.comments[2] = []models.Comment{{
		ID: s.nextComment, IncidentID: 2, AuthorID: 3, AuthorName: "alopez",
		Text: "On my way with replacement bulbs.", CreatedAt: t.Add(-3 * time.Hour),
	}}

	return s, nil
}

// Authenticate checks username and password against the seeded accounts.
func (s *Store) Authenticate(username, password string) (models.UserProfile, bool) {
	s.mu.RLock()
	id, ok := s.byName[username]
	var acc *account
	if ok {
		acc = s.accounts[id]
	}
	s.mu.RUnlock()

	if !ok {
		return models.UserProfile{}, false
	}
	if bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return models.UserProfile{}, false
	}
	return acc.profile, true
}

func (s *Store) User(id int64) (models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return models.UserProfile{}, false
	}
	return acc.profile, true
}

func copyIncident(inc *models.Incident) models.Incident {
	out := *inc
	if inc.AssignedTo != nil {
		id := *inc.AssignedTo
		out.AssignedTo = &id
	}
	if inc.Coordinates != nil {
		c := *inc.Coordinates
		out.Coordinates = &c
	}
	return out
}

// Incidents returns incidents matching keep, newest first. A nil keep
// matches everything.
func (s *Store) Incidents(keep func(models.Incident) bool) []models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		c := copyIncident(inc)
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Incident(id int64) (models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[id]
	if !ok {
		return models.Incident{}, ErrNotFound
	}
	return copyIncident(inc), nil
}

// CreateIncident stores a validated draft as a pending, unassigned incident.
func (s *Store) CreateIncident(d models.IncidentDraft, createdBy int64) models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Truncate(time.Millisecond)
	s.nextIncident++
	inc := &models.Incident{
		ID:          s.nextIncident,
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location,
		Coordinates: d.Coordinates,
		Status:      models.StatusPending,
		Urgency:     d.Urgency,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.incidents[inc.ID] = inc
	return copyIncident(inc)
}

// UpdateIncident applies the non-nil fields of upd and bumps UpdatedAt.
func (s *Store) UpdateIncident(id int64, upd models.IncidentUpdate) (models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.incidents[id]
	if !ok {
		return models.Incident{}, ErrNotFound
	}
	if upd.Status != nil {
		inc.Status = *upd.Status
	}
	if upd.AssignedTo != nil {
		assignee := *upd.AssignedTo
		inc.AssignedTo = &assignee
	}
	inc.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	return copyIncident(inc), nil
}

func (s *Store) Comments(incidentID int64) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.incidents[incidentID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]models.Comment, len(s.comments[incidentID]))
	copy(out, s.comments[incidentID])
	return out, nil
}

func (s *Store) AddComment(incidentID int64, author models.UserProfile, text string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.incidents[incidentID]; !ok {
		return models.Comment{}, ErrNotFound
	}
	s.nextComment++
	c := models.Comment{
		ID:         s.nextComment,
		IncidentID: incidentID,
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Text:       text,
		CreatedAt:  s.now().UTC().Truncate(time.Millisecond),
	}
	s.comments[incidentID] = append(s.comments[incidentID], c)
	return c, nil
}
