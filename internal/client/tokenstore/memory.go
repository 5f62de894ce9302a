package tokenstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

// MemoryStore is a process-local Store, used by tests and by the CLI when
// persistence is disabled.
type MemoryStore struct {
	mu      sync.Mutex
	creds   *models.Credentials
	profile *models.UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, creds models.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &creds
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (*models.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return nil, nil
	}
	c := *m.creds
	return &c, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	m.profile = nil
	return nil
}

func (m *MemoryStore) SaveProfile(_ context.Context, p models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = &p
	return nil
}

func (m *MemoryStore) LoadProfile(_ context.Context) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil, nil
	}
	p := *m.profile
	return &p, nil
}

func (m *MemoryStore) ClearProfile(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = nil
	return nil
}
