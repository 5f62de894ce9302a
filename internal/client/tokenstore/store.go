// Package tokenstore persists the session credentials and the cached user
// profile. Values are opaque: nothing here inspects token contents.
package tokenstore

import (
	"context"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

// Keys of the three persisted slots.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserProfile  = "user_profile"
)

// Store is the durable side of a session. Load and LoadProfile return
// (nil, nil) when nothing is stored. Clear removes all three slots at once.
type Store interface {
	Save(ctx context.Context, creds models.Credentials) error
	Load(ctx context.Context) (*models.Credentials, error)
	Clear(ctx context.Context) error
	SaveProfile(ctx context.Context, p models.UserProfile) error
	LoadProfile(ctx context.Context) (*models.UserProfile, error)
	ClearProfile(ctx context.Context) error
}
