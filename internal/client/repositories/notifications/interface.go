package notifications

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

var ErrNotFound = errors.New("notification not found")

// Repository stores the in-app notification inbox.
type Repository interface {
	// Add inserts n, assigning an id when n.ID is empty, and returns the
	// stored record.
	Add(ctx context.Context, n models.Notification) (models.Notification, error)

	// List returns every notification, newest first.
	List(ctx context.Context) ([]models.Notification, error)

	// MarkRead flags one notification as read. ErrNotFound if absent.
	MarkRead(ctx context.Context, id string) error

	// Delete removes one notification. ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	Clear(ctx context.Context) error

	UnreadCount(ctx context.Context) (int, error)
}
