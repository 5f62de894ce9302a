package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/client"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/repositories/notifications"
)

// InboxService keeps the in-app notification feed. Repository failures are
// returned as client.StorageError values wrapping the repository error.
type InboxService interface {
	StatusChanged(ctx context.Context, inc models.Incident, from models.Status) error
	Assigned(ctx context.Context, inc models.Incident) error
	Commented(ctx context.Context, c models.Comment, incidentTitle string) error

	List(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	UnreadCount(ctx context.Context) (int, error)
}

type inboxService struct {
	repo notifications.Repository
	now  func() time.Time
}

func NewInboxService(repo notifications.Repository) InboxService {
	return &inboxService{repo: repo, now: time.Now}
}

func (s *inboxService) add(ctx context.Context, incidentID int64, title, body string) error {
	id := incidentID
	_, err := s.repo.Add(ctx, models.Notification{
		Title:      title,
		Body:       body,
		IncidentID: &id,
		CreatedAt:  s.now(),
	})
	return storageErr(err)
}

func (s *inboxService) StatusChanged(ctx context.Context, inc models.Incident, from models.Status) error {
	title := fmt.Sprintf("Incident %d updated", inc.ID)
	var body string
	if from == "" {
		body = fmt.Sprintf("Incident '%s' is now '%s'", inc.Title, inc.Status.Label())
	} else {
		body = fmt.Sprintf("Incident '%s' changed from '%s' to '%s'", inc.Title, from.Label(), inc.Status.Label())
	}
	return s.add(ctx, inc.ID, title, body)
}

func (s *inboxService) Assigned(ctx context.Context, inc models.Incident) error {
	who := "nobody"
	if inc.AssignedTo != nil {
		who = fmt.Sprintf("user %d", *inc.AssignedTo)
	}
	body := fmt.Sprintf("Incident '%s' with %s urgency was assigned to %s", inc.Title, inc.Urgency, who)
	return s.add(ctx, inc.ID, "Incident assigned", body)
}

func (s *inboxService) Commented(ctx context.Context, c models.Comment, incidentTitle string) error {
	author := c.AuthorName
	if author == "" {
		author = fmt.Sprintf("user %d", c.AuthorID)
	}
	target := fmt.Sprintf("incident %d", c.IncidentID)
	if incidentTitle != "" {
		target = fmt.Sprintf("incident '%s'", incidentTitle)
	}
	return s.add(ctx, c.IncidentID, "New comment on incident", fmt.Sprintf("%s commented on %s", author, target))
}

func (s *inboxService) List(ctx context.Context) ([]models.Notification, error) {
	ns, err := s.repo.List(ctx)
	if err != nil {
		return nil, client.StorageError(err)
	}
	return ns, nil
}

func (s *inboxService) MarkRead(ctx context.Context, id string) error {
	return storageErr(s.repo.MarkRead(ctx, id))
}

func (s *inboxService) Delete(ctx context.Context, id string) error {
	return storageErr(s.repo.Delete(ctx, id))
}

func (s *inboxService) Clear(ctx context.Context) error {
	return storageErr(s.repo.Clear(ctx))
}

func (s *inboxService) UnreadCount(ctx context.Context) (int, error) {
	n, err := s.repo.UnreadCount(ctx)
	if err != nil {
		return 0, client.StorageError(err)
	}
	return n, nil
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return client.StorageError(err)
}
