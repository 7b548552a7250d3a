package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-pubrouter/pkg/domain"
)

// ErrNotFound is returned when a notification or its content links cannot be located.
var ErrNotFound = errors.New("store: not found")

// NotificationStore persists notifications and the content links selected for them.
// Saves overwrite earlier documents for the same id; nothing is merged.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *domain.Notification) error
	SaveContentLinks(ctx context.Context, notificationID string, links []domain.ContentLink) error
	LoadNotification(ctx context.Context, notificationID string) (*domain.Notification, error)
	LoadContentLinks(ctx context.Context, notificationID string) ([]domain.ContentLink, error)
}
