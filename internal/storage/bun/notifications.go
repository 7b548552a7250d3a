package bunrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
	"github.com/uptrace/bun"
)

// NotificationStore persists notifications and content links in SQL tables.
type NotificationStore struct {
	notifications keyedRepository[domain.NotificationRecord]
	contentLinks  keyedRepository[domain.ContentLinkSet]
	logger        logger.Logger
}

var _ store.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore(db *bun.DB, lgr logger.Logger) *NotificationStore {
	if lgr == nil {
		lgr = &logger.Nop{}
	}
	return &NotificationStore{
		notifications: newKeyedRepository(db,
			func() *domain.NotificationRecord { return &domain.NotificationRecord{} },
			func(r *domain.NotificationRecord) *domain.RecordMeta { return &r.RecordMeta },
			func(r *domain.NotificationRecord) string { return r.NotificationID },
		),
		contentLinks: newKeyedRepository(db,
			func() *domain.ContentLinkSet { return &domain.ContentLinkSet{} },
			func(r *domain.ContentLinkSet) *domain.RecordMeta { return &r.RecordMeta },
			func(r *domain.ContentLinkSet) string { return r.NotificationID },
		),
		logger: lgr,
	}
}

func (s *NotificationStore) SaveNotification(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errors.New("bunrepo: notification is required")
	}
	if n.ID == "" {
		return domain.ErrMissingID
	}
	s.logger.Debug("saving notification", logger.F("notification_id", n.ID))
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("bunrepo: encode notification: %w", err)
	}
	return s.notifications.upsert(ctx, &domain.NotificationRecord{
		NotificationID: n.ID,
		Payload:        domain.RawJSON(payload),
	})
}

func (s *NotificationStore) SaveContentLinks(ctx context.Context, notificationID string, links []domain.ContentLink) error {
	if notificationID == "" {
		return domain.ErrMissingID
	}
	s.logger.Debug("saving content links", logger.F("notification_id", notificationID), logger.F("count", len(links)))
	if links == nil {
		links = []domain.ContentLink{}
	}
	payload, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("bunrepo: encode content links: %w", err)
	}
	return s.contentLinks.upsert(ctx, &domain.ContentLinkSet{
		NotificationID: notificationID,
		Count:          len(links),
		Links:          domain.RawJSON(payload),
	})
}

func (s *NotificationStore) LoadNotification(ctx context.Context, notificationID string) (*domain.Notification, error) {
	record, err := s.notifications.get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	n := &domain.Notification{}
	if err := json.Unmarshal(record.Payload, n); err != nil {
		return nil, fmt.Errorf("bunrepo: decode notification: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) LoadContentLinks(ctx context.Context, notificationID string) ([]domain.ContentLink, error) {
	record, err := s.contentLinks.get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	var links []domain.ContentLink
	if err := json.Unmarshal(record.Links, &links); err != nil {
		return nil, fmt.Errorf("bunrepo: decode content links: %w", err)
	}
	return links, nil
}
