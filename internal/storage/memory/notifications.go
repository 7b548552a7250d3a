package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
)

// NotificationStore keeps encoded documents in maps. Documents are stored as
// JSON so callers never share state with the store.
type NotificationStore struct {
	mu            sync.RWMutex
	notifications map[string][]byte
	contentLinks  map[string][]byte
}

var _ store.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		notifications: make(map[string][]byte),
		contentLinks:  make(map[string][]byte),
	}
}

func (s *NotificationStore) SaveNotification(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errors.New("memory: notification is required")
	}
	if n.ID == "" {
		return domain.ErrMissingID
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = data
	return nil
}

func (s *NotificationStore) SaveContentLinks(ctx context.Context, notificationID string, links []domain.ContentLink) error {
	if notificationID == "" {
		return domain.ErrMissingID
	}
	if links == nil {
		links = []domain.ContentLink{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentLinks[notificationID] = data
	return nil
}

func (s *NotificationStore) LoadNotification(ctx context.Context, notificationID string) (*domain.Notification, error) {
	s.mu.RLock()
	data, ok := s.notifications[notificationID]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	n := &domain.Notification{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationStore) LoadContentLinks(ctx context.Context, notificationID string) ([]domain.ContentLink, error) {
	s.mu.RLock()
	data, ok := s.contentLinks[notificationID]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	var links []domain.ContentLink
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// IDs returns the ids of every stored notification.
func (s *NotificationStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.notifications))
	for id := range s.notifications {
		ids = append(ids, id)
	}
	return ids
}
