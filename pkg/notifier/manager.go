package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
)

type router interface {
	Dispatch(ctx context.Context, n *domain.Notification) error
	ContentLinks(n *domain.Notification) []domain.ContentLink
}

// Manager accepts notifications from the router feed and routes them.
type Manager struct {
	router router
	store  store.NotificationStore
	logger logger.Logger
}

// Dependencies bundles the collaborators required by the manager.
type Dependencies struct {
	Router router
	// Store is optional; without it Lookup returns store.ErrNotFound.
	Store  store.NotificationStore
	Logger logger.Logger
}

var ErrMissingRouter = errors.New("notifier: router is required")

// New constructs the notifier manager.
func New(deps Dependencies) (*Manager, error) {
	if deps.Router == nil {
		return nil, ErrMissingRouter
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Manager{
		router: deps.Router,
		store:  deps.Store,
		logger: deps.Logger,
	}, nil
}

// Handle parses one raw feed payload and routes it.
func (m *Manager) Handle(ctx context.Context, body []byte) (*domain.Notification, error) {
	n, err := domain.ParseNotification(body)
	if err != nil {
		return nil, fmt.Errorf("notifier: parse notification: %w", err)
	}
	if err := m.Send(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// Send routes an already decoded notification.
func (m *Manager) Send(ctx context.Context, n *domain.Notification) error {
	if n == nil || n.ID == "" {
		return domain.ErrMissingID
	}
	if err := m.router.Dispatch(ctx, n); err != nil {
		m.logger.Error("notification routing failed", logger.F("notification_id", n.ID), logger.F("error", err.Error()))
		return err
	}
	return nil
}

// ContentLinks previews the content links that routing n would select.
func (m *Manager) ContentLinks(n *domain.Notification) []domain.ContentLink {
	if n == nil {
		return nil
	}
	return m.router.ContentLinks(n)
}

// Lookup reads back a stored notification and its content links.
func (m *Manager) Lookup(ctx context.Context, id string) (*domain.Notification, []domain.ContentLink, error) {
	if m.store == nil {
		return nil, nil, store.ErrNotFound
	}
	n, err := m.store.LoadNotification(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	links, err := m.store.LoadContentLinks(ctx, id)
	if err != nil {
		return n, nil, err
	}
	return n, links, nil
}
