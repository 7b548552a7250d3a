package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/queue"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
	"github.com/goliatone/go-pubrouter/pkg/jobs"
	"github.com/goliatone/go-pubrouter/pkg/links"
)

// Dependencies groups the collaborators required by the router.
type Dependencies struct {
	Store  store.NotificationStore
	Queue  queue.Queue
	Logger logger.Logger
	Config config.Config
}

// Service routes notifications to storage or to the job queue.
type Service struct {
	store    store.NotificationStore
	queue    queue.Queue
	logger   logger.Logger
	cfg      config.Config
	handlers map[config.Adapter]handlerFunc
}

type handlerFunc func(ctx context.Context, n *domain.Notification) error

var (
	ErrUnknownAdapter      = errors.New("router: unknown adapter")
	ErrMissingStore        = errors.New("router: notification store is required")
	ErrMissingQueue        = errors.New("router: queue is required")
	ErrMissingNotification = errors.New("router: notification is required")
)

// New builds the router service. The configured adapter must be one of
// config.Adapters and its collaborator must be present.
func New(deps Dependencies) (*Service, error) {
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	adapter, err := config.ParseAdapter(string(deps.Config.Router.Adapter))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAdapter, err)
	}
	deps.Config.Router.Adapter = adapter

	switch adapter {
	case config.AdapterFile:
		if deps.Store == nil {
			return nil, ErrMissingStore
		}
	case config.AdapterQueue:
		if deps.Queue == nil {
			return nil, ErrMissingQueue
		}
	}

	s := &Service{
		store:  deps.Store,
		queue:  deps.Queue,
		logger: deps.Logger,
		cfg:    deps.Config,
	}
	s.handlers = map[config.Adapter]handlerFunc{
		config.AdapterFile: func(ctx context.Context, n *domain.Notification) error {
			_, err := s.Store(ctx, n)
			return err
		},
		config.AdapterQueue: s.DispatchNotification,
	}
	return s, nil
}

// Adapter returns the configured adapter.
func (s *Service) Adapter() config.Adapter { return s.cfg.Router.Adapter }

// Dispatch routes n through the configured adapter.
func (s *Service) Dispatch(ctx context.Context, n *domain.Notification) error {
	return s.Route(ctx, n, s.cfg.Router.Adapter)
}

// Route routes n through adapter.
func (s *Service) Route(ctx context.Context, n *domain.Notification, adapter config.Adapter) error {
	if n == nil {
		return ErrMissingNotification
	}
	handler, ok := s.handlers[adapter]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAdapter, adapter)
	}
	return handler(ctx, n)
}

// Store saves the notification, selects its content links and saves them.
// The selected links are returned.
func (s *Service) Store(ctx context.Context, n *domain.Notification) ([]domain.ContentLink, error) {
	if n == nil {
		return nil, ErrMissingNotification
	}
	if s.store == nil {
		return nil, ErrMissingStore
	}
	if err := s.store.SaveNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("router: save notification %s: %w", n.ID, err)
	}
	selected := links.Select(n, s.cfg.Retrieval, s.logger)
	if err := s.store.SaveContentLinks(ctx, n.ID, selected); err != nil {
		return nil, fmt.Errorf("router: save content links %s: %w", n.ID, err)
	}
	return selected, nil
}

// ContentLinks returns the annotated links of n that need retrieval.
func (s *Service) ContentLinks(n *domain.Notification) []domain.ContentLink {
	return links.Select(n, s.cfg.Retrieval, s.logger)
}

// DispatchNotification enqueues one job carrying the whole notification.
func (s *Service) DispatchNotification(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return ErrMissingNotification
	}
	if s.queue == nil {
		return ErrMissingQueue
	}
	s.logger.Debug("queueing notification", logger.F("notification_id", n.ID))
	job, err := jobs.NewNotificationJob(n)
	if err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("router: enqueue %s: %w", job.Key, err)
	}
	return nil
}

// DispatchContentLinks enqueues one job per selected content link and
// returns how many were queued.
func (s *Service) DispatchContentLinks(ctx context.Context, n *domain.Notification) (int, error) {
	if n == nil {
		return 0, ErrMissingNotification
	}
	if s.queue == nil {
		return 0, ErrMissingQueue
	}
	return s.enqueueContentLinks(ctx, n.ID, links.Select(n, s.cfg.Retrieval, s.logger))
}

// Process persists a dequeued notification and fans out its content links.
// Content link delivery is at-least-once: when an enqueue fails partway, a
// retried Process saves the notification again and re-queues the earlier
// links under the same ContentLinkKey, so consumers dedupe by job key.
func (s *Service) Process(ctx context.Context, n *domain.Notification) (int, error) {
	selected, err := s.Store(ctx, n)
	if err != nil {
		return 0, err
	}
	if s.queue == nil {
		return 0, ErrMissingQueue
	}
	return s.enqueueContentLinks(ctx, n.ID, selected)
}

func (s *Service) enqueueContentLinks(ctx context.Context, id string, selected []domain.ContentLink) (int, error) {
	s.logger.Debug("queueing content links", logger.F("notification_id", id), logger.F("count", len(selected)))
	for i, link := range selected {
		job := jobs.NewContentLinkJob(id, i, link)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return i, fmt.Errorf("router: enqueue %s: %w", job.Key, err)
		}
	}
	return len(selected), nil
}
