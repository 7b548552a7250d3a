package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
)

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	RouteNotification   command.Commander[RouteNotification]
	StoreNotification   command.Commander[StoreNotification]
	EnqueueNotification command.Commander[EnqueueNotification]
	EnqueueContentLinks command.Commander[EnqueueContentLinks]
}

type routerService interface {
	Route(ctx context.Context, n *domain.Notification, adapter config.Adapter) error
	Dispatch(ctx context.Context, n *domain.Notification) error
	Store(ctx context.Context, n *domain.Notification) ([]domain.ContentLink, error)
	DispatchNotification(ctx context.Context, n *domain.Notification) error
	DispatchContentLinks(ctx context.Context, n *domain.Notification) (int, error)
}

// Dependencies wires the router into the command catalog.
type Dependencies struct {
	Router routerService
	Logger logger.Logger
}

var ErrMissingNotification = errors.New("commands: notification or payload is required")

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Router == nil {
		return nil, errors.New("commands: router is required")
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	return &Catalog{
		RouteNotification:   routeCommand{router: deps.Router},
		StoreNotification:   storeCommand{router: deps.Router, logger: deps.Logger},
		EnqueueNotification: enqueueNotificationCommand{router: deps.Router},
		EnqueueContentLinks: enqueueContentLinksCommand{router: deps.Router, logger: deps.Logger},
	}, nil
}

// Target carries a notification either decoded or as the raw feed payload.
type Target struct {
	Notification *domain.Notification `json:"-"`
	Payload      json.RawMessage      `json:"payload"`
}

func (t Target) resolve() (*domain.Notification, error) {
	if t.Notification != nil {
		return t.Notification, nil
	}
	if len(t.Payload) == 0 {
		return nil, ErrMissingNotification
	}
	return domain.ParseNotification(t.Payload)
}

// RouteNotification routes through Adapter, or the configured adapter when empty.
type RouteNotification struct {
	Target
	Adapter string `json:"adapter"`
}

type routeCommand struct {
	router routerService
}

func (c routeCommand) Execute(ctx context.Context, msg RouteNotification) error {
	n, err := msg.resolve()
	if err != nil {
		return err
	}
	if msg.Adapter == "" {
		return c.router.Dispatch(ctx, n)
	}
	adapter, err := config.ParseAdapter(msg.Adapter)
	if err != nil {
		return fmt.Errorf("commands: %w", err)
	}
	return c.router.Route(ctx, n, adapter)
}

// StoreNotification persists a notification and its content links.
type StoreNotification struct {
	Target
}

type storeCommand struct {
	router routerService
	logger logger.Logger
}

func (c storeCommand) Execute(ctx context.Context, msg StoreNotification) error {
	n, err := msg.resolve()
	if err != nil {
		return err
	}
	selected, err := c.router.Store(ctx, n)
	if err != nil {
		return err
	}
	c.logger.Info("notification stored", logger.F("notification_id", n.ID), logger.F("count", len(selected)))
	return nil
}

// EnqueueNotification queues the whole notification as one job.
type EnqueueNotification struct {
	Target
}

type enqueueNotificationCommand struct {
	router routerService
}

func (c enqueueNotificationCommand) Execute(ctx context.Context, msg EnqueueNotification) error {
	n, err := msg.resolve()
	if err != nil {
		return err
	}
	return c.router.DispatchNotification(ctx, n)
}

// EnqueueContentLinks queues one job per selected content link.
type EnqueueContentLinks struct {
	Target
}

type enqueueContentLinksCommand struct {
	router routerService
	logger logger.Logger
}

func (c enqueueContentLinksCommand) Execute(ctx context.Context, msg EnqueueContentLinks) error {
	n, err := msg.resolve()
	if err != nil {
		return err
	}
	count, err := c.router.DispatchContentLinks(ctx, n)
	if err != nil {
		return err
	}
	c.logger.Info("content links queued", logger.F("notification_id", n.ID), logger.F("count", count))
	return nil
}
