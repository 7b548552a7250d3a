package notifier

import (
	"context"

	"github.com/goliatone/go-pubrouter/internal/di"
	"github.com/goliatone/go-pubrouter/pkg/commands"
	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/queue"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
	"github.com/goliatone/go-pubrouter/pkg/jobs"
	"github.com/goliatone/go-pubrouter/pkg/storage"
)

// ModuleOptions configure the notifier module facade.
type ModuleOptions struct {
	Config       config.Config
	Storage      storage.Providers
	Logger       logger.Logger
	Queue        queue.Queue
	ContentLinks jobs.Handler
}

// Module bundles the container and exposes high-level accessors.
type Module struct {
	container *di.Container
	manager   *Manager
}

// NewModule assembles storage, queue, router, manager and commands.
func NewModule(ctx context.Context, opts ModuleOptions) (*Module, error) {
	container, err := di.New(ctx, di.Options{
		Config:       opts.Config,
		Storage:      opts.Storage,
		Logger:       opts.Logger,
		Queue:        opts.Queue,
		ContentLinks: opts.ContentLinks,
	})
	if err != nil {
		return nil, err
	}
	manager, err := New(Dependencies{
		Router: container.Router,
		Store:  container.Storage.Notifications,
		Logger: container.Logger,
	})
	if err != nil {
		_ = container.Close(ctx)
		return nil, err
	}
	return &Module{container: container, manager: manager}, nil
}

// Manager returns the notifier manager.
func (m *Module) Manager() *Manager {
	if m == nil || m.container == nil {
		return nil
	}
	return m.manager
}

// Store exposes the notification store.
func (m *Module) Store() store.NotificationStore {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Storage.Notifications
}

// Executor returns the in-process executor, nil when a host queue was supplied.
func (m *Module) Executor() *jobs.Local {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Executor
}

// Commands returns the go-command registry.
func (m *Module) Commands() *commands.Registry {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Commands
}

// Config returns the effective module configuration.
func (m *Module) Config() config.Config {
	if m == nil || m.container == nil {
		return config.Config{}
	}
	return m.container.Config
}

// Container returns the internal DI container.
// This is exposed for advanced use cases like direct storage access.
func (m *Module) Container() *di.Container {
	if m == nil {
		return nil
	}
	return m.container
}

// Close drains queued jobs and releases storage.
func (m *Module) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.container.Close(ctx)
}
