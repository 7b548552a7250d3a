package di

import (
	"context"
	"errors"
	"reflect"

	"github.com/goliatone/go-pubrouter/internal/router"
	"github.com/goliatone/go-pubrouter/pkg/commands"
	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/queue"
	"github.com/goliatone/go-pubrouter/pkg/jobs"
	"github.com/goliatone/go-pubrouter/pkg/storage"
)

// Options configure the DI container.
type Options struct {
	Config  config.Config
	Storage storage.Providers
	Logger  logger.Logger
	// Queue replaces the in-process executor when set.
	Queue queue.Queue
	// ContentLinks handles content link jobs on the in-process executor.
	// Defaults to logging each link.
	ContentLinks jobs.Handler
}

// Container wires storage, queue, router and commands.
type Container struct {
	Config   config.Config
	Storage  storage.Providers
	Logger   logger.Logger
	Queue    queue.Queue
	Executor *jobs.Local
	Router   *router.Service
	Commands *commands.Registry
}

func isZeroConfig(cfg config.Config) bool {
	return reflect.ValueOf(cfg).IsZero()
}

// New constructs the container using the supplied options.
func New(ctx context.Context, opts Options) (*Container, error) {
	cfg := opts.Config
	if isZeroConfig(cfg) {
		cfg = config.Defaults()
		cfg.Storage.Driver = config.DriverMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lgr := opts.Logger
	if lgr == nil {
		lgr = &logger.Nop{}
	}

	providers := opts.Storage
	if providers.Notifications == nil {
		var err error
		providers, err = openStorage(ctx, cfg, lgr)
		if err != nil {
			return nil, err
		}
	}
	if providers.Close == nil {
		providers.Close = func() error { return nil }
	}

	q := opts.Queue
	var executor *jobs.Local
	if q == nil {
		executor = jobs.NewLocal(cfg.Queue, jobs.WithLogger(lgr))
		q = executor
	}

	routerSvc, err := router.New(router.Dependencies{
		Store:  providers.Notifications,
		Queue:  q,
		Logger: lgr,
		Config: cfg,
	})
	if err != nil {
		_ = providers.Close()
		return nil, err
	}

	if executor != nil {
		contentLinks := opts.ContentLinks
		if contentLinks == nil {
			contentLinks = jobs.LogContentLink(lgr)
		}
		executor.Handle(jobs.KindNotification, jobs.NotificationHandler(routerSvc, lgr))
		executor.Handle(jobs.KindContentLink, contentLinks)
	}

	cmdRegistry, err := commands.New(commands.Dependencies{
		Router: routerSvc,
		Logger: lgr,
	})
	if err != nil {
		_ = providers.Close()
		return nil, err
	}

	return &Container{
		Config:   cfg,
		Storage:  providers,
		Logger:   lgr,
		Queue:    q,
		Executor: executor,
		Router:   routerSvc,
		Commands: cmdRegistry,
	}, nil
}

// openStorage builds the configured store. The queue adapter may run without
// a notifications directory, in which case dequeued notifications are kept
// in memory.
func openStorage(ctx context.Context, cfg config.Config, lgr logger.Logger) (storage.Providers, error) {
	if cfg.Router.Adapter == config.AdapterQueue && cfg.Storage.Driver == config.DriverFile && cfg.Storage.NotificationsDir == "" {
		lgr.Warn("no notifications_dir configured, dequeued notifications are kept in memory")
		return storage.NewMemoryProviders(), nil
	}
	return storage.FromConfig(ctx, cfg.Storage, lgr)
}

// Close drains the executor and releases storage.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Executor != nil {
		errs = append(errs, c.Executor.Close(ctx))
	}
	if c.Storage.Close != nil {
		errs = append(errs, c.Storage.Close())
	}
	return errors.Join(errs...)
}
