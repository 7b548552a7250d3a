package storage

import (
	"context"
	"database/sql"
	"fmt"

	bunrepo "github.com/goliatone/go-pubrouter/internal/storage/bun"
	filestore "github.com/goliatone/go-pubrouter/internal/storage/file"
	"github.com/goliatone/go-pubrouter/internal/storage/memory"
	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Providers exposes the stores needed by the router.
type Providers struct {
	Notifications store.NotificationStore
	// Close releases resources held by the backend (database handles).
	Close func() error
}

// NewMemoryProviders returns stores backed by in-memory maps.
func NewMemoryProviders() Providers {
	return Providers{
		Notifications: memory.NewNotificationStore(),
		Close:         func() error { return nil },
	}
}

// NewFileProviders returns the sharded on-disk store rooted at dir.
func NewFileProviders(dir string, lgr logger.Logger) (Providers, error) {
	fs, err := filestore.New(dir, lgr)
	if err != nil {
		return Providers{}, err
	}
	return Providers{
		Notifications: fs,
		Close:         func() error { return nil },
	}, nil
}

// NewBunProviders wires Bun-backed stores using go-repository-bun.
// The caller is responsible for creating the *bun.DB instance (potentially
// via go-persistence-bun) and managing its lifecycle.
func NewBunProviders(db *bun.DB, lgr logger.Logger) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// Register models so go-persistence-bun migrations can pick them up.
	persistence.RegisterModel(
		(*domain.NotificationRecord)(nil),
		(*domain.ContentLinkSet)(nil),
	)

	return Providers{
		Notifications: bunrepo.NewNotificationStore(db, lgr),
		Close:         func() error { return nil },
	}
}

// OpenSQLite opens dsn with the sqlite shim and creates the tables when missing.
func OpenSQLite(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	models := []any{
		(*domain.NotificationRecord)(nil),
		(*domain.ContentLinkSet)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: create table: %w", err)
		}
	}
	return db, nil
}

// FromConfig builds the providers selected by cfg.Driver.
func FromConfig(ctx context.Context, cfg config.StorageConfig, lgr logger.Logger) (Providers, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryProviders(), nil
	case config.DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return Providers{}, err
		}
		providers := NewBunProviders(db, lgr)
		providers.Close = db.Close
		return providers, nil
	case config.DriverFile, "":
		return NewFileProviders(cfg.NotificationsDir, lgr)
	default:
		return Providers{}, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}
