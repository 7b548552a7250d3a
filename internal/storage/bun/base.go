package bunrepo

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// keyedRepository stores one row per notification id.
type keyedRepository[T any] struct {
	repo    repository.Repository[*T]
	db      *bun.DB
	extract func(*T) *domain.RecordMeta
	key     func(*T) string
}

func newKeyedRepository[T any](db *bun.DB, newRecord func() *T, extract func(*T) *domain.RecordMeta, key func(*T) string) keyedRepository[T] {
	handlers := repository.ModelHandlers[*T]{
		NewRecord:          newRecord,
		GetID:              func(r *T) uuid.UUID { return extract(r).ID },
		SetID:              func(r *T, id uuid.UUID) { extract(r).ID = id },
		GetIdentifier:      func() string { return "notification_id" },
		GetIdentifierValue: func(r *T) string { return key(r) },
	}
	return keyedRepository[T]{
		repo:    repository.MustNewRepository[*T](db, handlers),
		db:      db,
		extract: extract,
		key:     key,
	}
}

// upsert replaces the row for the record's notification id.
func (r keyedRepository[T]) upsert(ctx context.Context, record *T) error {
	existing, err := r.get(ctx, r.key(record))
	switch {
	case err == nil:
		return r.replace(ctx, existing, record)
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	base := r.extract(record)
	base.EnsureID()
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	if _, err := r.repo.Create(ctx, record); err != nil {
		// another writer may have inserted the same id first
		if existing, getErr := r.get(ctx, r.key(record)); getErr == nil {
			return r.replace(ctx, existing, record)
		}
		return mapError(err)
	}
	return nil
}

func (r keyedRepository[T]) replace(ctx context.Context, existing, record *T) error {
	prev := r.extract(existing)
	base := r.extract(record)
	base.ID = prev.ID
	base.CreatedAt = prev.CreatedAt
	base.UpdatedAt = time.Now().UTC()
	_, err := r.repo.Update(ctx, record)
	return mapError(err)
}

func (r keyedRepository[T]) get(ctx context.Context, notificationID string) (*T, error) {
	record, err := r.repo.Get(ctx, withNotificationID(notificationID))
	if err != nil {
		return nil, mapError(err)
	}
	return record, nil
}

func withNotificationID(id string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("notification_id = ?", id)
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return store.ErrNotFound
	}
	return err
}
