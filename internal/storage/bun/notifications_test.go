package bunrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	models := []any{
		(*domain.NotificationRecord)(nil),
		(*domain.ContentLinkSet)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func TestNotificationStoreBun(t *testing.T) {
	db := setupSQLiteDB(t)
	s := NewNotificationStore(db, nil)
	ctx := context.Background()

	n, err := domain.ParseNotification([]byte(`{"id": 123456789, "event": "submitted", "links": [{"type": "fulltext", "access": "public"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := s.SaveNotification(ctx, n); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadNotification(ctx, "123456789")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !n.Equal(got) {
		t.Fatalf("round trip mismatch")
	}
}

func TestNotificationStoreBunOverwrites(t *testing.T) {
	db := setupSQLiteDB(t)
	s := NewNotificationStore(db, nil)
	ctx := context.Background()

	first := domain.NewNotification("777")
	_ = first.SetField("version", 1)
	second := domain.NewNotification("777")
	_ = second.SetField("replacement", true)

	if err := s.SaveNotification(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.SaveNotification(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, err := s.LoadNotification(ctx, "777")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Field("version") != nil || string(got.Field("replacement")) != "true" {
		t.Fatalf("expected last write to win, got keys %v", got.FieldKeys())
	}

	count, err := db.NewSelect().Model((*domain.NotificationRecord)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row per notification, got %d", count)
	}
}

func TestContentLinksBun(t *testing.T) {
	db := setupSQLiteDB(t)
	s := NewNotificationStore(db, nil)
	ctx := context.Background()

	links := []domain.ContentLink{
		{Link: domain.NewLink(map[string]string{"type": "unpackaged", "format": "application/pdf"}), NeedAPIKey: true, NotificationType: domain.TypeUnpackagedPDF},
	}
	if err := s.SaveContentLinks(ctx, "42", links); err != nil {
		t.Fatalf("save links: %v", err)
	}
	if err := s.SaveContentLinks(ctx, "42", append(links, domain.ContentLink{Link: domain.NewLink(map[string]string{"type": "fulltext"}), NotificationType: domain.TypeFulltext})); err != nil {
		t.Fatalf("save links again: %v", err)
	}
	got, err := s.LoadContentLinks(ctx, "42")
	if err != nil {
		t.Fatalf("load links: %v", err)
	}
	if len(got) != 2 || got[0].NotificationType != domain.TypeUnpackagedPDF || got[1].NotificationType != domain.TypeFulltext {
		t.Fatalf("unexpected links %+v", got)
	}
}

func TestNotificationStoreBunNotFound(t *testing.T) {
	db := setupSQLiteDB(t)
	s := NewNotificationStore(db, nil)
	if _, err := s.LoadNotification(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.LoadContentLinks(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
