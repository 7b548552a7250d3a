package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
)

func TestShardPath(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"123456789", filepath.Join("/data", "12", "34", "123456789")},
		{"abcd", filepath.Join("/data", "ab", "cd", "abcd")},
		{"abc", filepath.Join("/data", "ab", "c", "abc")},
		{"ab", filepath.Join("/data", "ab", "ab")},
		{"a", filepath.Join("/data", "a", "a")},
	}
	for _, tc := range cases {
		got, err := ShardPath("/data", tc.id)
		if err != nil {
			t.Fatalf("shard %s: %v", tc.id, err)
		}
		if got != tc.want {
			t.Fatalf("shard %s: expected %s, got %s", tc.id, tc.want, got)
		}
		again, _ := ShardPath("/data", tc.id)
		if again != got {
			t.Fatalf("shard path must be deterministic")
		}
	}
}

func TestShardPathSlicesByCharacter(t *testing.T) {
	got, err := ShardPath("/data", "aébc")
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	want := filepath.Join("/data", "aé", "bc", "aébc")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	rel, _ := filepath.Rel("/data", got)
	if !utf8.ValidString(rel) {
		t.Fatalf("shard path %q is not valid UTF-8", rel)
	}
}

func TestShardPathRejectsUnsafeIDs(t *testing.T) {
	for _, id := range []string{"", "  ", "..", "../etc", "ab/cd", `ab\cd`, "..abc", "ab..cd"} {
		if _, err := ShardPath("/data", id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}

func TestSaveNotificationWritesShardedLayout(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := newTestStore(t, base)

	n := sampleNotification(t, "123456789")
	if err := s.SaveNotification(ctx, n); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(base, "12", "34", "123456789", NotificationFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
	if !json.Valid(data) {
		t.Fatalf("expected valid JSON, got %s", data)
	}

	back, err := s.LoadNotification(ctx, "123456789")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !n.Equal(back) {
		t.Fatalf("round trip mismatch: %s", data)
	}
}

func TestSaveNotificationOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())

	first := sampleNotification(t, "555000")
	if err := first.SetField("title", "first"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	second := domain.NewNotification("555000")
	if err := second.SetField("other", "second"); err != nil {
		t.Fatalf("set field: %v", err)
	}

	if err := s.SaveNotification(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := s.SaveNotification(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	got, err := s.LoadNotification(ctx, "555000")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Field("title") != nil {
		t.Fatalf("expected overwrite, found merged field title")
	}
	if string(got.Field("other")) != `"second"` {
		t.Fatalf("expected second document, got %s", got.Field("other"))
	}
}

func TestSaveContentLinksRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := newTestStore(t, base)

	links := []domain.ContentLink{
		{Link: domain.NewLink(map[string]string{"type": "fulltext", "url": "https://example.org/a.pdf"}), NotificationType: domain.TypeFulltext},
		{Link: domain.NewLink(map[string]string{"type": "package", "packaging": domain.PackagingSimpleZip}), NeedAPIKey: true, NotificationType: domain.TypeSimpleZip},
	}
	if err := s.SaveContentLinks(ctx, "123456789", links); err != nil {
		t.Fatalf("save links: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "12", "34", "123456789", ContentLinksFile)); err != nil {
		t.Fatalf("expected content links file: %v", err)
	}
	got, err := s.LoadContentLinks(ctx, "123456789")
	if err != nil {
		t.Fatalf("load links: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 links, got %d", len(got))
	}
	for i := range links {
		if !got[i].Link.Equal(links[i].Link) || got[i].NeedAPIKey != links[i].NeedAPIKey || got[i].NotificationType != links[i].NotificationType {
			t.Fatalf("link %d mismatch: %+v", i, got[i])
		}
	}
}

func TestSaveEmptyContentLinksWritesArray(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := newTestStore(t, base)
	if err := s.SaveContentLinks(ctx, "998877", nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(base, "99", "88", "998877", ContentLinksFile))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded []any
	if err := json.Unmarshal(data, &decoded); err != nil || decoded == nil {
		t.Fatalf("expected empty JSON array, got %s", data)
	}
}

func TestLoadMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	if _, err := s.LoadNotification(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.LoadContentLinks(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveFailsWhenDirectoryCannotBeCreated(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "12")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	s := newTestStore(t, base)
	if err := s.SaveNotification(context.Background(), sampleNotification(t, "123456789")); err == nil {
		t.Fatalf("expected directory creation failure")
	}
}

func TestConcurrentSavesForDistinctIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// ids share the same shard directories on purpose
			errs <- s.SaveNotification(ctx, domain.NewNotification(fmt.Sprintf("1234%03d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
	}
}

func TestNewRequiresBaseDir(t *testing.T) {
	if _, err := New("", nil); !errors.Is(err, ErrMissingBaseDir) {
		t.Fatalf("expected ErrMissingBaseDir, got %v", err)
	}
}

func newTestStore(t *testing.T, base string) *Store {
	t.Helper()
	s, err := New(base, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func sampleNotification(t *testing.T, id string) *domain.Notification {
	t.Helper()
	payload := fmt.Sprintf(`{"id": %q, "provider": {"agent": "publisher"}, "links": [
		{"type": "fulltext", "access": "public", "url": "https://example.org/a.pdf"},
		{"type": "package", "access": "router", "packaging": %q, "size": 1024}
	]}`, id, domain.PackagingSimpleZip)
	n, err := domain.ParseNotification([]byte(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return n
}
