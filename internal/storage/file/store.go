package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/store"
)

// File names written inside each notification directory.
const (
	NotificationFile = "notification.json"
	ContentLinksFile = "content_links.json"
)

var (
	ErrMissingBaseDir = errors.New("filestore: base directory is required")
	ErrInvalidID      = errors.New("filestore: notification id cannot be used as a path")
)

// Store keeps notifications under base/<id[0:2]>/<id[2:4]>/<id>/.
type Store struct {
	base   string
	logger logger.Logger
}

var _ store.NotificationStore = (*Store)(nil)

// New returns a store rooted at base.
func New(base string, lgr logger.Logger) (*Store, error) {
	if strings.TrimSpace(base) == "" {
		return nil, ErrMissingBaseDir
	}
	if lgr == nil {
		lgr = &logger.Nop{}
	}
	return &Store{base: base, logger: lgr}, nil
}

// BaseDir returns the root directory of the store.
func (s *Store) BaseDir() string { return s.base }

// PathFor returns the directory holding the documents of a notification.
func (s *Store) PathFor(id string) (string, error) {
	return ShardPath(s.base, id)
}

// ShardPath computes base/<id[0:2]>/<id[2:4]>/<id>. Ids shorter than four
// characters produce shorter shard segments; empty segments are skipped.
func ShardPath(base, id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(base, segment(id, 0, 2), segment(id, 2, 4), id), nil
}

// segment slices by characters so multi-byte ids yield valid UTF-8 names.
func segment(id string, from, to int) string {
	runes := []rune(id)
	if from >= len(runes) {
		return ""
	}
	if to > len(runes) {
		to = len(runes)
	}
	return string(runes[from:to])
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrMissingID
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if segment(id, 0, 2) == ".." || segment(id, 2, 4) == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// SaveNotification writes notification.json, replacing any earlier copy.
func (s *Store) SaveNotification(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errors.New("filestore: notification is required")
	}
	s.logger.Debug("saving notification", logger.F("notification_id", n.ID))
	return s.write(ctx, n.ID, NotificationFile, n)
}

// SaveContentLinks writes content_links.json, replacing any earlier copy.
func (s *Store) SaveContentLinks(ctx context.Context, notificationID string, links []domain.ContentLink) error {
	s.logger.Debug("saving content links", logger.F("notification_id", notificationID), logger.F("count", len(links)))
	if links == nil {
		links = []domain.ContentLink{}
	}
	return s.write(ctx, notificationID, ContentLinksFile, links)
}

// LoadNotification reads notification.json back.
func (s *Store) LoadNotification(ctx context.Context, notificationID string) (*domain.Notification, error) {
	data, err := s.read(ctx, notificationID, NotificationFile)
	if err != nil {
		return nil, err
	}
	n := &domain.Notification{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", NotificationFile, err)
	}
	return n, nil
}

// LoadContentLinks reads content_links.json back.
func (s *Store) LoadContentLinks(ctx context.Context, notificationID string) ([]domain.ContentLink, error) {
	data, err := s.read(ctx, notificationID, ContentLinksFile)
	if err != nil {
		return nil, err
	}
	var out []domain.ContentLink
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("filestore: decode %s: %w", ContentLinksFile, err)
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, id, name string, doc any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.PathFor(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode %s: %w", name, err)
	}
	// MkdirAll tolerates a concurrent writer creating the same shard.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, name), append(data, '\n')); err != nil {
		return fmt.Errorf("filestore: write %s: %w", name, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, id, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.PathFor(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", name, err)
	}
	return data, nil
}

// writeFileAtomic replaces path in one rename so readers never see a torn file
// and the last writer wins.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
