package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/domain"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/queue"
	"github.com/goliatone/go-pubrouter/pkg/retry"
)

func closeLocal(t *testing.T, l *Local) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestLocalRunsHandlers(t *testing.T) {
	l := NewLocal(config.QueueConfig{MaxWorkers: 2})
	var mu sync.Mutex
	seen := map[string]bool{}
	l.Handle("echo", func(ctx context.Context, job queue.Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.Key] = true
		return nil
	})

	for _, key := range []string{"a", "b", "c"} {
		if err := l.Enqueue(context.Background(), queue.Job{Key: key, Kind: "echo"}); err != nil {
			t.Fatalf("enqueue %s: %v", key, err)
		}
	}
	closeLocal(t, l)

	if len(seen) != 3 {
		t.Fatalf("expected 3 jobs handled, got %v", seen)
	}
	stats := l.Stats()
	if stats.Enqueued != 3 || stats.Succeeded != 3 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLocalRejectsUnknownKind(t *testing.T) {
	l := NewLocal(config.QueueConfig{})
	defer closeLocal(t, l)
	err := l.Enqueue(context.Background(), queue.Job{Key: "x", Kind: "missing"})
	if !errors.Is(err, ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestLocalRetries(t *testing.T) {
	l := NewLocal(config.QueueConfig{MaxWorkers: 1}.WithRetries(2), WithBackoff(retry.ConstantBackoff(0)))
	var calls atomic.Int32
	l.Handle("flaky", func(ctx context.Context, job queue.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	l.Handle("broken", func(ctx context.Context, job queue.Job) error {
		return errors.New("always")
	})
	if err := l.Enqueue(context.Background(), queue.Job{Key: "f", Kind: "flaky"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := l.Enqueue(context.Background(), queue.Job{Key: "b", Kind: "broken"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	closeLocal(t, l)

	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	stats := l.Stats()
	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLocalClosedRejects(t *testing.T) {
	l := NewLocal(config.QueueConfig{})
	l.Handle("echo", func(ctx context.Context, job queue.Job) error { return nil })
	closeLocal(t, l)
	if err := l.Enqueue(context.Background(), queue.Job{Kind: "echo"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	closeLocal(t, l)
}

func TestLocalRecoversPanics(t *testing.T) {
	l := NewLocal(config.QueueConfig{MaxWorkers: 1})
	l.Handle("panic", func(ctx context.Context, job queue.Job) error { panic("boom") })
	if err := l.Enqueue(context.Background(), queue.Job{Key: "p", Kind: "panic"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	closeLocal(t, l)
	if l.Stats().Failed != 1 {
		t.Fatalf("expected panic to count as failure, got %+v", l.Stats())
	}
}

type processorFunc func(ctx context.Context, n *domain.Notification) (int, error)

func (f processorFunc) Process(ctx context.Context, n *domain.Notification) (int, error) {
	return f(ctx, n)
}

func TestNotificationHandler(t *testing.T) {
	var got *domain.Notification
	h := NotificationHandler(processorFunc(func(ctx context.Context, n *domain.Notification) (int, error) {
		got = n
		return len(n.Links), nil
	}), nil)

	job, err := NewNotificationJob(domain.NewNotification("abc", domain.NewLink(map[string]string{"type": "fulltext"})))
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := h(context.Background(), job); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got == nil || got.ID != "abc" || len(got.Links) != 1 {
		t.Fatalf("unexpected notification %+v", got)
	}

	bad := queue.Job{Key: "notification:bad", Kind: KindNotification, Payload: NotificationJob{Body: "[]"}}
	if err := h(context.Background(), bad); !retry.IsPermanent(err) {
		t.Fatalf("expected permanent decode error, got %v", err)
	}
	if err := h(context.Background(), queue.Job{Payload: 42}); !retry.IsPermanent(err) {
		t.Fatalf("expected permanent payload error, got %v", err)
	}
}

func TestContentLinkHandler(t *testing.T) {
	var got ContentLinkJob
	h := ContentLinkHandler(func(ctx context.Context, job ContentLinkJob) error {
		got = job
		return nil
	})
	link := domain.ContentLink{
		Link:             domain.NewLink(map[string]string{"url": "https://example.org/a.pdf"}),
		NeedAPIKey:       true,
		NotificationType: domain.TypeUnpackagedPDF,
	}
	if err := h(context.Background(), NewContentLinkJob("abc", 0, link)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got.NotificationID != "abc" || got.ContentLink.URL() != "https://example.org/a.pdf" {
		t.Fatalf("unexpected job %+v", got)
	}
	if err := h(context.Background(), queue.Job{Payload: "nope"}); !retry.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestJobKeys(t *testing.T) {
	if got := NotificationKey("abc"); got != "notification:abc" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := ContentLinkKey("abc", 2); got != "content_link:abc:2" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestLocalCloseWaitsForFollowUpJobs(t *testing.T) {
	l := NewLocal(config.QueueConfig{MaxWorkers: 1})
	var children atomic.Int32
	l.Handle("parent", func(ctx context.Context, job queue.Job) error {
		time.Sleep(20 * time.Millisecond)
		return l.Enqueue(ctx, queue.Job{Key: job.Key + ":child", Kind: "child"})
	})
	l.Handle("child", func(ctx context.Context, job queue.Job) error {
		children.Add(1)
		return nil
	})
	for _, key := range []string{"a", "b"} {
		if err := l.Enqueue(context.Background(), queue.Job{Key: key, Kind: "parent"}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	closeLocal(t, l)
	if children.Load() != 2 {
		t.Fatalf("expected follow-up jobs to run before close, got %d", children.Load())
	}
}

func TestLocalDrainsWhenHandlersFanOutPastBuffer(t *testing.T) {
	l := NewLocal(config.QueueConfig{MaxWorkers: 1}, WithQueueSize(1))
	var children atomic.Int32
	l.Handle("parent", func(ctx context.Context, job queue.Job) error {
		for _, suffix := range []string{":0", ":1"} {
			if err := l.Enqueue(ctx, queue.Job{Key: job.Key + suffix, Kind: "child"}); err != nil {
				return err
			}
		}
		return nil
	})
	l.Handle("child", func(ctx context.Context, job queue.Job) error {
		children.Add(1)
		return nil
	})

	const parents = 200
	done := make(chan error, 1)
	go func() {
		for i := 0; i < parents; i++ {
			key := NotificationKey(fmt.Sprintf("n%03d", i))
			if err := l.Enqueue(context.Background(), queue.Job{Key: key, Kind: "parent"}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue stalled while workers were fanning out")
	}

	closeLocal(t, l)
	if got := children.Load(); got != 2*parents {
		t.Fatalf("expected %d follow-up jobs, got %d", 2*parents, got)
	}
	stats := l.Stats()
	if stats.Enqueued != 3*parents || stats.Succeeded != 3*parents || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestLocalCloseTimeoutCountsBacklogAsFailed(t *testing.T) {
	l := NewLocal(config.QueueConfig{MaxWorkers: 1}.WithRetries(0))
	release := make(chan struct{})
	l.Handle("slow", func(ctx context.Context, job queue.Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return ctx.Err()
	})
	for i := 0; i < 3; i++ {
		if err := l.Enqueue(context.Background(), queue.Job{Key: fmt.Sprint(i), Kind: "slow"}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	close(release)
	stats := l.Stats()
	if stats.Enqueued != 3 || stats.Failed != 3 || stats.Succeeded != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
