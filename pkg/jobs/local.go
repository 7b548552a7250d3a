package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-pubrouter/pkg/config"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/logger"
	"github.com/goliatone/go-pubrouter/pkg/interfaces/queue"
	"github.com/goliatone/go-pubrouter/pkg/retry"
	"golang.org/x/time/rate"
)

var (
	ErrNoHandler = errors.New("jobs: no handler registered for job kind")
	ErrClosed    = errors.New("jobs: executor closed")
)

// Handler processes one job.
type Handler func(ctx context.Context, job queue.Job) error

// Stats counts jobs by outcome.
type Stats struct {
	Enqueued  int64
	Succeeded int64
	Failed    int64
}

// LocalOption customises a Local executor.
type LocalOption func(*Local)

// WithBackoff overrides the retry backoff.
func WithBackoff(b retry.Backoff) LocalOption {
	return func(l *Local) {
		if b != nil {
			l.policy.Backoff = b
		}
	}
}

// WithQueueSize sets the channel buffer between the backlog and the workers.
func WithQueueSize(n int) LocalOption {
	return func(l *Local) {
		if n > 0 {
			l.size = n
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(lgr logger.Logger) LocalOption {
	return func(l *Local) {
		if lgr != nil {
			l.logger = lgr
		}
	}
}

// Local is an in-process queue.Queue that runs registered handlers on a
// worker pool. Enqueued jobs wait in an unbounded backlog, so handlers may
// enqueue follow-up jobs without blocking the workers that drain it.
// It is safe for concurrent use.
type Local struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	backlog   []queue.Job
	accepting bool
	closing   bool

	wake     chan struct{}
	stop     chan struct{}
	jobs     chan queue.Job
	workers  int
	size     int
	feederWG sync.WaitGroup
	workerWG sync.WaitGroup
	started  sync.Once

	runCtx    context.Context
	runCancel context.CancelFunc

	policy  retry.Policy
	limiter *rate.Limiter
	logger  logger.Logger

	pending   atomic.Int64
	enqueued  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// idlePoll is how often Close checks for in-flight jobs.
const idlePoll = 10 * time.Millisecond

var _ queue.Queue = (*Local)(nil)

// NewLocal builds an executor tuned by cfg. Workers start on the first
// Enqueue.
func NewLocal(cfg config.QueueConfig, opts ...LocalOption) *Local {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	l := &Local{
		handlers:  make(map[string]Handler),
		accepting: true,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		workers:   workers,
		size:      workers,
		policy: retry.Policy{
			MaxRetries: cfg.Retries(),
			Backoff:    retry.DefaultBackoff(),
		},
		logger: &logger.Nop{},
	}
	if cfg.RatePerSec > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	l.runCtx, l.runCancel = context.WithCancel(context.Background())
	return l
}

// Handle registers h for jobs of kind, replacing any previous handler.
func (l *Local) Handle(kind string, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[kind] = h
}

func (l *Local) handler(kind string) (Handler, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.handlers[kind]
	return h, ok && h != nil
}

// Enqueue appends job to the backlog. It never waits for a free worker.
func (l *Local) Enqueue(ctx context.Context, job queue.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := l.handler(job.Kind); !ok {
		return fmt.Errorf("%w: %q", ErrNoHandler, job.Kind)
	}

	l.mu.Lock()
	if !l.accepting {
		l.mu.Unlock()
		return ErrClosed
	}
	l.backlog = append(l.backlog, job)
	l.pending.Add(1)
	l.enqueued.Add(1)
	l.mu.Unlock()

	l.started.Do(l.start)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Local) start() {
	l.jobs = make(chan queue.Job, l.size)
	l.feederWG.Add(1)
	go func() {
		defer l.feederWG.Done()
		defer close(l.jobs)
		l.feed()
	}()
	for i := 0; i < l.workers; i++ {
		l.workerWG.Add(1)
		go func(worker int) {
			defer l.workerWG.Done()
			l.loop(worker)
		}(i)
	}
}

// feed moves jobs from the backlog to the workers until stop is closed and
// the backlog is empty, or the executor is cancelled.
func (l *Local) feed() {
	for {
		job, ok := l.next()
		if !ok {
			select {
			case <-l.wake:
				continue
			case <-l.stop:
				if l.backlogLen() == 0 {
					return
				}
				continue
			case <-l.runCtx.Done():
				return
			}
		}
		select {
		case l.jobs <- job:
		case <-l.runCtx.Done():
			l.discard(1)
			return
		}
	}
}

func (l *Local) next() (queue.Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.backlog) == 0 {
		return queue.Job{}, false
	}
	job := l.backlog[0]
	l.backlog[0] = queue.Job{}
	l.backlog = l.backlog[1:]
	return job, true
}

func (l *Local) backlogLen() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.backlog)
}

// discard counts n jobs that will never run as failed.
func (l *Local) discard(n int) {
	if n <= 0 {
		return
	}
	l.pending.Add(-int64(n))
	l.failed.Add(int64(n))
	l.logger.Warn("jobs discarded on shutdown", logger.F("count", n))
}

func (l *Local) loop(worker int) {
	for job := range l.jobs {
		l.run(worker, job)
		l.pending.Add(-1)
	}
}

func (l *Local) run(worker int, job queue.Job) {
	defer func() {
		if r := recover(); r != nil {
			l.failed.Add(1)
			l.logger.Error("job panicked",
				logger.F("worker", worker),
				logger.F("job_key", job.Key),
				logger.F("panic", fmt.Sprint(r)),
				logger.F("stack", string(debug.Stack())),
			)
		}
	}()

	ctx := l.runCtx
	if err := waitUntil(ctx, job.RunAt); err != nil {
		l.failed.Add(1)
		return
	}
	h, ok := l.handler(job.Kind)
	if !ok {
		l.failed.Add(1)
		l.logger.Error("job dropped", logger.F("job_key", job.Key), logger.F("error", ErrNoHandler.Error()))
		return
	}

	err := l.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
		}
		err := h(ctx, job)
		if err != nil && !retry.IsPermanent(err) {
			l.logger.Warn("job attempt failed",
				logger.F("job_key", job.Key),
				logger.F("attempt", attempt),
				logger.F("error", err.Error()),
			)
		}
		return err
	})
	if err != nil {
		l.failed.Add(1)
		l.logger.Error("job failed", logger.F("job_key", job.Key), logger.F("error", err.Error()))
		return
	}
	l.succeeded.Add(1)
	l.logger.Debug("job done", logger.F("job_key", job.Key), logger.F("job_kind", job.Kind))
}

func waitUntil(ctx context.Context, at time.Time) error {
	if at.IsZero() {
		return nil
	}
	delay := time.Until(at)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stats returns a snapshot of job counters.
func (l *Local) Stats() Stats {
	return Stats{
		Enqueued:  l.enqueued.Load(),
		Succeeded: l.succeeded.Load(),
		Failed:    l.failed.Load(),
	}
}

// Close waits for queued jobs, including jobs they enqueue, then stops intake
// and the workers. When ctx is done first, running handlers are cancelled and
// jobs still in the backlog are counted as failed.
func (l *Local) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return nil
	}
	l.closing = true
	l.mu.Unlock()

	idleErr := l.waitIdle(ctx)

	l.mu.Lock()
	l.accepting = false
	l.mu.Unlock()
	if idleErr != nil {
		l.runCancel()
	}
	close(l.stop)

	drained := make(chan struct{})
	go func() {
		l.started.Do(func() {})
		l.feederWG.Wait()
		l.workerWG.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
		err = idleErr
	case <-ctx.Done():
		l.runCancel()
		<-drained
		err = ctx.Err()
	}
	l.runCancel()

	l.mu.Lock()
	left := len(l.backlog)
	l.backlog = nil
	l.mu.Unlock()
	l.discard(left)
	return err
}

func (l *Local) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for l.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
