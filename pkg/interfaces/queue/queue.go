package queue

import (
	"context"
	"time"
)

// Job represents a unit of work handed to the asynchronous executor.
// Kind selects the handler; Payload shape is defined per kind by pkg/jobs.
type Job struct {
	Key     string
	Kind    string
	Payload any
	RunAt   time.Time
}

// Queue represents the go-job compatible enqueue interface required by the router.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Func adapts a function to Queue.
type Func func(ctx context.Context, job Job) error

var _ Queue = Func(nil)

func (f Func) Enqueue(ctx context.Context, job Job) error { return f(ctx, job) }

// Nop queue swallows jobs (used for tests or disabled scheduling).
type Nop struct{}

var _ Queue = (*Nop)(nil)

func (n *Nop) Enqueue(ctx context.Context, job Job) error { return nil }
