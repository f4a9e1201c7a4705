package port

import (
	"context"
	"time"
)

// Task is one unit of side-channel work: a stable type string plus an opaque
// payload. Encoding is the producer's business; the port stays free of
// serialization concerns.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes one task. A non-nil error asks the backend to retry under
// its own policy, so handlers must tolerate re-delivery.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption tunes a single enqueue. Zero values mean "unspecified";
// adapters map what their backend supports and ignore the rest.
type EnqueueOption struct {
	// Queue routes the task to a named queue; empty uses the default.
	Queue string
	// ProcessIn delays processing; ProcessAt schedules an absolute time and
	// wins when both are set.
	ProcessIn time.Duration
	ProcessAt time.Time
	// MaxRetry caps redelivery attempts.
	MaxRetry int
	// UniqueTTL suppresses duplicate enqueues of an identical task within
	// the window.
	UniqueTTL time.Duration
	// Retention keeps completed-task metadata around for inspection.
	Retention time.Duration
	// Deadline is a hard processing cutoff.
	Deadline time.Time
}

// Client is the producing side of the queue.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server is the consuming side. Run blocks until the context is canceled or
// Stop is called.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
