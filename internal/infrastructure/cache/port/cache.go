package port

import (
	"context"
	"time"
)

// Cache is the key-value store the chat service keeps derived, re-creatable
// data in: conversation snapshots today, whatever else tomorrow. Values are
// plain strings; whoever writes an entry owns its encoding. Implementations
// must be safe for concurrent use and honor context cancellation.
type Cache interface {
	// Get returns the value stored at key, or ErrMiss when there is none.
	// Any other error is a transport/backend failure.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key for ttl. A non-positive ttl stores the
	// entry without expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del removes the given keys and reports how many actually existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// ErrMiss distinguishes "no such key" from a failing backend. Callers treat a
// miss as a normal outcome and fall through to the source of truth.
var ErrMiss = errMiss{}

type errMiss struct{}

func (errMiss) Error() string { return "cache: miss" }
