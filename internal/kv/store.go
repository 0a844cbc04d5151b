// Package kv defines the flat key-value store every service reads and
// writes through: scalar get/set/delete, glob key enumeration,
// push-front lists, and atomic counters. Values round-trip through
// JSON. Three implementations exist: an in-process map (tests, local
// dev), Redis, and a single-node SQLite file.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps transport or storage failures. Callers do not
// retry; the error propagates to the request.
var ErrUnavailable = errors.New("kv: store unavailable")

type Store interface {
	// Get decodes the value at key into dest. Returns false when the
	// key is absent, leaving dest untouched.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value at key. A non-zero ttl expires the key.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	// Keys returns all keys matching a glob pattern ('*' wildcard).
	Keys(ctx context.Context, pattern string) ([]string, error)

	// ListPush prepends value to the list at key.
	ListPush(ctx context.Context, key, value string) error

	// ListRange returns list elements from start to stop inclusive;
	// stop = -1 means "to end".
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Incr atomically adds amount to the counter at key and returns
	// the new value. Missing keys count from zero.
	Incr(ctx context.Context, key string, amount int64) (int64, error)
}
