// Package store defines the counter-store contract for the admission engine.
//
// The Store interface is the minimal set of atomic primitives the strategies
// need: post-increment, expiry, TTL read, get/set, a batched read, and a
// pipeline for compound writes. The primary implementation is the Redis
// adapter (in store/redis), which covers standalone Redis, Redis Cluster,
// and Sentinel via redis.UniversalClient. A MemoryStore (in store/memory)
// serves tests and single-process deployments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("store: key not found")

// ErrScriptNotSupported is returned by Eval when the backend has no
// server-side scripting. Callers fall back to the client-side path.
var ErrScriptNotSupported = errors.New("store: scripting not supported by this backend")

// Store abstracts the remote counter backend. Implementations must be safe
// for concurrent use; all cross-instance serialization the engine relies on
// comes from Incr being atomic.
type Store interface {
	// Incr atomically increments key by one and returns the new value.
	// Creates the key with value 1 if it does not exist.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining TTL for a key.
	// Returns -1 if the key has no TTL, -2 if the key does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Get returns the string value for key, or ("", ErrKeyNotFound).
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with optional TTL (0 = no expiry).
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// MGet returns the values for the given keys in order, with "" standing
	// in for missing or expired keys. One round trip regardless of count.
	MGet(ctx context.Context, keys ...string) ([]string, error)

	// Eval executes a server-side script atomically with the given keys and
	// args. Backends without scripting return ErrScriptNotSupported.
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)

	// Pipeline returns a Pipeline for batching compound writes.
	Pipeline() Pipeline

	// Close releases any resources held by the store.
	Close() error
}

// Pipeline batches queued commands into a single round trip. Commands are
// applied in order on Exec; results are discarded.
type Pipeline interface {
	Incr(ctx context.Context, key string)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
	Expire(ctx context.Context, key string, ttl time.Duration)
	Exec(ctx context.Context) error
}
