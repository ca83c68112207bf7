// Package memory provides an in-memory implementation of store.Store.
//
// It serves tests and single-process deployments that do not need state
// shared across instances. Eval returns ErrScriptNotSupported; the engine
// falls back to the client-side token bucket path.
//
//	s := memory.New()
//	defer s.Close()
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/skanda-dev/rategate/store"
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for TTL bookkeeping. Tests inject
// a fake clock so expiry follows simulated time instead of real time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store implements store.Store with in-process state.
// All operations are safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	value    string
	expireAt time.Time
}

// New creates an in-memory Store. Expired keys are evicted lazily on access.
func New(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// live returns the entry for key, evicting it first if its TTL has passed.
// Caller must hold mu.
func (s *Store) live(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	e, ok := s.live(key)
	if ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	s.data[key] = entry{value: strconv.FormatInt(n, 10), expireAt: e.expireAt}
	return n, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.live(key); ok {
		e.expireAt = s.now().Add(ttl)
		s.data[key] = e
	}
	return nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return -2, nil
	}
	if e.expireAt.IsZero() {
		return -1, nil
	}
	return e.expireAt.Sub(s.now()), nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return "", store.ErrKeyNotFound
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

func (s *Store) MGet(_ context.Context, keys ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals := make([]string, len(keys))
	for i, key := range keys {
		if e, ok := s.live(key); ok {
			vals[i] = e.value
		}
	}
	return vals, nil
}

func (s *Store) Eval(_ context.Context, _ string, _ []string, _ ...interface{}) (interface{}, error) {
	return nil, store.ErrScriptNotSupported
}

func (s *Store) Pipeline() store.Pipeline {
	return &pipeline{store: s}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// ─── Pipeline ────────────────────────────────────────────────────────────────

// pipeline queues operations and applies them in order on Exec.
// There is no real round trip to save; it exists to satisfy the contract.
type pipeline struct {
	store *Store
	ops   []func(ctx context.Context) error
}

func (p *pipeline) Incr(_ context.Context, key string) {
	p.ops = append(p.ops, func(ctx context.Context) error {
		_, err := p.store.Incr(ctx, key)
		return err
	})
}

func (p *pipeline) Set(_ context.Context, key string, value string, ttl time.Duration) {
	p.ops = append(p.ops, func(ctx context.Context) error {
		return p.store.Set(ctx, key, value, ttl)
	})
}

func (p *pipeline) Expire(_ context.Context, key string, ttl time.Duration) {
	p.ops = append(p.ops, func(ctx context.Context) error {
		return p.store.Expire(ctx, key, ttl)
	})
}

func (p *pipeline) Exec(ctx context.Context) error {
	for _, op := range p.ops {
		if err := op(ctx); err != nil {
			return err
		}
	}
	p.ops = nil
	return nil
}
