package rategate

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skanda-dev/rategate/store"
)

// FailurePolicy decides the admission outcome when the counter store is
// unreachable. The policy is process-wide and applies identically to every
// strategy.
type FailurePolicy int

const (
	// FailOpen admits the request and logs a warning. This is the default:
	// a broken coordination store should not take the service down.
	FailOpen FailurePolicy = iota

	// FailClosed rejects the request and logs a warning.
	FailClosed
)

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "closed"
	}
	return "open"
}

// Observer receives engine events for instrumentation. The metrics package
// provides a Prometheus implementation.
type Observer interface {
	// Decision is called after every admission check with the strategy
	// name, the outcome, and the wall time spent, store round trips
	// included.
	Decision(strategy string, allowed bool, elapsed time.Duration)

	// StoreError is called when a store round trip fails and the failure
	// policy resolves the decision instead.
	StoreError(strategy string)
}

// Engine makes admit/reject decisions against a shared counter store.
// One Engine instance serves all concurrent requests; it holds no mutable
// state and delegates all cross-request serialization to the store's atomic
// primitives.
type Engine struct {
	store    store.Store
	resolver *resolver
	excluded []string
	prefix   string
	policy   FailurePolicy
	hashTag  bool
	atomicTB bool
	now      func() time.Time
	log      *zap.Logger
	obs      Observer
}

// New builds an Engine over st. Every configured limit is validated up
// front; an invalid limit, window, or bucket count is a fatal *ConfigError.
func New(st store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, errors.New("rategate: store is required")
	}
	s := settings{
		def:     DefaultConfig(),
		methods: map[string]Config{},
		paths:   map[string]Config{},
		prefix:  "ratelimit:",
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(&s)
	}

	r := newResolver(s.def, s.methods, s.paths)
	if err := r.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:    st,
		resolver: r,
		excluded: s.excluded,
		prefix:   s.prefix,
		policy:   s.policy,
		hashTag:  s.hashTag,
		atomicTB: s.atomicTB,
		now:      s.now,
		log:      s.log,
		obs:      s.obs,
	}
	e.log.Info("admission engine ready",
		zap.String("strategy", s.def.Strategy.String()),
		zap.Int64("limit", s.def.Limit),
		zap.Duration("window", s.def.Window),
		zap.String("failure_policy", s.policy.String()),
	)
	return e, nil
}

// Excluded reports whether path matches a configured excluded prefix.
// Excluded requests are never counted and carry no rate headers.
func (e *Engine) Excluded(path string) bool {
	for _, prefix := range e.excluded {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Resolve returns the effective Config for a method/path pair.
func (e *Engine) Resolve(method, path string) Config {
	cfg, _ := e.resolver.resolve(method, path)
	return cfg
}

// Check runs one admission decision for the given request coordinates.
// It never returns an error: a store failure is logged and resolved through
// the configured failure policy, so every call converges to a Decision.
func (e *Engine) Check(ctx context.Context, method, path, clientID string) (Decision, Config) {
	cfg, sc := e.resolver.resolve(method, path)

	identity := path
	if sc == scopeMethod {
		identity = method + " " + path
	}
	key := e.counterKey(clientID, identity)

	start := time.Now()
	d, err := e.evaluate(ctx, key, cfg)
	if err != nil {
		e.log.Warn("counter store unavailable",
			zap.String("key", key),
			zap.String("strategy", cfg.Strategy.String()),
			zap.String("failure_policy", e.policy.String()),
			zap.Error(err),
		)
		if e.obs != nil {
			e.obs.StoreError(cfg.Strategy.String())
		}
		if e.policy == FailClosed {
			d = Decision{Allowed: false, RetryAfter: cfg.Window}
		} else {
			d = Decision{Allowed: true, Remaining: cfg.Limit}
		}
	}
	if e.obs != nil {
		e.obs.Decision(cfg.Strategy.String(), d.Allowed, time.Since(start))
	}
	return d, cfg
}

// evaluate dispatches to the strategy variant. The switch is exhaustive
// over the closed StrategyKind set.
func (e *Engine) evaluate(ctx context.Context, key string, cfg Config) (Decision, error) {
	now := e.now()
	switch cfg.Strategy {
	case FixedWindow:
		return evalFixedWindow(ctx, e.store, key, cfg)
	case SlidingWindow:
		return evalSlidingWindow(ctx, e.store, key, cfg, now)
	case TokenBucket:
		if e.atomicTB {
			d, err := evalTokenBucketAtomic(ctx, e.store, key, cfg, now)
			if !errors.Is(err, store.ErrScriptNotSupported) {
				return d, err
			}
		}
		return evalTokenBucket(ctx, e.store, key, cfg, now)
	}
	return Decision{}, fmt.Errorf("rategate: unknown strategy %v", cfg.Strategy)
}

// counterKey builds the composite store key: namespace prefix, client
// identity, and an md5 of the endpoint identity. The raw path is hashed
// as-is; path parameters are deliberately not normalized.
func (e *Engine) counterKey(clientID, identity string) string {
	sum := md5.Sum([]byte(identity))
	id := clientID + ":" + hex.EncodeToString(sum[:])
	if e.hashTag {
		// Redis Cluster hash tag: all keys of one client+endpoint land
		// in one slot, keeping MGet and scripts single-slot.
		id = "{" + id + "}"
	}
	return e.prefix + id
}
