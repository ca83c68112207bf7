package rategate

import (
	"time"

	"go.uber.org/zap"
)

// settings collects construction-time options before validation.
type settings struct {
	def      Config
	methods  map[string]Config
	paths    map[string]Config
	excluded []string
	prefix   string
	policy   FailurePolicy
	hashTag  bool
	atomicTB bool
	now      func() time.Time
	log      *zap.Logger
	obs      Observer
}

// Option configures an Engine at construction time.
type Option func(*settings)

// WithDefaultConfig sets the engine-wide fallback Config.
func WithDefaultConfig(cfg Config) Option {
	return func(s *settings) { s.def = cfg }
}

// WithPathOverride applies cfg to every request whose path starts with
// prefix. When several prefixes match, the longest one wins.
func WithPathOverride(prefix string, cfg Config) Option {
	return func(s *settings) { s.paths[prefix] = cfg }
}

// WithMethodOverride applies cfg to every request with the given HTTP
// method (uppercase). A method override wins over any path override.
func WithMethodOverride(method string, cfg Config) Option {
	return func(s *settings) { s.methods[method] = cfg }
}

// WithExcludedPrefixes exempts paths starting with any of the given
// prefixes from rate limiting entirely: no counting, no headers.
func WithExcludedPrefixes(prefixes ...string) Option {
	return func(s *settings) { s.excluded = append(s.excluded, prefixes...) }
}

// WithKeyPrefix sets the namespace prepended to every store key.
// Default "ratelimit:".
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = prefix }
}

// WithFailurePolicy sets the outcome applied when the store is unreachable.
// Default FailOpen.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(s *settings) { s.policy = p }
}

// WithHashTag wraps the client part of every key in Redis Cluster hash-tag
// braces so all keys of one client+endpoint hash to one slot.
func WithHashTag() Option {
	return func(s *settings) { s.hashTag = true }
}

// WithAtomicTokenBucket runs the token bucket as a server-side script
// (one atomic round trip) when the store supports it. The client-side
// read-compute-write path remains the fallback and the default.
func WithAtomicTokenBucket() Option {
	return func(s *settings) { s.atomicTB = true }
}

// WithClock replaces the engine's wall clock. Tests inject a fake clock for
// deterministic window arithmetic.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLogger sets the logger for construction and store-failure diagnostics.
// Default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithObserver attaches an instrumentation hook (see metrics.Collector).
func WithObserver(obs Observer) Option {
	return func(s *settings) { s.obs = obs }
}
