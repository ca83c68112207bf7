package rategate

import (
	"fmt"
	"time"
)

// StrategyKind selects the admission algorithm for a Config.
// The set is closed: dispatch is an exhaustive switch, not open registration.
type StrategyKind int

const (
	// FixedWindow counts events in contiguous, non-overlapping slices of
	// length Window.
	FixedWindow StrategyKind = iota

	// SlidingWindow approximates a continuously sliding window by summing
	// counts across the most recent BucketCount sub-slices.
	SlidingWindow

	// TokenBucket admits requests by consuming tokens from a pool that
	// refills continuously at Limit/Window tokens per second.
	TokenBucket
)

// String returns the wire/config name of the strategy.
func (s StrategyKind) String() string {
	switch s {
	case FixedWindow:
		return "fixed_window"
	case SlidingWindow:
		return "sliding_window"
	case TokenBucket:
		return "token_bucket"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy converts a config-file strategy name into a StrategyKind.
func ParseStrategy(name string) (StrategyKind, error) {
	switch name {
	case "fixed_window":
		return FixedWindow, nil
	case "sliding_window":
		return SlidingWindow, nil
	case "token_bucket":
		return TokenBucket, nil
	}
	return 0, &ConfigError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", name)}
}

// Config holds the admission parameters for one scope (default, a path
// prefix, or an HTTP method). Configs are value types and never mutate
// after the engine is constructed.
type Config struct {
	// Limit is the maximum number of admitted events per Window.
	Limit int64

	// Window is the limiting period. Must be at least one second;
	// sub-second precision is not supported by the counter store TTLs.
	Window time.Duration

	// Strategy selects the admission algorithm.
	Strategy StrategyKind

	// BucketCount is the number of sub-slices a sliding window is divided
	// into. Higher values track the window more precisely at the cost of
	// more keys in the store. Ignored by the other strategies.
	BucketCount int
}

// DefaultConfig returns the engine-wide fallback: 100 requests per minute,
// sliding window with 10-second buckets.
func DefaultConfig() Config {
	return Config{
		Limit:       100,
		Window:      time.Minute,
		Strategy:    SlidingWindow,
		BucketCount: 6,
	}
}

// validate reports the first construction-time fault in c. scope names the
// override the config came from, for the error message.
func (c Config) validate(scope string) error {
	if c.Limit < 1 {
		return &ConfigError{Field: "limit", Scope: scope, Reason: fmt.Sprintf("must be >= 1, got %d", c.Limit)}
	}
	if c.Window < time.Second {
		return &ConfigError{Field: "window", Scope: scope, Reason: fmt.Sprintf("must be >= 1s, got %s", c.Window)}
	}
	if c.Strategy == SlidingWindow && c.BucketCount < 1 {
		return &ConfigError{Field: "bucketCount", Scope: scope, Reason: fmt.Sprintf("must be >= 1, got %d", c.BucketCount)}
	}
	return nil
}

// ConfigError reports an invalid construction-time parameter. It is fatal:
// New refuses to build an engine over a bad config.
type ConfigError struct {
	Field  string
	Scope  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("rategate: invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("rategate: invalid %s for %s: %s", e.Field, e.Scope, e.Reason)
}
