// Package confload reads engine construction-time configuration from a
// file (YAML, JSON, or TOML, whatever viper recognizes) with environment
// overrides under the RATEGATE_ prefix.
//
//	settings, err := confload.Load("ratelimit.yaml")
//	opts, err := settings.Options()
//	st, err := redisstore.Dial(ctx, settings.Redis.Addr(), settings.Redis.DB, settings.Redis.Password)
//	engine, err := rategate.New(st, opts...)
//
// Windows are expressed in whole seconds, matching the strategy arithmetic.
package confload

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/skanda-dev/rategate"
)

// LimitSpec is one rate limit in file form.
type LimitSpec struct {
	Limit       int64  `mapstructure:"limit"`
	Window      int64  `mapstructure:"window"`
	Strategy    string `mapstructure:"strategy"`
	BucketCount int    `mapstructure:"bucket_count"`
}

// RedisSpec holds the counter store connection parameters.
type RedisSpec struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// Addr returns host:port for dialing.
func (r RedisSpec) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Settings is the full file shape.
type Settings struct {
	Default           LimitSpec            `mapstructure:"default"`
	Endpoints         map[string]LimitSpec `mapstructure:"endpoints"`
	Methods           map[string]LimitSpec `mapstructure:"methods"`
	Excluded          []string             `mapstructure:"excluded"`
	KeyPrefix         string               `mapstructure:"key_prefix"`
	FailurePolicy     string               `mapstructure:"failure_policy"`
	AtomicTokenBucket bool                 `mapstructure:"atomic_token_bucket"`
	Redis             RedisSpec            `mapstructure:"redis"`
}

// Load reads path and returns the parsed Settings. Environment variables
// like RATEGATE_REDIS_HOST override file values.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("RATEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("default.limit", 100)
	v.SetDefault("default.window", 60)
	v.SetDefault("default.strategy", "sliding_window")
	v.SetDefault("default.bucket_count", 6)
	v.SetDefault("key_prefix", "ratelimit:")
	v.SetDefault("failure_policy", "open")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("confload: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("confload: %w", err)
	}
	return &s, nil
}

// Options converts the settings into engine options. Strategy names and the
// failure policy are validated here; limit/window bounds are validated by
// rategate.New.
func (s *Settings) Options() ([]rategate.Option, error) {
	def, err := s.Default.config()
	if err != nil {
		return nil, err
	}
	opts := []rategate.Option{
		rategate.WithDefaultConfig(def),
		rategate.WithKeyPrefix(s.KeyPrefix),
	}

	for prefix, spec := range s.Endpoints {
		cfg, err := spec.config()
		if err != nil {
			return nil, err
		}
		opts = append(opts, rategate.WithPathOverride(prefix, cfg))
	}
	for method, spec := range s.Methods {
		cfg, err := spec.config()
		if err != nil {
			return nil, err
		}
		opts = append(opts, rategate.WithMethodOverride(strings.ToUpper(method), cfg))
	}
	if len(s.Excluded) > 0 {
		opts = append(opts, rategate.WithExcludedPrefixes(s.Excluded...))
	}

	switch s.FailurePolicy {
	case "", "open":
		opts = append(opts, rategate.WithFailurePolicy(rategate.FailOpen))
	case "closed":
		opts = append(opts, rategate.WithFailurePolicy(rategate.FailClosed))
	default:
		return nil, fmt.Errorf("confload: unknown failure_policy %q", s.FailurePolicy)
	}

	if s.AtomicTokenBucket {
		opts = append(opts, rategate.WithAtomicTokenBucket())
	}
	return opts, nil
}

func (l LimitSpec) config() (rategate.Config, error) {
	strategy, err := rategate.ParseStrategy(l.Strategy)
	if err != nil {
		return rategate.Config{}, err
	}
	return rategate.Config{
		Limit:       l.Limit,
		Window:      time.Duration(l.Window) * time.Second,
		Strategy:    strategy,
		BucketCount: l.BucketCount,
	}, nil
}
