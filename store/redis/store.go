// Package redis provides the Redis-backed store.Store used for coordinating
// admission state across stateless service instances.
//
// It wraps redis.UniversalClient, so standalone Redis, Redis Cluster, and
// Redis Sentinel all work unchanged:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/skanda-dev/rategate/store"
)

// Store implements store.Store backed by Redis.
type Store struct {
	client goredis.UniversalClient
}

// New creates a Redis-backed Store from any UniversalClient
// (standalone *redis.Client, *redis.ClusterClient, or *redis.Ring).
func New(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

// Dial connects to a single Redis host and returns a Store over it.
// The connection is verified with a PING before returning.
func Dial(ctx context.Context, addr string, db int, password string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Store{client: client}, nil
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.UniversalClient {
	return s.client
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", store.ErrKeyNotFound
	}
	return val, err
}

func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) MGet(ctx context.Context, keys ...string) ([]string, error) {
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	vals := make([]string, len(raw))
	for i, v := range raw {
		if sv, ok := v.(string); ok {
			vals[i] = sv
		}
	}
	return vals, nil
}

func (s *Store) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	return s.client.Eval(ctx, script, keys, args...).Result()
}

func (s *Store) Pipeline() store.Pipeline {
	return &pipeline{pipe: s.client.Pipeline()}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─── Pipeline ────────────────────────────────────────────────────────────────

type pipeline struct {
	pipe goredis.Pipeliner
}

func (p *pipeline) Incr(ctx context.Context, key string) {
	p.pipe.Incr(ctx, key)
}

func (p *pipeline) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	p.pipe.Set(ctx, key, value, ttl)
}

func (p *pipeline) Expire(ctx context.Context, key string, ttl time.Duration) {
	p.pipe.Expire(ctx, key, ttl)
}

func (p *pipeline) Exec(ctx context.Context) error {
	_, err := p.pipe.Exec(ctx)
	return err
}
