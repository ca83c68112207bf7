package rategate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/skanda-dev/rategate/store"
)

// tokenBucketIdleTTL bounds how long an idle bucket survives in the store.
// An idle bucket is fully refilled after one window anyway, so keeping it
// beyond a few windows only wastes storage.
func tokenBucketIdleTTL(window time.Duration) time.Duration {
	ttl := 10 * window
	if ttl > 600*time.Second {
		ttl = 600 * time.Second
	}
	return ttl
}

// evalTokenBucket refills a token pool at cfg.Limit/cfg.Window tokens per
// second, capped at cfg.Limit, and consumes one token per admitted request.
//
// The read-compute-write pair is not atomic: concurrent requests on the same
// key can interleave, so admission counts are approximate under contention.
// That is the documented soft-limit tradeoff; evalTokenBucketAtomic is the
// single-round-trip alternative.
func evalTokenBucket(ctx context.Context, st store.Store, key string, cfg Config, now time.Time) (Decision, error) {
	tokensKey := key + ":tokens"
	stampKey := key + ":ts"
	nowSec := float64(now.UnixNano()) / 1e9

	tokens := float64(cfg.Limit)
	if v, err := st.Get(ctx, tokensKey); err == nil {
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			tokens = f
		}
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return Decision{}, err
	}

	last := nowSec
	if v, err := st.Get(ctx, stampKey); err == nil {
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			last = f
		}
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		return Decision{}, err
	}

	rate := float64(cfg.Limit) / cfg.Window.Seconds()
	elapsed := nowSec - last
	if elapsed < 0 {
		// Clock skew between instances; never drain the bucket for it.
		elapsed = 0
	}
	tokens = math.Min(float64(cfg.Limit), tokens+elapsed*rate)

	if tokens < 1 {
		// No token consumed and no write on rejection.
		retry := time.Duration(math.Ceil((1-tokens)/rate)) * time.Second
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	tokens--
	ttl := tokenBucketIdleTTL(cfg.Window)
	p := st.Pipeline()
	p.Set(ctx, tokensKey, strconv.FormatFloat(tokens, 'f', -1, 64), ttl)
	p.Set(ctx, stampKey, strconv.FormatFloat(nowSec, 'f', -1, 64), ttl)
	if err := p.Exec(ctx); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true, Remaining: int64(math.Floor(tokens))}, nil
}

// tokenBucketScript is the atomic variant: refill, check, and consume in one
// server-side execution. State layout matches the client-side path, so the
// two variants can be mixed across instances.
const tokenBucketScript = `
local tokens_key = KEYS[1]
local stamp_key = KEYS[2]
local limit = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = tonumber(redis.call('GET', tokens_key)) or limit
local last = tonumber(redis.call('GET', stamp_key)) or now

local elapsed = now - last
if elapsed < 0 then
  elapsed = 0
end
tokens = math.min(limit, tokens + elapsed * rate)

if tokens < 1 then
  return {0, 0, math.ceil((1 - tokens) / rate)}
end

tokens = tokens - 1
redis.call('SET', tokens_key, tostring(tokens), 'EX', ttl)
redis.call('SET', stamp_key, tostring(now), 'EX', ttl)
return {1, math.floor(tokens), 0}
`

// evalTokenBucketAtomic runs the token bucket as a server-side script.
// Returns store.ErrScriptNotSupported unchanged so the caller can fall back
// to the client-side path.
func evalTokenBucketAtomic(ctx context.Context, st store.Store, key string, cfg Config, now time.Time) (Decision, error) {
	rate := float64(cfg.Limit) / cfg.Window.Seconds()
	nowSec := float64(now.UnixNano()) / 1e9
	ttlSec := int64(tokenBucketIdleTTL(cfg.Window) / time.Second)

	raw, err := st.Eval(ctx, tokenBucketScript,
		[]string{key + ":tokens", key + ":ts"},
		cfg.Limit, rate, nowSec, ttlSec,
	)
	if err != nil {
		return Decision{}, err
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 3 {
		return Decision{}, fmt.Errorf("rategate: unexpected token bucket script reply %T", raw)
	}
	allowed, _ := reply[0].(int64)
	remaining, _ := reply[1].(int64)
	retry, _ := reply[2].(int64)

	return Decision{
		Allowed:    allowed == 1,
		Remaining:  remaining,
		RetryAfter: time.Duration(retry) * time.Second,
	}, nil
}
