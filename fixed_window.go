package rategate

import (
	"context"

	"github.com/skanda-dev/rategate/store"
)

// evalFixedWindow counts events in contiguous slices of cfg.Window. The
// first increment of a slice establishes its boundary by setting the TTL;
// the gap between increment and expire is an accepted small race (a counter
// can outlive its intended expiry if the process dies in between).
func evalFixedWindow(ctx context.Context, st store.Store, key string, cfg Config) (Decision, error) {
	count, err := st.Incr(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := st.Expire(ctx, key, cfg.Window); err != nil {
			return Decision{}, err
		}
	}

	if count > cfg.Limit {
		retry := cfg.Window
		if ttl, err := st.TTL(ctx, key); err == nil && ttl > 0 {
			retry = ttl
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	return Decision{Allowed: true, Remaining: cfg.Limit - count}, nil
}
