package rategate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/skanda-dev/rategate/store"
)

// evalSlidingWindow approximates a continuously sliding window by summing
// the cfg.BucketCount most recent sub-slice counters. Buckets are keyed by
// their absolute index (unix seconds / bucket size), so all instances agree
// on bucket boundaries. Bucket TTL is 2x the window, enough to cover the
// full lookback even for the oldest contributing bucket.
func evalSlidingWindow(ctx context.Context, st store.Store, key string, cfg Config, now time.Time) (Decision, error) {
	windowSec := int64(cfg.Window / time.Second)
	bucketSec := windowSec / int64(cfg.BucketCount)
	if bucketSec < 1 {
		bucketSec = 1
	}
	current := now.Unix() / bucketSec

	p := st.Pipeline()
	p.Incr(ctx, bucketKey(key, current))
	p.Expire(ctx, bucketKey(key, current), 2*cfg.Window)
	if err := p.Exec(ctx); err != nil {
		return Decision{}, err
	}

	keys := make([]string, 0, cfg.BucketCount)
	for i := current - int64(cfg.BucketCount) + 1; i <= current; i++ {
		keys = append(keys, bucketKey(key, i))
	}
	vals, err := st.MGet(ctx, keys...)
	if err != nil {
		return Decision{}, err
	}

	var total int64
	for _, v := range vals {
		if v == "" {
			continue
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			total += n
		}
	}

	if total > cfg.Limit {
		// Approximation: the oldest counted bucket rolls out of the
		// window after one bucket duration.
		return Decision{Allowed: false, RetryAfter: time.Duration(bucketSec) * time.Second}, nil
	}

	return Decision{Allowed: true, Remaining: cfg.Limit - total}, nil
}

func bucketKey(key string, index int64) string {
	return fmt.Sprintf("%s:%d", key, index)
}
