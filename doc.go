// Package rategate is a distributed admission-control engine: per-request
// admit/reject decisions coordinated across stateless service instances
// through a shared remote counter store.
//
// # Strategies
//
//   - Fixed Window: one counter per contiguous time slice
//   - Sliding Window: bucketed approximation of a continuously sliding window
//   - Token Bucket: continuous refill, one token per admitted request
//
// # Quick Start
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	engine, err := rategate.New(redisstore.New(client),
//	    rategate.WithDefaultConfig(rategate.Config{
//	        Limit:    100,
//	        Window:   time.Minute,
//	        Strategy: rategate.FixedWindow,
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handler := middleware.RateLimit(engine)(mux)
//
// # Overrides
//
// One override source applies per request: a method override wins over a
// path-prefix override, which wins over the default.
//
//	engine, _ := rategate.New(st,
//	    rategate.WithMethodOverride("POST", writeCfg),
//	    rategate.WithPathOverride("/api/search", searchCfg),
//	    rategate.WithExcludedPrefixes("/health", "/metrics"),
//	)
//
// # Failure policy
//
// When the counter store is unreachable the engine applies one process-wide
// policy, fail-open (default) or fail-closed, and logs a warning. No store
// error ever reaches the caller; every check converges to a Decision.
//
// Middleware adapters for net/http, Gin, Echo, Fiber, and gRPC live under
// middleware/.
package rategate
