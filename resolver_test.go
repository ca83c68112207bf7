package rategate

import (
	"testing"
	"time"
)

func cfgWithLimit(n int64) Config {
	return Config{Limit: n, Window: time.Minute, Strategy: FixedWindow}
}

func TestResolve_DefaultWhenNothingMatches(t *testing.T) {
	r := newResolver(cfgWithLimit(100), nil, nil)
	cfg, sc := r.resolve("GET", "/anything")
	if cfg.Limit != 100 || sc != scopeDefault {
		t.Errorf("got limit=%d scope=%d, want default", cfg.Limit, sc)
	}
}

func TestResolve_MethodWinsOverPath(t *testing.T) {
	r := newResolver(cfgWithLimit(100),
		map[string]Config{"POST": cfgWithLimit(2)},
		map[string]Config{"/x": cfgWithLimit(1)},
	)

	cfg, sc := r.resolve("POST", "/x")
	if cfg.Limit != 2 || sc != scopeMethod {
		t.Errorf("POST /x: got limit=%d scope=%d, want method override", cfg.Limit, sc)
	}

	cfg, sc = r.resolve("GET", "/x")
	if cfg.Limit != 1 || sc != scopePath {
		t.Errorf("GET /x: got limit=%d scope=%d, want path override", cfg.Limit, sc)
	}
}

func TestResolve_LongestPrefixWins(t *testing.T) {
	r := newResolver(cfgWithLimit(100), nil, map[string]Config{
		"/api":        cfgWithLimit(50),
		"/api/search": cfgWithLimit(5),
	})

	cfg, _ := r.resolve("GET", "/api/search/users")
	if cfg.Limit != 5 {
		t.Errorf("got limit=%d, want the narrower /api/search override", cfg.Limit)
	}

	cfg, _ = r.resolve("GET", "/api/items")
	if cfg.Limit != 50 {
		t.Errorf("got limit=%d, want the /api override", cfg.Limit)
	}
}

func TestCounterKey_NamespaceAndHash(t *testing.T) {
	e := &Engine{prefix: "ratelimit:"}
	key := e.counterKey("10.0.0.1", "/api/items")

	// md5("/api/items") is stable; the raw path is hashed, not normalized.
	want := "ratelimit:10.0.0.1:" + "c11bcff936a2d7ff8ff232de884821ab"
	if key != want {
		t.Errorf("got %q, want %q", key, want)
	}
}

func TestCounterKey_HashTag(t *testing.T) {
	e := &Engine{prefix: "rl:", hashTag: true}
	key := e.counterKey("10.0.0.1", "/a")
	if key[:4] != "rl:{" || key[len(key)-1] != '}' {
		t.Errorf("hash tag braces missing: %q", key)
	}
}
