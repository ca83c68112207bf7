package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skanda-dev/rategate"
	"github.com/skanda-dev/rategate/middleware"
	"github.com/skanda-dev/rategate/store/memory"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func newEngine(t *testing.T, opts ...rategate.Option) *rategate.Engine {
	t.Helper()
	engine, err := rategate.New(memory.New(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

func fixedCfg(limit int64) rategate.Config {
	return rategate.Config{Limit: limit, Window: time.Minute, Strategy: rategate.FixedWindow}
}

func TestRateLimit_AllowsWithinLimit(t *testing.T) {
	engine := newEngine(t, rategate.WithDefaultConfig(fixedCfg(5)))
	handler := middleware.RateLimit(engine)(okHandler())

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "5" {
			t.Errorf("request %d: expected X-RateLimit-Limit=5, got %s", i+1, rr.Header().Get("X-RateLimit-Limit"))
		}
	}
}

func TestRateLimit_RejectsWithStructuredBody(t *testing.T) {
	engine := newEngine(t, rategate.WithDefaultConfig(fixedCfg(1)))
	handler := middleware.RateLimit(engine)(okHandler())

	req := httptest.NewRequest("GET", "/api/test", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rr := httptest.NewRecorder()
	downstream := false
	wrapped := middleware.RateLimit(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		downstream = true
	}))
	wrapped.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if downstream {
		t.Error("downstream handler must not run on rejection")
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected Remaining=0, got %s", rr.Header().Get("X-RateLimit-Remaining"))
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("unexpected content type %s", ct)
	}

	var body middleware.Rejection
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Error != "Too many requests" {
		t.Errorf("unexpected error field %q", body.Error)
	}
	if body.Detail == "" {
		t.Error("expected a detail message")
	}
	if body.RetryAfter <= 0 {
		t.Errorf("expected positive retryAfter, got %d", body.RetryAfter)
	}
}

func TestRateLimit_ExcludedPathSkipsCountingAndHeaders(t *testing.T) {
	engine := newEngine(t,
		rategate.WithDefaultConfig(fixedCfg(1)),
		rategate.WithExcludedPrefixes("/health"),
	)
	handler := middleware.RateLimit(engine)(okHandler())

	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health/live", nil)
		req.RemoteAddr = "10.0.0.1:9999"
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("excluded request %d: expected 200, got %d", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "" {
			t.Error("excluded paths must not carry rate headers")
		}
	}
}

func TestRateLimit_MethodOverrideGovernsEndToEnd(t *testing.T) {
	engine := newEngine(t,
		rategate.WithDefaultConfig(fixedCfg(100)),
		rategate.WithPathOverride("/x", fixedCfg(1)),
		rategate.WithMethodOverride("POST", fixedCfg(2)),
	)
	handler := middleware.RateLimit(engine)(okHandler())

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1111"
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := do("POST"); rr.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("POST /x should use the method override, got limit %s", rr.Header().Get("X-RateLimit-Limit"))
	}
	if rr := do("GET"); rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("GET /x should use the path override, got limit %s", rr.Header().Get("X-RateLimit-Limit"))
	}
}

func TestClientIDByIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.168.1.5:1234", nil, "192.168.1.5"},
		{"x-forwarded-for first hop", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"x-real-ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"forwarded-for wins over real-ip", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"}, "203.0.113.7"},
		{"bare addr without port", "192.168.1.9", nil, "192.168.1.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := middleware.ClientIDByIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimit_CustomClientID(t *testing.T) {
	engine := newEngine(t, rategate.WithDefaultConfig(fixedCfg(1)))
	handler := middleware.RateLimitWithConfig(middleware.Config{
		Engine:   engine,
		ClientID: middleware.ClientIDByHeader("X-API-Key"),
	})(okHandler())

	do := func(key string) int {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api", nil)
		req.Header.Set("X-API-Key", key)
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if do("alpha") != http.StatusOK {
		t.Fatal("first request for key alpha should pass")
	}
	if do("alpha") != http.StatusTooManyRequests {
		t.Error("second request for key alpha should be limited")
	}
	if do("beta") != http.StatusOK {
		t.Error("key beta has its own budget")
	}
}
