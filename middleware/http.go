// Package middleware wires the admission engine into net/http.
//
// Per request it checks the exclusion list, derives the client identity,
// runs the configured strategy against the counter store, and either
// forwards to the downstream handler with rate headers attached or
// short-circuits with a structured 429.
//
//	mux := http.NewServeMux()
//	handler := middleware.RateLimit(engine)(mux)
//
// Framework adapters live in the ginmw, echomw, fibermw, and grpcmw
// subpackages so importing this package pulls in nothing beyond net/http.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/skanda-dev/rategate"
)

// ClientIDFunc derives a stable client identity from a request.
type ClientIDFunc func(r *http.Request) string

// Config holds the middleware configuration.
type Config struct {
	// Engine makes the admission decisions (required).
	Engine *rategate.Engine

	// ClientID overrides the identity extractor. Default: ClientIDByIP.
	ClientID ClientIDFunc

	// Detail is the human-readable string in the rejection body.
	Detail string
}

// Rejection is the JSON body of a 429 response.
type Rejection struct {
	Error      string `json:"error"`
	Detail     string `json:"detail"`
	RetryAfter int64  `json:"retryAfter"`
}

const defaultDetail = "Rate limit exceeded. Please try again later."

// RateLimit creates middleware with default settings: IP-based client
// identity and the standard rejection body.
func RateLimit(engine *rategate.Engine) func(http.Handler) http.Handler {
	return RateLimitWithConfig(Config{Engine: engine})
}

// RateLimitWithConfig creates middleware with full configuration control.
func RateLimitWithConfig(cfg Config) func(http.Handler) http.Handler {
	if cfg.Engine == nil {
		panic("rategate/middleware: Engine is required")
	}
	if cfg.ClientID == nil {
		cfg.ClientID = ClientIDByIP
	}
	if cfg.Detail == "" {
		cfg.Detail = defaultDetail
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Engine.Excluded(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			clientID := cfg.ClientID(r)
			d, rl := cfg.Engine.Check(r.Context(), r.Method, r.URL.Path, clientID)

			if !d.Allowed {
				writeRejection(w, rl, d, cfg.Detail)
				return
			}

			setRateHeaders(w.Header(), rl, d)
			next.ServeHTTP(w, r)
		})
	}
}

// ─── Client identity ─────────────────────────────────────────────────────────

// ClientIDByIP is the default identity extractor: the first hop of
// X-Forwarded-For, then X-Real-IP, then the RemoteAddr host.
func ClientIDByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}

// ClientIDByHeader returns an extractor that reads the given header.
// Useful for API key-based identity.
func ClientIDByHeader(header string) ClientIDFunc {
	return func(r *http.Request) string {
		return r.Header.Get(header)
	}
}

// ─── Response shaping ────────────────────────────────────────────────────────

func setRateHeaders(h http.Header, cfg rategate.Config, d rategate.Decision) {
	h.Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	if retry := d.RetryAfterSeconds(); retry > 0 {
		h.Set("Retry-After", strconv.FormatInt(retry, 10))
	}
}

func writeRejection(w http.ResponseWriter, cfg rategate.Config, d rategate.Decision, detail string) {
	retry := d.RetryAfterSeconds()
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Limit, 10))
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("Retry-After", strconv.FormatInt(retry, 10))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(Rejection{
		Error:      "Too many requests",
		Detail:     detail,
		RetryAfter: retry,
	})
}
