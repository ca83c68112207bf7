// Package echomw provides Echo middleware for the admission engine.
//
// Separated from the middleware package so that importing the plain HTTP
// middleware does not pull in github.com/labstack/echo.
//
//	engine, _ := rategate.New(redisstore.New(client))
//	e := echo.New()
//	e.Use(echomw.RateLimit(engine))
package echomw

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/skanda-dev/rategate"
	"github.com/skanda-dev/rategate/middleware"
)

// ClientIDFunc derives the client identity from an Echo context.
type ClientIDFunc func(c echo.Context) string

// Config holds the middleware configuration.
type Config struct {
	// Engine makes the admission decisions (required).
	Engine *rategate.Engine

	// ClientID overrides the identity extractor.
	// Default: Echo's RealIP(), which honors forwarding headers.
	ClientID ClientIDFunc

	// Detail is the human-readable string in the rejection body.
	Detail string
}

// RateLimit creates Echo middleware with default settings.
func RateLimit(engine *rategate.Engine) echo.MiddlewareFunc {
	return RateLimitWithConfig(Config{Engine: engine})
}

// RateLimitWithConfig creates Echo middleware with full configuration control.
func RateLimitWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Engine == nil {
		panic("rategate/echomw: Engine is required")
	}
	if cfg.ClientID == nil {
		cfg.ClientID = func(c echo.Context) string { return c.RealIP() }
	}
	if cfg.Detail == "" {
		cfg.Detail = "Rate limit exceeded. Please try again later."
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if cfg.Engine.Excluded(req.URL.Path) {
				return next(c)
			}

			d, rl := cfg.Engine.Check(req.Context(), req.Method, req.URL.Path, cfg.ClientID(c))

			h := c.Response().Header()
			retry := d.RetryAfterSeconds()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(rl.Limit, 10))

			if !d.Allowed {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.FormatInt(retry, 10))
				return c.JSON(http.StatusTooManyRequests, middleware.Rejection{
					Error:      "Too many requests",
					Detail:     cfg.Detail,
					RetryAfter: retry,
				})
			}

			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if retry > 0 {
				h.Set("Retry-After", strconv.FormatInt(retry, 10))
			}
			return next(c)
		}
	}
}
