// Package ginmw provides Gin middleware for the admission engine.
//
// Separated from the middleware package so that importing the plain HTTP
// middleware does not pull in github.com/gin-gonic/gin.
//
//	engine, _ := rategate.New(redisstore.New(client))
//	r := gin.Default()
//	r.Use(ginmw.RateLimit(engine))
package ginmw

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skanda-dev/rategate"
	"github.com/skanda-dev/rategate/middleware"
)

// ClientIDFunc derives the client identity from a Gin context.
type ClientIDFunc func(c *gin.Context) string

// Config holds the middleware configuration.
type Config struct {
	// Engine makes the admission decisions (required).
	Engine *rategate.Engine

	// ClientID overrides the identity extractor.
	// Default: Gin's ClientIP(), which respects trusted proxies.
	ClientID ClientIDFunc

	// Detail is the human-readable string in the rejection body.
	Detail string
}

// RateLimit creates Gin middleware with default settings.
func RateLimit(engine *rategate.Engine) gin.HandlerFunc {
	return RateLimitWithConfig(Config{Engine: engine})
}

// RateLimitWithConfig creates Gin middleware with full configuration control.
func RateLimitWithConfig(cfg Config) gin.HandlerFunc {
	if cfg.Engine == nil {
		panic("rategate/ginmw: Engine is required")
	}
	if cfg.ClientID == nil {
		cfg.ClientID = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Detail == "" {
		cfg.Detail = "Rate limit exceeded. Please try again later."
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if cfg.Engine.Excluded(path) {
			c.Next()
			return
		}

		d, rl := cfg.Engine.Check(c.Request.Context(), c.Request.Method, path, cfg.ClientID(c))

		retry := d.RetryAfterSeconds()
		if !d.Allowed {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(rl.Limit, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.FormatInt(retry, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, middleware.Rejection{
				Error:      "Too many requests",
				Detail:     cfg.Detail,
				RetryAfter: retry,
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rl.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if retry > 0 {
			c.Header("Retry-After", strconv.FormatInt(retry, 10))
		}
		c.Next()
	}
}
