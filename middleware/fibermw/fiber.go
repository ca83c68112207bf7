// Package fibermw provides Fiber middleware for the admission engine.
//
// Separated from the middleware package so that importing the plain HTTP
// middleware does not pull in github.com/gofiber/fiber.
//
//	engine, _ := rategate.New(redisstore.New(client))
//	app := fiber.New()
//	app.Use(fibermw.RateLimit(engine))
package fibermw

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/skanda-dev/rategate"
	"github.com/skanda-dev/rategate/middleware"
)

// ClientIDFunc derives the client identity from a Fiber context.
type ClientIDFunc func(c *fiber.Ctx) string

// Config holds the middleware configuration.
type Config struct {
	// Engine makes the admission decisions (required).
	Engine *rategate.Engine

	// ClientID overrides the identity extractor.
	// Default: Fiber's IP(), which respects proxy headers.
	ClientID ClientIDFunc

	// Detail is the human-readable string in the rejection body.
	Detail string
}

// RateLimit creates Fiber middleware with default settings.
func RateLimit(engine *rategate.Engine) fiber.Handler {
	return RateLimitWithConfig(Config{Engine: engine})
}

// RateLimitWithConfig creates Fiber middleware with full configuration control.
func RateLimitWithConfig(cfg Config) fiber.Handler {
	if cfg.Engine == nil {
		panic("rategate/fibermw: Engine is required")
	}
	if cfg.ClientID == nil {
		cfg.ClientID = func(c *fiber.Ctx) string { return c.IP() }
	}
	if cfg.Detail == "" {
		cfg.Detail = "Rate limit exceeded. Please try again later."
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if cfg.Engine.Excluded(path) {
			return c.Next()
		}

		d, rl := cfg.Engine.Check(c.UserContext(), c.Method(), path, cfg.ClientID(c))

		retry := d.RetryAfterSeconds()
		c.Set("X-RateLimit-Limit", strconv.FormatInt(rl.Limit, 10))

		if !d.Allowed {
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", strconv.FormatInt(retry, 10))
			return c.Status(fiber.StatusTooManyRequests).JSON(middleware.Rejection{
				Error:      "Too many requests",
				Detail:     cfg.Detail,
				RetryAfter: retry,
			})
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if retry > 0 {
			c.Set("Retry-After", strconv.FormatInt(retry, 10))
		}
		return c.Next()
	}
}
