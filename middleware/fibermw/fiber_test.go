package fibermw_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/skanda-dev/rategate"
	"github.com/skanda-dev/rategate/middleware/fibermw"
	"github.com/skanda-dev/rategate/store/memory"
)

func newApp(t *testing.T, opts ...rategate.Option) *fiber.App {
	t.Helper()
	engine, err := rategate.New(memory.New(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	app := fiber.New()
	app.Use(fibermw.RateLimit(engine))
	app.Get("/api/data", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func doReq(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRateLimit_AllowsThenRejects(t *testing.T) {
	app := newApp(t, rategate.WithDefaultConfig(rategate.Config{
		Limit: 2, Window: time.Minute, Strategy: rategate.FixedWindow,
	}))

	for i := 0; i < 2; i++ {
		resp := doReq(t, app, "/api/data")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
		if resp.Header.Get("X-RateLimit-Limit") != "2" {
			t.Errorf("request %d: expected limit=2, got %s", i+1, resp.Header.Get("X-RateLimit-Limit"))
		}
	}

	resp := doReq(t, app, "/api/data")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimit_ExcludedPath(t *testing.T) {
	app := newApp(t,
		rategate.WithDefaultConfig(rategate.Config{Limit: 1, Window: time.Minute, Strategy: rategate.FixedWindow}),
		rategate.WithExcludedPrefixes("/health"),
	)

	for i := 0; i < 5; i++ {
		resp := doReq(t, app, "/health")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("excluded request %d: got %d", i+1, resp.StatusCode)
		}
		if resp.Header.Get("X-RateLimit-Limit") != "" {
			t.Error("excluded paths must not carry rate headers")
		}
	}
}
