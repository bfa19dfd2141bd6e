package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestScanRateLimitBlocksAfterMax(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(ScanRateLimit(cache, 3, time.Minute))
	app.Post("/admissions", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	scan := func() int {
		req := httptest.NewRequest(fiber.MethodPost, "/admissions", strings.NewReader(`{"wallet_id":"wallet-1"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < 3; i++ {
		if code := scan(); code != fiber.StatusOK {
			t.Fatalf("scan %d: expected %d got %d", i+1, fiber.StatusOK, code)
		}
	}
	if code := scan(); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, code)
	}

	// A different wallet keeps its own counter.
	req := httptest.NewRequest(fiber.MethodPost, "/admissions", strings.NewReader(`{"wallet_id":"wallet-2"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
}

func TestScanRateLimitNoopWithoutCache(t *testing.T) {
	app := fiber.New()
	app.Use(ScanRateLimit(nil, 1, time.Minute))
	app.Post("/admissions", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/admissions", strings.NewReader(`{"wallet_id":"wallet-1"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
		}
	}
}
