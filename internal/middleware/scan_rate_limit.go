package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ScanRateLimit caps admission scans per wallet (falling back to the client
// IP) within a sliding window, using Redis if available. A rogue device
// hammering a gate burns through its limit before it can drain a wallet.
func ScanRateLimit(cache *redis.Client, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			WalletID string `json:"wallet_id"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.WalletID)
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:scan:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, window)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(max) {
			return fiber.NewError(http.StatusTooManyRequests, "too many scans, slow down")
		}
		return c.Next()
	}
}
