package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const rateLimitPrefix = "rl:api"

// NewLimiter builds a per-key limiter for a rate such as "100-M". With a Redis
// client the counters are shared between instances, otherwise kept in memory.
func NewLimiter(formatted string, cache *redis.Client) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}

	var store limiter.Store
	if cache != nil {
		store, err = sredis.NewStoreWithOptions(cache, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	return limiter.New(store, rate), nil
}

// RateLimit rejects clients that exceed the limiter's rate, keyed by IP.
// Store failures let the request through.
func RateLimit(l *limiter.Limiter, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		ctx, err := l.Get(c.UserContext(), ip)
		if err != nil {
			logger.Warn("rate limit check failed", slog.String("ip", ip), slog.Any("error", err))
			return c.Next() // fail-open on store errors
		}

		c.Set("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			logger.Warn("rate limit exceeded", slog.String("ip", ip), slog.Int64("limit", ctx.Limit))
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
