package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	pendingMarker        = "__pending__"
	idempotencyOpTimeout = 2 * time.Second
)

// replayedResponse is the JSON document kept in Redis for a completed request.
type replayedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency makes money-moving requests safe to retry. A POST carrying an
// Idempotency-Key is executed once per (path, key): the key is reserved with
// SET NX before the handler runs, a concurrent retry gets 409, and a later
// retry receives the first response verbatim. Handler errors release the
// reservation so the client may try again. Safe methods and requests without
// the header pass straight through.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}

		storeKey := idempotencyPrefix + c.Path() + ":" + key
		log := logger.With(slog.String("idempotency_key", key), slog.String("path", c.Path()))

		ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
		defer cancel()

		raw, err := cache.Get(ctx, storeKey).Result()
		switch {
		case err == nil:
			return replay(c, raw, log)
		case !errors.Is(err, redis.Nil):
			log.Error("idempotency: lookup", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store unavailable")
		}

		reserved, err := cache.SetNX(ctx, storeKey, pendingMarker, ttl).Result()
		if err != nil {
			log.Error("idempotency: reserve", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store unavailable")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "request with this idempotency key is in progress")
		}

		if err := c.Next(); err != nil {
			release(cache, storeKey)
			return err
		}

		payload, err := json.Marshal(snapshot(c))
		if err != nil {
			log.Error("idempotency: encode response", slog.Any("error", err))
			release(cache, storeKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store unavailable")
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, storeKey, payload, ttl).Err(); err != nil {
			log.Error("idempotency: persist response", slog.Any("error", err))
			release(cache, storeKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store unavailable")
		}
		return nil
	}
}

// replay writes a stored response. Request id and rate limit headers belong to
// the current request and are left as set upstream.
func replay(c *fiber.Ctx, raw string, log *slog.Logger) error {
	if raw == pendingMarker {
		return fiber.NewError(fiber.StatusConflict, "request with this idempotency key is in progress")
	}

	var stored replayedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Warn("idempotency: decode stored response", slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "idempotency key already used")
	}

	for name, value := range stored.Headers {
		lower := strings.ToLower(name)
		if lower == strings.ToLower(fiber.HeaderContentLength) ||
			lower == strings.ToLower(requestIDHeader) ||
			strings.HasPrefix(lower, "x-ratelimit-") {
			continue
		}
		c.Set(name, value)
	}
	return c.Status(stored.Status).SendString(stored.Body)
}

func snapshot(c *fiber.Ctx) replayedResponse {
	out := replayedResponse{
		Status:  c.Response().StatusCode(),
		Body:    string(c.Response().Body()),
		Headers: map[string]string{},
	}
	c.Response().Header.VisitAll(func(k, v []byte) {
		out.Headers[string(k)] = string(v)
	})
	return out
}

func release(cache *redis.Client, storeKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
	defer cancel()
	cache.Del(ctx, storeKey)
}
