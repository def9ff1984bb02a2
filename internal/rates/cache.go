package rates

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const cachePrefix = "rates:v1:"

type cachedRate struct {
	Code       string          `json:"code"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// CachedSource memoises an upstream Source in Redis. Cache failures are logged
// and the upstream answers instead.
type CachedSource struct {
	next   Source
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps next with a Redis cache entry per filter.
func NewCachedSource(next Source, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{next: next, cache: cache, ttl: ttl, logger: logger}
}

// ConversionRates serves filter from Redis when present, otherwise asks the
// upstream and stores a non-empty answer.
func (s *CachedSource) ConversionRates(ctx context.Context, filter string) ([]Rate, error) {
	key := cachePrefix + filter

	raw, err := s.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var stored []cachedRate
		if err := json.Unmarshal(raw, &stored); err == nil {
			out := make([]Rate, 0, len(stored))
			for _, r := range stored {
				out = append(out, Rate{Code: r.Code, Multiplier: r.Multiplier})
			}
			return out, nil
		}
		s.logger.Warn("discarding undecodable cached rates", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("rates cache lookup failed", slog.String("key", key), slog.Any("error", err))
	}

	rates, err := s.next.ConversionRates(ctx, filter)
	if err != nil || len(rates) == 0 {
		return rates, err
	}

	stored := make([]cachedRate, 0, len(rates))
	for _, r := range rates {
		stored = append(stored, cachedRate{Code: r.Code, Multiplier: r.Multiplier})
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		s.logger.Warn("encode rates for cache", slog.Any("error", err))
		return rates, nil
	}
	if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("rates cache store failed", slog.String("key", key), slog.Any("error", err))
	}
	return rates, nil
}
