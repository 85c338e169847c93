package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/trend-service/internal/entity"
	"github.com/user/trend-service/pkg/utils"
)

const rateLimitPrefix = "rate_limit:"

// RateLimitRepoImpl provides a per-user daily request counter backed by
// Redis. It fails open: an unconfigured or unreachable store admits the
// request and logs instead of blocking the user.
type RateLimitRepoImpl struct {
	client *redis.Client
	limit  int
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitRepo creates a new RateLimitRepoImpl. client may be nil when
// rate limiting is not configured.
func NewRateLimitRepo(client *redis.Client, limit int, logger *slog.Logger) *RateLimitRepoImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitRepoImpl{
		client: client,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// generateKey creates a consistent Redis key for one user-day pair. The
// identifier is hashed so arbitrary header values stay safe as key material.
func (r *RateLimitRepoImpl) generateKey(identifier string, day time.Time) string {
	return fmt.Sprintf("%s%s:%s", rateLimitPrefix, utils.HashIdentifier(identifier), utils.DayKey(day))
}

// CheckAndConsume checks the caller's counter for the current day and, when
// under the limit, increments it. The key expires at the end of the UTC day.
func (r *RateLimitRepoImpl) CheckAndConsume(ctx context.Context, identifier string) (*entity.RateLimitResult, error) {
	now := r.now()
	resetAt := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	if r.client == nil {
		r.logger.Warn("rate limiting is disabled: no store configured")
		return r.openResult(resetAt), nil
	}

	key := r.generateKey(identifier, now)

	current, err := r.client.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		r.logger.Error("rate limit check failed, admitting request", "error", err)
		return r.openResult(resetAt), nil
	}

	result := &entity.RateLimitResult{
		Admitted:  current < r.limit,
		Limit:     r.limit,
		Remaining: max(0, r.limit-current),
		ResetAt:   resetAt,
	}
	if !result.Admitted {
		return result, nil
	}

	if err := r.client.Incr(ctx, key).Err(); err != nil {
		r.logger.Error("rate limit increment failed", "key", key, "error", err)
		return result, nil
	}

	// Only set the expiry when the key has none yet, so the window stays
	// anchored to the first request of the day.
	ttl, err := r.client.TTL(ctx, key).Result()
	if err == nil && ttl < 0 {
		if err := r.client.Expire(ctx, key, utils.SecondsUntilEndOfDay(now)).Err(); err != nil {
			r.logger.Warn("failed to set rate limit key expiry", "key", key, "error", err)
		}
	}

	return result, nil
}

// openResult is the fail-open answer used when the store cannot be consulted.
func (r *RateLimitRepoImpl) openResult(resetAt time.Time) *entity.RateLimitResult {
	return &entity.RateLimitResult{
		Admitted:  true,
		Limit:     r.limit,
		Remaining: r.limit - 1,
		ResetAt:   resetAt,
	}
}
