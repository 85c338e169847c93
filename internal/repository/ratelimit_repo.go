package repository

import (
	"context"

	"github.com/user/trend-service/internal/entity"
)

// RateLimitRepository defines the contract for the per-user daily request
// counter. Implementations must fail open: if the backing store is
// unreachable or unconfigured the check admits the request.
type RateLimitRepository interface {
	// CheckAndConsume checks the caller's counter for the current day and,
	// when under the limit, consumes one unit.
	CheckAndConsume(ctx context.Context, identifier string) (*entity.RateLimitResult, error)
}
