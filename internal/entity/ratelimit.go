package entity

import "time"

// RateLimitResult is the outcome of a daily rate-limit check.
type RateLimitResult struct {
	Admitted  bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}
