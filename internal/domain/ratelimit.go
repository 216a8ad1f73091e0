package domain

import (
	"context"
	"time"
)

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// ReplayCache remembers nonces for their validity window. Remember returns
// false when the nonce was already seen, which signals a replayed request.
type ReplayCache interface {
	Remember(ctx context.Context, machineID, nonce string, ttl time.Duration) (bool, error)
}
