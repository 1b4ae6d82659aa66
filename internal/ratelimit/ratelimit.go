// Package ratelimit decides whether a client may make another request in
// the current window. Stores are safe for concurrent use.
package ratelimit

import (
	"context"
	"time"
)

// Defaults match a budget of 100 requests every 15 minutes per client.
const (
	DefaultWindow = 15 * time.Minute
	DefaultMax    = 100
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store counts requests per key.
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
