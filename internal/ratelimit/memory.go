package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is a process-local token-bucket store. Each key refills at
// max/window and holds at most max tokens.
type Memory struct {
	mu        sync.Mutex
	limit     rate.Limit
	max       int
	window    time.Duration
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemory returns a Memory store allowing max requests per window.
func NewMemory(max int, window time.Duration) *Memory {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Memory{
		limit:   rate.Limit(float64(max) / window.Seconds()),
		max:     max,
		window:  window,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	c, ok := m.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(m.limit, m.max)}
		m.clients[key] = c
	}
	c.lastSeen = now

	d := Decision{Limit: m.max}
	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		d.RetryAfter = delay
		return d, nil
	}
	d.Allowed = true
	d.Remaining = int(c.limiter.TokensAt(now))
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

// sweep drops clients idle for a full window; their buckets are full again.
func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.window {
		return
	}
	for key, c := range m.clients {
		if now.Sub(c.lastSeen) >= m.window {
			delete(m.clients, key)
		}
	}
	m.lastSweep = now
}
