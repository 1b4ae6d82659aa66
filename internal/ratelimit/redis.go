package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Redis is a fixed-window counter shared by every API replica.
type Redis struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
	now    func() time.Time
}

// NewRedis returns a Redis store allowing max requests per window.
func NewRedis(client *redis.Client, max int, window time.Duration) *Redis {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Redis{client: client, prefix: "viabilidade:ratelimit", max: max, window: window, now: time.Now}
}

// OpenRedis connects to addr. It returns nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// key names the counter of the window containing t.
func (s *Redis) key(client string, t time.Time) string {
	start := t.Truncate(s.window).Unix()
	return s.prefix + ":" + client + ":" + strconv.FormatInt(start, 10)
}

// Allow increments the counter for key in the current window.
func (s *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := s.now()
	k := s.key(key, now)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, s.window)
		return nil
	})
	if err != nil {
		return Decision{}, eris.Wrap(err, "ratelimit: increment window counter")
	}

	count := int(incr.Val())
	d := Decision{Limit: s.max, Remaining: s.max - count}
	if count <= s.max {
		d.Allowed = true
		return d, nil
	}
	d.Remaining = 0
	d.RetryAfter = now.Truncate(s.window).Add(s.window).Sub(now)
	return d, nil
}
