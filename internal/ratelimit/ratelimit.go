// Package ratelimit implements a fixed-window request limiter on Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter allows up to limit hits per key in each window. A nil Redis client
// or a Redis failure lets every request through.
type Limiter struct {
	redis  redis.Scripter
	limit  int
	window time.Duration
	prefix string
	log    *logrus.Entry
}

func New(client redis.Scripter, limit int, window time.Duration, log *logrus.Entry) *Limiter {
	if limit <= 0 {
		limit = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{redis: client, limit: limit, window: window, prefix: "portal:ratelimit:", log: log}
}

func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	if l == nil || l.redis == nil {
		return Decision{Allowed: true, Remaining: -1}
	}

	res, err := windowScript.Run(ctx, l.redis, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		if err == nil {
			err = fmt.Errorf("unexpected script reply of length %d", len(res))
		}
		l.log.WithError(err).Warn("rate limiter unavailable, allowing request")
		return Decision{Allowed: true, Remaining: -1}
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if count > l.limit {
		if ttl <= 0 {
			ttl = l.window
		}
		return Decision{Allowed: false, RetryAfter: ttl}
	}
	return Decision{Allowed: true, Remaining: l.limit - count}
}
