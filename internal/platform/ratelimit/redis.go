package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// The first INCR of a key opens the window by setting its expiry; later
// increments inside the window leave the TTL alone.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisLimiter shares windows across instances. Any Redis failure falls back
// to the in-process limiter so intake stays available.
type RedisLimiter struct {
	Client   *redis.Client
	Prefix   string
	Timeout  time.Duration
	Fallback Limiter
	Logger   zerolog.Logger
}

func NewRedis(client *redis.Client, logger zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		Client:   client,
		Prefix:   "pv:rl:",
		Timeout:  2 * time.Second,
		Fallback: NewInMemory(),
		Logger:   logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, fingerprint string, limit int, win time.Duration) Decision {
	if limit <= 0 {
		limit = 1
	}
	if win <= 0 {
		win = time.Minute
	}
	if l.Client == nil {
		return l.fallback(ctx, fingerprint, limit, win)
	}

	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	res, err := fixedWindowScript.Run(ctx, l.Client, []string{l.Prefix + fingerprint}, win.Milliseconds()).Result()
	if err != nil {
		l.Logger.Warn().Err(err).Msg("redis rate limiter unavailable, using in-process window")
		return l.fallback(ctx, fingerprint, limit, win)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		l.Logger.Warn().Interface("result", res).Msg("unexpected rate limit script result")
		return l.fallback(ctx, fingerprint, limit, win)
	}
	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)
	if ttlMs < 0 {
		ttlMs = win.Milliseconds()
	}
	return decide(int(count), limit, time.Now().Add(time.Duration(ttlMs)*time.Millisecond))
}

func (l *RedisLimiter) fallback(ctx context.Context, fingerprint string, limit int, win time.Duration) Decision {
	if l.Fallback == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit, ResetAt: time.Now().Add(win)}
	}
	return l.Fallback.Allow(ctx, fingerprint, limit, win)
}
