package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lim := NewRedis(client, zerolog.Nop())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if d := lim.Allow(ctx, "fp", 3, time.Minute); !d.Allowed || d.Count != i {
			t.Fatalf("call %d: expected allowed with count %d, got %+v", i, i, d)
		}
	}
	if d := lim.Allow(ctx, "fp", 3, time.Minute); d.Allowed {
		t.Fatalf("fourth call must be denied, got %+v", d)
	}
	if ttl := mr.TTL("pv:rl:fp"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected key ttl within window, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Millisecond)
	if d := lim.Allow(ctx, "fp", 3, time.Minute); !d.Allowed || d.Count != 1 {
		t.Fatalf("expected a new window after expiry, got %+v", d)
	}
}

func TestRedisLimiter_FallsBackOnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer client.Close()

	lim := NewRedis(client, zerolog.Nop())
	ctx := context.Background()

	if d := lim.Allow(ctx, "fp", 1, time.Minute); !d.Allowed {
		t.Fatalf("first call should pass through the in-process fallback, got %+v", d)
	}
	if d := lim.Allow(ctx, "fp", 1, time.Minute); d.Allowed {
		t.Fatalf("fallback must still enforce the limit, got %+v", d)
	}
}

func TestRedisLimiter_NilClientNoFallback(t *testing.T) {
	lim := &RedisLimiter{Prefix: "pv:rl:", Timeout: time.Second}
	d := lim.Allow(context.Background(), "fp", 2, time.Minute)
	if !d.Allowed || d.Limit != 2 || d.Remaining != 2 {
		t.Errorf("expected permissive decision, got %+v", d)
	}
}
