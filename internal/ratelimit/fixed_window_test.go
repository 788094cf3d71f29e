package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	rd := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(redis.NewClient(&redis.Options{Addr: rd.Addr()}), "test:login", limit, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return limiter, rd
}

func TestAllowWithinWindowQuota(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	for i := 0; i < 2; i++ {
		if !limiter.Allow("203.0.113.5") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if limiter.Allow("203.0.113.5") {
		t.Fatal("request over quota should be refused")
	}
	// Other keys keep their own counters.
	if !limiter.Allow("203.0.113.6") {
		t.Fatal("different key should pass")
	}
}

func TestAllowFailsClosedOnRedisError(t *testing.T) {
	limiter, rd := newTestLimiter(t, 5)
	rd.Close()
	if limiter.Allow("203.0.113.5") {
		t.Fatal("limiter must refuse when redis is unreachable")
	}
}

func TestNewFixedWindowLimiterValidation(t *testing.T) {
	rd := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: rd.Addr()})
	if _, err := NewFixedWindowLimiter(nil, "p", 1, time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := NewFixedWindowLimiter(client, "p", 0, time.Minute); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := NewFixedWindowLimiter(client, "p", 1, 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}
