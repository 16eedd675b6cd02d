package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestMemoryAttemptLimiter_Window(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryAttemptLimiter(time.Minute, 2).(*memoryAttemptLimiter)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	if !l.Allow(ctx, "User@Example.com") || !l.Allow(ctx, "user@example.com ") {
		t.Fatalf("expected first two attempts allowed")
	}
	if l.Allow(ctx, "user@example.com") {
		t.Fatalf("expected third attempt denied")
	}
	if !l.Allow(ctx, "other@example.com") {
		t.Fatalf("expected other key allowed")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow(ctx, "user@example.com") {
		t.Fatalf("expected attempt allowed after window")
	}
	if l.Allow(ctx, "  ") {
		t.Fatalf("expected empty key rejected")
	}
}

func TestMemoryAttemptLimiter_DropsStaleKeys(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryAttemptLimiter(time.Minute, 3).(*memoryAttemptLimiter)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		l.Allow(ctx, email)
	}
	if len(l.hits) != 3 {
		t.Fatalf("expected 3 tracked keys, got %d", len(l.hits))
	}

	now = now.Add(30 * time.Second)
	l.Allow(ctx, "a@example.com")
	now = now.Add(45 * time.Second)
	l.Allow(ctx, "d@example.com")

	if len(l.hits) != 2 {
		t.Fatalf("expected stale keys dropped, got %+v", l.hits)
	}
	if _, ok := l.hits["a@example.com"]; !ok {
		t.Fatalf("expected key with recent attempts kept")
	}
	if _, ok := l.hits["b@example.com"]; ok {
		t.Fatalf("expected idle key removed")
	}
}

func TestRedisAttemptLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisAttemptLimiter
		if !l.Allow(ctx, "user@example.com") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisAttemptLimiter{
			client: &mockRedisEvaler{result: 1},
			window: time.Minute,
			max:    3,
			prefix: "auth:signin:",
		}
		if l.Allow(ctx, "   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		l := &redisAttemptLimiter{
			client: mock,
			window: 2 * time.Minute,
			max:    3,
			prefix: "auth:signin:",
		}
		if !l.Allow(ctx, " User@Example.com ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "auth:signin:user@example.com" {
			t.Fatalf("unexpected key normalization, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisAttemptScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisAttemptLimiter{
			client: &mockRedisEvaler{result: 4},
			window: time.Minute,
			max:    3,
			prefix: "auth:signin:",
		}
		if l.Allow(ctx, "user@example.com") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := &redisAttemptLimiter{
			client: &mockRedisEvaler{err: errors.New("redis down")},
			window: time.Minute,
			max:    3,
			prefix: "auth:signin:",
		}
		if !l.Allow(ctx, "user@example.com") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}
