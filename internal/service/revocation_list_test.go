package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKVClient struct {
	lastSetKey string
	lastSetVal interface{}
	lastSetTTL time.Duration
	lastExists []string

	setErr    error
	existsErr error
	existsN   int64
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetVal = value
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExists = keys
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	cmd.SetVal(m.existsN)
	return cmd
}

func TestMemoryRevocationList_Basics(t *testing.T) {
	list := NewMemoryRevocationList()
	ctx := context.Background()

	ok, err := list.IsRevoked(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected missing token false,nil; got %v,%v", ok, err)
	}

	if err := list.Revoke(ctx, "jti-1", 50*time.Millisecond); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, err = list.IsRevoked(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected token revoked, got %v,%v", ok, err)
	}

	time.Sleep(70 * time.Millisecond)
	ok, err = list.IsRevoked(ctx, "jti-1")
	if err != nil || ok {
		t.Fatalf("expected entry to lapse with the token, got %v,%v", ok, err)
	}
}

func TestMemoryRevocationList_EmptyIDAndNonPositiveTTL(t *testing.T) {
	list := NewMemoryRevocationList()
	ctx := context.Background()
	if err := list.Revoke(ctx, "", time.Minute); err != nil {
		t.Fatalf("empty jti revoke should be no-op, got %v", err)
	}
	if err := list.Revoke(ctx, "jti-2", 0); err != nil {
		t.Fatalf("expired token revoke should be no-op, got %v", err)
	}
	ok, err := list.IsRevoked(ctx, "jti-2")
	if err != nil || ok {
		t.Fatalf("expected jti-2 absent, got %v,%v", ok, err)
	}
}

func TestRedisRevocationList_Basics(t *testing.T) {
	mock := &mockRedisKVClient{existsN: 1}
	list := &redisRevocationList{
		client:  mock,
		prefix:  "auth:revoked:",
		timeout: time.Second,
	}
	ctx := context.Background()

	if err := list.Revoke(ctx, " j1 ", time.Hour); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if mock.lastSetKey != "auth:revoked:j1" {
		t.Fatalf("unexpected key, got %q", mock.lastSetKey)
	}
	if mock.lastSetTTL != time.Hour {
		t.Fatalf("expected ttl to follow token expiry, got %v", mock.lastSetTTL)
	}

	ok, err := list.IsRevoked(ctx, " j1 ")
	if err != nil || !ok {
		t.Fatalf("expected revoked true,nil; got %v,%v", ok, err)
	}
	if len(mock.lastExists) != 1 || mock.lastExists[0] != "auth:revoked:j1" {
		t.Fatalf("unexpected exists key: %+v", mock.lastExists)
	}
}

func TestRedisRevocationList_ErrorPaths(t *testing.T) {
	mock := &mockRedisKVClient{
		setErr:    errors.New("set failed"),
		existsErr: errors.New("exists failed"),
	}
	list := &redisRevocationList{
		client:  mock,
		prefix:  "auth:revoked:",
		timeout: time.Second,
	}
	ctx := context.Background()

	ok, err := list.IsRevoked(ctx, "")
	if err != nil || ok {
		t.Fatalf("empty jti should be false,nil; got %v,%v", ok, err)
	}
	if err := list.Revoke(ctx, "j2", time.Minute); err == nil {
		t.Fatalf("expected revoke error")
	}
	if _, err := list.IsRevoked(ctx, "j2"); err == nil {
		t.Fatalf("expected exists error")
	}
}
