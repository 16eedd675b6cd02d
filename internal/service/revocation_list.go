package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList guarda los jti de tokens cerrados antes de vencer.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type memoryRevocationList struct {
	mu    sync.Mutex
	items map[string]time.Time
	now   func() time.Time
}

func NewMemoryRevocationList() RevocationList {
	return &memoryRevocationList{
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (l *memoryRevocationList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UTC()
	for id, exp := range l.items {
		if now.After(exp) {
			delete(l.items, id)
		}
	}
	l.items[tokenID] = now.Add(ttl)
	return nil
}

func (l *memoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	tokenID = strings.TrimSpace(tokenID)
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.items[tokenID]
	if !ok {
		return false, nil
	}
	if l.now().UTC().After(exp) {
		delete(l.items, tokenID)
		return false, nil
	}
	return true, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisRevocationList struct {
	client  redisKV
	prefix  string
	timeout time.Duration
}

func NewRedisRevocationList(client *redis.Client) RevocationList {
	if client == nil {
		return nil
	}
	return &redisRevocationList{
		client:  client,
		prefix:  "auth:revoked:",
		timeout: 500 * time.Millisecond,
	}
}

func (l *redisRevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.client.Set(ctx, l.prefix+tokenID, "1", ttl).Err()
}

func (l *redisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	n, err := l.client.Exists(ctx, l.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
