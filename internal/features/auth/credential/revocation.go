package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList is consulted after signature and expiry checks pass.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string, until time.Time) error
}

// NoRevocation keeps credentials purely stateless.
type NoRevocation struct{}

func (NoRevocation) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func (NoRevocation) Revoke(context.Context, string, time.Time) error {
	return fmt.Errorf("credential revocation is not configured")
}

type MemoryRevocation struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocation(now func() time.Time) *MemoryRevocation {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocation{revoked: make(map[string]time.Time), now: now}
}

func (m *MemoryRevocation) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	until, ok := m.revoked[jti]
	m.mu.RUnlock()
	return ok && m.now().Before(until), nil
}

func (m *MemoryRevocation) Revoke(_ context.Context, jti string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	// entries past their deadline can no longer match a valid credential
	for k, u := range m.revoked {
		if !now.Before(u) {
			delete(m.revoked, k)
		}
	}
	m.revoked[jti] = until
	return nil
}

const keyPrefixRevoked = "revoked_jti:"

type RedisRevocation struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisRevocation(client redis.UniversalClient) *RedisRevocation {
	return &RedisRevocation{client: client, now: time.Now}
}

func (r *RedisRevocation) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefixRevoked+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked credential: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRevocation) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, keyPrefixRevoked+jti, until.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
	}
	return nil
}
