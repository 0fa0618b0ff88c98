package keylock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefixLock = "lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis is a Locker shared by every replica. Each key is a SET NX PX entry
// holding a random token; release only deletes entries carrying our token.
type Redis struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	waitLimit  time.Duration
}

func NewRedis(client redis.UniversalClient, ttl, retryDelay, waitLimit time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retryDelay <= 0 {
		retryDelay = 20 * time.Millisecond
	}
	if waitLimit <= 0 {
		waitLimit = 5 * time.Second
	}
	return &Redis{client: client, ttl: ttl, retryDelay: retryDelay, waitLimit: waitLimit}
}

type redisHold struct {
	key   string
	token string
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = Normalize(keys)
	held := make([]redisHold, 0, len(keys))
	deadline := time.Now().Add(r.waitLimit)

	for _, k := range keys {
		token := uuid.NewString()
		if err := r.acquire(ctx, keyPrefixLock+k, token, deadline); err != nil {
			r.releaseAll(held)
			return nil, err
		}
		held = append(held, redisHold{key: keyPrefixLock + k, token: token})
	}

	return func() { r.releaseAll(held) }, nil
}

func (r *Redis) acquire(ctx context.Context, key, token string, deadline time.Time) error {
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}
}

func (r *Redis) releaseAll(held []redisHold) {
	// releases must not be skipped because the request context was cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := len(held) - 1; i >= 0; i-- {
		h := held[i]
		if err := releaseScript.Run(ctx, r.client, []string{h.key}, h.token).Err(); err != nil {
			log.Error().Err(err).Str("key", h.key).Msg("Failed to release lock")
		}
	}
}
