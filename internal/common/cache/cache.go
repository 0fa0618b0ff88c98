package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "tg-reward-ledger/internal/common/errors"
)

// CacheService is a JSON read-through cache on Redis.
type CacheService struct {
	redisClient redis.UniversalClient
}

func NewCacheService(redisClient redis.UniversalClient) *CacheService {
	return &CacheService{
		redisClient: redisClient,
	}
}

// Get decodes the cached value into dest. A miss is returned as redis.Nil;
// other failures are CACHE_ERROR.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return err
	}
	if err != nil {
		return apperrors.NewCacheError("get "+key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return apperrors.NewCacheError("decode "+key, err)
	}
	return nil
}

func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := c.redisClient.Set(ctx, key, data, ttl).Err(); err != nil {
		return apperrors.NewCacheError("set "+key, err)
	}
	return nil
}

func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
		return apperrors.NewCacheError("delete", err)
	}
	return nil
}

// GetOrSet fills dest from the cache, or from setter on a miss and caches
// the result. Cache write failures do not fail the call.
func (c *CacheService) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}

	value, err := setter()
	if err != nil {
		return err
	}
	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func IdentityKey(externalID int64) string {
	return fmt.Sprintf("identity:%d", externalID)
}
