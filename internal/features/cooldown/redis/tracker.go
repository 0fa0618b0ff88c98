package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-reward-ledger/internal/features/cooldown"
)

// Tracker stores each entry as a key with a millisecond TTL; Redis expiry
// is the lazy cleanup.
type Tracker struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewTracker(client redis.UniversalClient) *Tracker {
	return &Tracker{client: client, now: time.Now}
}

var _ cooldown.Tracker = (*Tracker)(nil)

func (t *Tracker) IsActive(ctx context.Context, ownerID int64, action string) (bool, error) {
	d, err := t.Remaining(ctx, ownerID, action)
	return d > 0, err
}

func (t *Tracker) Grant(ctx context.Context, ownerID int64, action string, d time.Duration) error {
	k := cooldown.Key(ownerID, action)
	if d <= 0 {
		return t.client.Del(ctx, k).Err()
	}
	until := t.now().Add(d).UnixMilli()
	if err := t.client.Set(ctx, k, strconv.FormatInt(until, 10), d).Err(); err != nil {
		return fmt.Errorf("failed to grant cooldown: %w", err)
	}
	return nil
}

func (t *Tracker) Remaining(ctx context.Context, ownerID int64, action string) (time.Duration, error) {
	d, err := t.client.PTTL(ctx, cooldown.Key(ownerID, action)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cooldown: %w", err)
	}
	// missing keys report negative sentinels
	if d <= 0 {
		return 0, nil
	}
	return d, nil
}

func (t *Tracker) List(ctx context.Context, ownerID int64) ([]cooldown.Entry, error) {
	prefix := cooldown.Key(ownerID, "")
	var out []cooldown.Entry

	iter := t.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		d, err := t.client.PTTL(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read cooldown: %w", err)
		}
		if d <= 0 {
			continue
		}
		out = append(out, cooldown.Entry{
			OwnerID:     ownerID,
			Action:      strings.TrimPrefix(k, prefix),
			ActiveUntil: t.now().Add(d),
			Remaining:   d,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cooldowns: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out, nil
}
