package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tg-reward-ledger/internal/features/cooldown"
)

type key struct {
	owner  int64
	action string
}

type Tracker struct {
	mu      sync.Mutex
	entries map[key]time.Time
	now     func() time.Time
}

func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{entries: make(map[key]time.Time), now: now}
}

var _ cooldown.Tracker = (*Tracker)(nil)

func (t *Tracker) IsActive(ctx context.Context, ownerID int64, action string) (bool, error) {
	d, err := t.Remaining(ctx, ownerID, action)
	return d > 0, err
}

func (t *Tracker) Grant(_ context.Context, ownerID int64, action string, d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{owner: ownerID, action: action}
	if d <= 0 {
		delete(t.entries, k)
		return nil
	}
	t.entries[k] = t.now().Add(d)
	return nil
}

func (t *Tracker) Remaining(_ context.Context, ownerID int64, action string) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{owner: ownerID, action: action}
	until, ok := t.entries[k]
	if !ok {
		return 0, nil
	}
	left := until.Sub(t.now())
	if left <= 0 {
		delete(t.entries, k)
		return 0, nil
	}
	return left, nil
}

func (t *Tracker) List(_ context.Context, ownerID int64) ([]cooldown.Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var out []cooldown.Entry
	for k, until := range t.entries {
		if k.owner != ownerID {
			continue
		}
		if !until.After(now) {
			delete(t.entries, k)
			continue
		}
		out = append(out, cooldown.Entry{
			OwnerID:     k.owner,
			Action:      k.action,
			ActiveUntil: until,
			Remaining:   until.Sub(now),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out, nil
}
