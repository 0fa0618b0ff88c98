// Package keylock provides per-key mutual exclusion. Requests touching the
// same key serialize; requests on disjoint keys never contend.
package keylock

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var ErrLockTimeout = errors.New("failed to acquire lock: timeout")

// Locker acquires every key (sorted, deduplicated) and returns a release func.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

type entry struct {
	mu   deadlock.Mutex
	refs int
}

// Local is an in-process Locker. Entries are reference counted and dropped
// once no goroutine holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

var configureOnce sync.Once

func NewLocal() *Local {
	configureOnce.Do(func() {
		// Entries are recycled, so pointer-based order tracking would report
		// false positives; sorted acquisition already rules out cycles.
		deadlock.Opts.DisableLockOrderDetection = true
		deadlock.Opts.OnPotentialDeadlock = func() {
			log.Error().Str("component", "keylock").Msg("Lock held past deadlock timeout")
		}
	})
	return &Local{entries: make(map[string]*entry)}
}

func (l *Local) Lock(_ context.Context, keys ...string) (func(), error) {
	keys = Normalize(keys)
	held := make([]*entry, 0, len(keys))
	for _, k := range keys {
		held = append(held, l.acquire(k))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				l.release(keys[i], held[i])
			}
		})
	}, nil
}

func (l *Local) acquire(key string) *entry {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return e
}

func (l *Local) release(key string, e *entry) {
	e.mu.Unlock()

	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// Size reports the number of live entries.
func (l *Local) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Normalize sorts and deduplicates keys, dropping empty ones.
func Normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
