// Package cooldown tracks per-(owner, action) windows during which an owner
// cannot repeat an action. Expired entries are treated as absent.
package cooldown

import (
	"context"
	"fmt"
	"time"
)

// Tracker is implemented by memory.Tracker and redis.Tracker.
type Tracker interface {
	IsActive(ctx context.Context, ownerID int64, action string) (bool, error)
	// Grant overwrites any live entry for the key. A non-positive duration
	// clears it.
	Grant(ctx context.Context, ownerID int64, action string, d time.Duration) error
	Remaining(ctx context.Context, ownerID int64, action string) (time.Duration, error)
	List(ctx context.Context, ownerID int64) ([]Entry, error)
}

type Entry struct {
	OwnerID     int64         `json:"owner_id" example:"123456789"`
	Action      string        `json:"action" example:"reward"`
	ActiveUntil time.Time     `json:"active_until"`
	Remaining   time.Duration `json:"remaining_ns" swaggertype:"integer"`
}

// Key is the lock and storage key for an (owner, action) pair.
func Key(ownerID int64, action string) string {
	return fmt.Sprintf("cooldown:%d:%s", ownerID, action)
}
