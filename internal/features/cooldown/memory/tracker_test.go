package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTracker_GrantAndExpire(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(clock.Now)
	ctx := context.Background()

	active, err := tr.IsActive(ctx, 1, "reward")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, tr.Grant(ctx, 1, "reward", time.Minute))

	active, err = tr.IsActive(ctx, 1, "reward")
	require.NoError(t, err)
	assert.True(t, active)

	left, err := tr.Remaining(ctx, 1, "reward")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, left)

	clock.Advance(time.Minute)

	active, err = tr.IsActive(ctx, 1, "reward")
	require.NoError(t, err)
	assert.False(t, active, "entry with active_until == now is absent")
}

func TestTracker_GrantOverwrites(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(clock.Now)
	ctx := context.Background()

	require.NoError(t, tr.Grant(ctx, 1, "reward", time.Hour))
	require.NoError(t, tr.Grant(ctx, 1, "reward", 10*time.Second))

	left, err := tr.Remaining(ctx, 1, "reward")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, left)

	require.NoError(t, tr.Grant(ctx, 1, "reward", 0))
	active, err := tr.IsActive(ctx, 1, "reward")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestTracker_KeysAreIndependent(t *testing.T) {
	tr := NewTracker(nil)
	ctx := context.Background()

	require.NoError(t, tr.Grant(ctx, 1, "reward", time.Hour))

	for _, tc := range []struct {
		owner  int64
		action string
	}{
		{owner: 2, action: "reward"},
		{owner: 1, action: "tip"},
	} {
		active, err := tr.IsActive(ctx, tc.owner, tc.action)
		require.NoError(t, err)
		assert.False(t, active)
	}
}

func TestTracker_List(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	tr := NewTracker(clock.Now)
	ctx := context.Background()

	require.NoError(t, tr.Grant(ctx, 1, "tip", time.Minute))
	require.NoError(t, tr.Grant(ctx, 1, "reward", time.Hour))
	require.NoError(t, tr.Grant(ctx, 1, "expired", time.Second))
	require.NoError(t, tr.Grant(ctx, 2, "reward", time.Hour))

	clock.Advance(2 * time.Second)

	entries, err := tr.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "reward", entries[0].Action)
	assert.Equal(t, "tip", entries[1].Action)
	assert.Equal(t, time.Minute-2*time.Second, entries[1].Remaining)
}
