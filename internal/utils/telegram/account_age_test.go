package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCreatedAt(t *testing.T) {
	created, exact := EstimateCreatedAt(805158066)
	assert.True(t, exact)
	assert.Equal(t, time.UnixMilli(1563208000000), created)

	mid, exact := EstimateCreatedAt((805158066 + 1974255900) / 2)
	assert.True(t, exact)
	assert.True(t, mid.After(time.UnixMilli(1563208000000)))
	assert.True(t, mid.Before(time.UnixMilli(1634000000000)))

	clamped, exact := EstimateCreatedAt(7_000_000_000)
	assert.False(t, exact)
	assert.Equal(t, time.UnixMilli(1634000000000), clamped)

	zero, _ := EstimateCreatedAt(-100)
	assert.True(t, zero.IsZero())
}

func TestEstimateAccountAge(t *testing.T) {
	now := time.UnixMilli(1563208000000).Add(48 * time.Hour)
	assert.Equal(t, 48*time.Hour, EstimateAccountAge(805158066, now))
	assert.Zero(t, EstimateAccountAge(0, now))
}
