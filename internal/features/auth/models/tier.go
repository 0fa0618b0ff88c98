package models

import (
	"fmt"
	"strings"
)

// Tier is an ordered access level. Comparisons use the numeric order.
type Tier int

const (
	TierNone Tier = iota
	TierAlpha
	TierBeta
	TierAdmin
	TierFull
)

var tierNames = [...]string{"NONE", "ALPHA", "BETA", "ADMIN", "FULL"}

func (t Tier) String() string {
	if t < TierNone || t > TierFull {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

func (t Tier) Valid() bool {
	return t >= TierNone && t <= TierFull
}

// AtLeast reports whether t grants everything required grants.
func (t Tier) AtLeast(required Tier) bool {
	return t >= required
}

func ParseTier(s string) (Tier, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range tierNames {
		if name == upper {
			return Tier(i), nil
		}
	}
	return TierNone, fmt.Errorf("unknown access tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid access tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
