package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	authmodels "tg-reward-ledger/internal/features/auth/models"
	identitymodels "tg-reward-ledger/internal/features/identity/models"
)

func TestCheck(t *testing.T) {
	tiers := []authmodels.Tier{
		authmodels.TierNone, authmodels.TierAlpha, authmodels.TierBeta, authmodels.TierAdmin, authmodels.TierFull,
	}
	for _, have := range tiers {
		for _, need := range tiers {
			err := Check(&authmodels.Claims{Tier: have}, need)
			if have >= need {
				assert.NoErrorf(t, err, "have %s need %s", have, need)
			} else {
				assert.ErrorIsf(t, err, authmodels.ErrInsufficientAccess, "have %s need %s", have, need)
			}
		}
	}
	assert.ErrorIs(t, Check(nil, authmodels.TierNone), authmodels.ErrInsufficientAccess)
}

func TestRequireHuman(t *testing.T) {
	assert.NoError(t, RequireHuman(&identitymodels.Identity{}))
	assert.ErrorIs(t, RequireHuman(&identitymodels.Identity{SuspectedAutomated: true}), authmodels.ErrBotSuspected)
	assert.False(t, IsBotSuspected(nil))
}

func TestAssess(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Second)
	old := now.Add(-time.Hour)

	h := Heuristics{
		MinAccountAge:   30 * 24 * time.Hour,
		MinAuthInterval: 2 * time.Second,
		RequireProfile:  true,
		AccountAge: func(id int64, _ time.Time) time.Duration {
			if id == 1 {
				return time.Hour
			}
			return 365 * 24 * time.Hour
		},
	}

	tests := []struct {
		name    string
		signal  AuthSignal
		reasons []string
	}{
		{name: "established human", signal: AuthSignal{TelegramID: 2, HasProfile: true, PrevLoginAt: &old, Now: now}},
		{name: "no profile", signal: AuthSignal{TelegramID: 2, Now: now}, reasons: []string{"missing_profile"}},
		{name: "young account", signal: AuthSignal{TelegramID: 1, HasProfile: true, Now: now}, reasons: []string{"young_account"}},
		{name: "rapid reauth", signal: AuthSignal{TelegramID: 2, HasProfile: true, PrevLoginAt: &recent, Now: now}, reasons: []string{"rapid_reauth"}},
		{
			name:    "everything",
			signal:  AuthSignal{TelegramID: 1, PrevLoginAt: &recent, Now: now},
			reasons: []string{"missing_profile", "young_account", "rapid_reauth"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := h.Assess(tt.signal)
			assert.Equal(t, tt.reasons, a.Reasons)
			assert.Equal(t, len(tt.reasons) > 0, a.Suspected)
		})
	}
}

func TestAssess_DisabledHeuristics(t *testing.T) {
	a := Heuristics{}.Assess(AuthSignal{TelegramID: 1, Now: time.Now()})
	assert.False(t, a.Suspected)
}
