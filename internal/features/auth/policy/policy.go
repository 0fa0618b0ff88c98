// Package policy evaluates access tiers and the advisory automated-account
// heuristic. Nothing here performs I/O.
package policy

import (
	"fmt"
	"time"

	authmodels "tg-reward-ledger/internal/features/auth/models"
	identitymodels "tg-reward-ledger/internal/features/identity/models"
	"tg-reward-ledger/internal/utils/telegram"
)

// Check fails with ErrInsufficientAccess when claims do not reach required.
func Check(claims *authmodels.Claims, required authmodels.Tier) error {
	if claims == nil {
		return authmodels.ErrInsufficientAccess
	}
	if !claims.Tier.AtLeast(required) {
		return fmt.Errorf("%w: have %s, need %s", authmodels.ErrInsufficientAccess, claims.Tier, required)
	}
	return nil
}

func IsBotSuspected(identity *identitymodels.Identity) bool {
	return identity != nil && identity.SuspectedAutomated
}

// RequireHuman gates privileged operations on the advisory flag.
func RequireHuman(identity *identitymodels.Identity) error {
	if IsBotSuspected(identity) {
		return authmodels.ErrBotSuspected
	}
	return nil
}

// AuthSignal is what is known about a login at the moment it happens.
type AuthSignal struct {
	TelegramID  int64
	HasProfile  bool
	PrevLoginAt *time.Time
	Now         time.Time
}

type Assessment struct {
	Suspected bool
	Reasons   []string
}

type Heuristics struct {
	MinAccountAge   time.Duration
	MinAuthInterval time.Duration
	RequireProfile  bool
	// AccountAge defaults to the Telegram id interpolation table.
	AccountAge func(telegramID int64, now time.Time) time.Duration
}

func (h Heuristics) Assess(s AuthSignal) Assessment {
	var a Assessment
	if h.RequireProfile && !s.HasProfile {
		a.Reasons = append(a.Reasons, "missing_profile")
	}

	if h.MinAccountAge > 0 {
		ageFn := h.AccountAge
		if ageFn == nil {
			ageFn = telegram.EstimateAccountAge
		}
		if age := ageFn(s.TelegramID, s.Now); age < h.MinAccountAge {
			a.Reasons = append(a.Reasons, "young_account")
		}
	}

	if h.MinAuthInterval > 0 && s.PrevLoginAt != nil && s.Now.Sub(*s.PrevLoginAt) < h.MinAuthInterval {
		a.Reasons = append(a.Reasons, "rapid_reauth")
	}

	a.Suspected = len(a.Reasons) > 0
	return a
}
