package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultAction = "reward"

// Balance is keyed by (OwnerID, TokenID). Available is derived, never stored.
// @Description Token balance of an identity
type Balance struct {
	OwnerID   int64           `json:"owner_id" example:"123456789"`
	TokenID   string          `json:"token_id" example:"STAR"`
	Total     decimal.Decimal `json:"total" swaggertype:"string" example:"100"`
	Frozen    decimal.Decimal `json:"frozen" swaggertype:"string" example:"20"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (b *Balance) Available() decimal.Decimal {
	return b.Total.Sub(b.Frozen)
}

// Valid reports whether 0 <= Frozen <= Total.
func (b *Balance) Valid() bool {
	return !b.Total.IsNegative() && !b.Frozen.IsNegative() && b.Frozen.LessThanOrEqual(b.Total)
}

// @Description Balance with derived available amount
type BalanceResponse struct {
	*Balance
	Available decimal.Decimal `json:"available" swaggertype:"string" example:"80"`
}

func NewBalanceResponse(b *Balance) BalanceResponse {
	return BalanceResponse{Balance: b, Available: b.Available()}
}

// RewardPolicy bounds rewards credited to (OwnerID, TokenID). A missing
// policy is treated as disabled.
// @Description Reward policy
type RewardPolicy struct {
	OwnerID   int64           `json:"owner_id" example:"123456789"`
	TokenID   string          `json:"token_id" example:"STAR"`
	MinAmount decimal.Decimal `json:"min_amount" swaggertype:"string" example:"1"`
	MaxAmount decimal.Decimal `json:"max_amount" swaggertype:"string" example:"100"`
	Enabled   bool            `json:"enabled"`
	Cooldown  time.Duration   `json:"cooldown_ns" swaggertype:"integer" example:"60000000000"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (p *RewardPolicy) Validate() error {
	switch {
	case p.TokenID == "":
		return ErrInvalidPolicy
	case p.MinAmount.IsNegative(), p.MaxAmount.IsNegative():
		return ErrInvalidPolicy
	case p.MinAmount.GreaterThan(p.MaxAmount):
		return ErrInvalidPolicy
	case !FitsScale(p.MinAmount, MaxDecimals), !FitsScale(p.MaxAmount, MaxDecimals):
		return ErrInvalidPolicy
	case p.Cooldown < 0:
		return ErrInvalidPolicy
	}
	return nil
}

// RewardEvent is the immutable audit record of an applied ledger mutation.
// @Description Applied ledger event
type RewardEvent struct {
	ID                 int64           `json:"id" example:"1"`
	FromID             *int64          `json:"from_id,omitempty"`
	ToID               *int64          `json:"to_id,omitempty"`
	PoolID             *int64          `json:"pool_id,omitempty"`
	TokenID            string          `json:"token_id" example:"STAR"`
	Amount             decimal.Decimal `json:"amount" swaggertype:"string" example:"5"`
	ExternalMessageRef *string         `json:"external_message_ref,omitempty"`
	Reason             string          `json:"reason,omitempty"`
	Action             string          `json:"action" example:"reward"`
	AppliedAt          time.Time       `json:"applied_at"`
}

// RewardRequest credits ToID, debiting FromID's available balance when a
// sender is present.
// @Description Peer-to-peer or system reward
type RewardRequest struct {
	FromID             *int64          `json:"from_id,omitempty" example:"123456789"`
	ToID               int64           `json:"to_id" binding:"required" example:"987654321"`
	TokenID            string          `json:"token_id" binding:"required" example:"STAR"`
	Amount             decimal.Decimal `json:"amount" swaggertype:"string" example:"5"`
	ExternalMessageRef *string         `json:"external_message_ref,omitempty" example:"-1001234567890:42"`
	Reason             string          `json:"reason,omitempty" example:"helpful answer"`
	Action             string          `json:"action,omitempty" example:"reward"`
}

// PoolRewardRequest credits ToID from PoolID's available balance on behalf
// of FromID, who carries the cooldown.
// @Description Reward paid from a chat pool
type PoolRewardRequest struct {
	PoolID             int64           `json:"pool_id" binding:"required" example:"-1001234567890"`
	FromID             int64           `json:"from_id" binding:"required" example:"123456789"`
	ToID               int64           `json:"to_id" binding:"required" example:"987654321"`
	TokenID            string          `json:"token_id" binding:"required" example:"STAR"`
	Amount             decimal.Decimal `json:"amount" swaggertype:"string" example:"5"`
	ExternalMessageRef *string         `json:"external_message_ref,omitempty" example:"-1001234567890:42"`
	Reason             string          `json:"reason,omitempty"`
	Action             string          `json:"action,omitempty" example:"reward"`
}

// @Description Amount for freeze, unfreeze, deposit and withdraw
type AmountRequest struct {
	OwnerID *int64          `json:"owner_id,omitempty" example:"123456789"`
	Amount  decimal.Decimal `json:"amount" swaggertype:"string" example:"10"`
	Reason  string          `json:"reason,omitempty"`
}

// @Description Reward policy update
type PolicyRequest struct {
	OwnerID         int64           `json:"owner_id" binding:"required" example:"-1001234567890"`
	TokenID         string          `json:"token_id" binding:"required" example:"STAR"`
	MinAmount       decimal.Decimal `json:"min_amount" swaggertype:"string" example:"1"`
	MaxAmount       decimal.Decimal `json:"max_amount" swaggertype:"string" example:"100"`
	Enabled         bool            `json:"enabled"`
	CooldownSeconds int64           `json:"cooldown_seconds" example:"60"`
}

type EventFilter struct {
	// OwnerID matches events where the owner is sender, recipient or pool.
	OwnerID  *int64
	TokenID  string
	BeforeID int64
	Limit    int
}
