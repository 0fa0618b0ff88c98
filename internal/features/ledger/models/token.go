package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the scale of every stored amount (NUMERIC(78, 18)).
const MaxDecimals = 18

// Token is a ledger unit. Balances, policies and rewards only exist for
// registered tokens; amounts may not be finer than Decimals.
// @Description Registered ledger token
type Token struct {
	ID              string          `json:"id" example:"STAR"`
	Name            string          `json:"name" example:"Stars"`
	Symbol          string          `json:"symbol" example:"STAR"`
	Chain           string          `json:"chain,omitempty" example:"base"`
	ContractAddress string          `json:"contract_address,omitempty" example:"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"`
	Decimals        int32           `json:"decimals" example:"2"`
	Active          bool            `json:"active"`
	// MinTransfer and MaxTransfer bound deposits and withdrawals; zero means
	// unbounded.
	MinTransfer decimal.Decimal `json:"min_transfer" swaggertype:"string" example:"0"`
	MaxTransfer decimal.Decimal `json:"max_transfer" swaggertype:"string" example:"0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (t *Token) Validate() error {
	switch {
	case strings.TrimSpace(t.ID) == "":
		return ErrInvalidToken
	case t.Decimals < 0, t.Decimals > MaxDecimals:
		return ErrInvalidToken
	case t.MinTransfer.IsNegative(), t.MaxTransfer.IsNegative():
		return ErrInvalidToken
	case !t.MaxTransfer.IsZero() && t.MinTransfer.GreaterThan(t.MaxTransfer):
		return ErrInvalidToken
	case !FitsScale(t.MinTransfer, t.Decimals), !FitsScale(t.MaxTransfer, t.Decimals):
		return ErrInvalidToken
	}
	return nil
}

// CheckAmount rejects amounts finer than the token's decimals.
func (t *Token) CheckAmount(amount decimal.Decimal) error {
	if !FitsScale(amount, t.Decimals) {
		return ErrAmountPrecision
	}
	return nil
}

// CheckTransfer applies the deposit and withdrawal bounds.
func (t *Token) CheckTransfer(amount decimal.Decimal) error {
	if err := t.CheckAmount(amount); err != nil {
		return err
	}
	if amount.LessThan(t.MinTransfer) || (!t.MaxTransfer.IsZero() && amount.GreaterThan(t.MaxTransfer)) {
		return ErrAmountOutOfRange
	}
	return nil
}

// FitsScale reports whether amount has no significant digits beyond
// decimals places. Trailing zeros do not count.
func FitsScale(amount decimal.Decimal, decimals int32) bool {
	return amount.Truncate(decimals).Equal(amount)
}

// @Description Token registration or update
type TokenRequest struct {
	ID              string          `json:"id" binding:"required" example:"STAR"`
	Name            string          `json:"name" example:"Stars"`
	Symbol          string          `json:"symbol" example:"STAR"`
	Chain           string          `json:"chain,omitempty" example:"base"`
	ContractAddress string          `json:"contract_address,omitempty"`
	Decimals        int32           `json:"decimals" example:"2"`
	Active          *bool           `json:"active,omitempty"`
	MinTransfer     decimal.Decimal `json:"min_transfer" swaggertype:"string" example:"0"`
	MaxTransfer     decimal.Decimal `json:"max_transfer" swaggertype:"string" example:"0"`
}
