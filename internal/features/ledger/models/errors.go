package models

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyDisabled      = errors.New("reward policy disabled")
	ErrAmountOutOfRange    = errors.New("amount out of range")
	ErrCooldownActive      = errors.New("cooldown active")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidFreezeAmount = errors.New("invalid freeze amount")

	ErrInvalidPolicy  = errors.New("invalid reward policy")
	ErrInvalidRequest = errors.New("invalid ledger request")
	ErrPolicyNotFound = errors.New("reward policy not found")
	ErrEventNotFound  = errors.New("reward event not found")
	ErrDuplicateRef   = errors.New("external message ref already recorded")

	ErrTokenNotFound   = errors.New("token not registered")
	ErrTokenInactive   = errors.New("token is inactive")
	ErrInvalidToken    = errors.New("invalid token")
	ErrAmountPrecision = errors.New("amount has more decimal places than the token allows")
)

// Rejection names the guard that refused a request. It unwraps to the
// guard's sentinel error.
type Rejection struct {
	Guard string
	Err   error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("rejected by %s: %v", r.Guard, r.Err)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}
