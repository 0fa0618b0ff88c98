package models

import (
	"errors"
	"time"
)

type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainBase     Chain = "base"
	ChainTON      Chain = "ton"
)

var (
	ErrInvalidFormat   = errors.New("invalid address format")
	ErrAddressTaken    = errors.New("address is bound to another identity")
	ErrBindingNotFound = errors.New("no address bound for chain")
)

// Binding ties one address to one identity on one chain.
// @Description Address bound to an identity
type Binding struct {
	IdentityID int64     `json:"identity_id" example:"123456789"`
	Chain      Chain     `json:"chain" example:"ethereum" enums:"ethereum,base,ton"`
	Address    string    `json:"address" example:"0x52908400098527886E0F7030069857D2E4169EE7"`
	BoundAt    time.Time `json:"bound_at"`
}

// @Description Result of a bind
type BindResult struct {
	Binding
	// PreviousAddress is the identity's prior address on the chain, equal to
	// Address on an idempotent rebind.
	PreviousAddress string `json:"previous_address,omitempty"`
}

// @Description Address bind request
type BindRequest struct {
	Chain   Chain  `json:"chain" binding:"required" example:"ethereum"`
	Address string `json:"address" binding:"required" example:"0x52908400098527886e0f7030069857d2e4169ee7"`
}
