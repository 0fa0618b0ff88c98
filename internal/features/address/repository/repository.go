package repository

import (
	"context"

	"tg-reward-ledger/internal/features/address/models"
)

// Repository is the authoritative (chain, address) -> identity mapping.
type Repository interface {
	// GetOwner returns models.ErrBindingNotFound when the address is free.
	GetOwner(ctx context.Context, chain models.Chain, address string) (*models.Binding, error)
	// Get returns models.ErrBindingNotFound when the identity has nothing
	// bound on chain.
	Get(ctx context.Context, identityID int64, chain models.Chain) (*models.Binding, error)
	List(ctx context.Context, identityID int64) ([]*models.Binding, error)
	// Upsert replaces the identity's binding on the chain. It fails with
	// models.ErrAddressTaken if another identity holds the address.
	Upsert(ctx context.Context, b *models.Binding) error
	Delete(ctx context.Context, identityID int64, chain models.Chain) error
}
