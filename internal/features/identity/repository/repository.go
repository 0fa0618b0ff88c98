package repository

import (
	"context"

	"tg-reward-ledger/internal/features/identity/models"
)

// Repository persists identities. Lookups return models.ErrIdentityNotFound
// when nothing matches; Create returns models.ErrIdentityExists on a
// duplicate external id.
type Repository interface {
	GetByExternalID(ctx context.Context, externalID int64) (*models.Identity, error)
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) error
	Update(ctx context.Context, identity *models.Identity) error
}
