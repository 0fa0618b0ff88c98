package repository

import (
	"context"

	"tg-reward-ledger/internal/features/ledger/models"
)

// Tx is a unit of work. Nothing written through it is visible to other
// callers until RunInTx returns nil.
type Tx interface {
	// GetBalance returns the balance, creating a zero one if absent.
	GetBalance(ctx context.Context, ownerID int64, tokenID string) (*models.Balance, error)
	PutBalance(ctx context.Context, b *models.Balance) error
	GetPolicy(ctx context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error)
	GetToken(ctx context.Context, tokenID string) (*models.Token, error)
	FindEventByRef(ctx context.Context, tokenID, ref string) (*models.RewardEvent, error)
	// AppendEvent assigns e.ID. A repeated (TokenID, ExternalMessageRef)
	// fails with models.ErrDuplicateRef.
	AppendEvent(ctx context.Context, e *models.RewardEvent) error
}

type Repository interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrCreateBalance(ctx context.Context, ownerID int64, tokenID string) (*models.Balance, error)
	ListBalances(ctx context.Context, ownerID int64) ([]*models.Balance, error)
	GetPolicy(ctx context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error)
	PutPolicy(ctx context.Context, p *models.RewardPolicy) error
	ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.RewardEvent, error)

	// GetToken fails with models.ErrTokenNotFound.
	GetToken(ctx context.Context, tokenID string) (*models.Token, error)
	// PutToken inserts or updates; CreatedAt is kept on update.
	PutToken(ctx context.Context, t *models.Token) error
	ListTokens(ctx context.Context) ([]*models.Token, error)
}
