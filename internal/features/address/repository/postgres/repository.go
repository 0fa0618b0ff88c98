package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tg-reward-ledger/internal/features/address/models"
	"tg-reward-ledger/internal/features/address/repository"
)

const uniqueViolation = "23505"

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.Repository {
	return &postgresRepository{db: db}
}

func scanBinding(row interface{ Scan(...interface{}) error }) (*models.Binding, error) {
	var (
		b     models.Binding
		chain string
	)
	if err := row.Scan(&b.IdentityID, &chain, &b.Address, &b.BoundAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBindingNotFound
		}
		return nil, fmt.Errorf("failed to scan address binding: %w", err)
	}
	b.Chain = models.Chain(chain)
	return &b, nil
}

func (r *postgresRepository) GetOwner(ctx context.Context, chain models.Chain, address string) (*models.Binding, error) {
	query := `
		SELECT identity_id, chain, address, bound_at
		FROM address_bindings
		WHERE chain = $1 AND address = $2
	`
	return scanBinding(r.db.QueryRowContext(ctx, query, string(chain), address))
}

func (r *postgresRepository) Get(ctx context.Context, identityID int64, chain models.Chain) (*models.Binding, error) {
	query := `
		SELECT identity_id, chain, address, bound_at
		FROM address_bindings
		WHERE identity_id = $1 AND chain = $2
	`
	return scanBinding(r.db.QueryRowContext(ctx, query, identityID, string(chain)))
}

func (r *postgresRepository) List(ctx context.Context, identityID int64) ([]*models.Binding, error) {
	query := `
		SELECT identity_id, chain, address, bound_at
		FROM address_bindings
		WHERE identity_id = $1
		ORDER BY chain
	`
	rows, err := r.db.QueryContext(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list address bindings: %w", err)
	}
	defer rows.Close()

	var out []*models.Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Upsert relies on the (chain, address) unique constraint; a violation
// means another identity won the address.
func (r *postgresRepository) Upsert(ctx context.Context, b *models.Binding) error {
	query := `
		INSERT INTO address_bindings (identity_id, chain, address, bound_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity_id, chain) DO UPDATE SET
			address = EXCLUDED.address,
			bound_at = EXCLUDED.bound_at
	`
	_, err := r.db.ExecContext(ctx, query, b.IdentityID, string(b.Chain), b.Address, b.BoundAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrAddressTaken
		}
		return fmt.Errorf("failed to upsert address binding: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, identityID int64, chain models.Chain) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM address_bindings WHERE identity_id = $1 AND chain = $2`, identityID, string(chain))
	if err != nil {
		return fmt.Errorf("failed to delete address binding: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrBindingNotFound
	}
	return nil
}
