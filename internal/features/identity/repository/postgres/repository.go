package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	authmodels "tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/identity/models"
	"tg-reward-ledger/internal/features/identity/repository"
)

const identityColumns = `id, external_id, kind, username, first_name, last_name, title, photo_url,
	access_tier, suspected_automated, active, referred_by, created_at, updated_at, last_login_at`

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.Repository {
	return &postgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentity(row rowScanner) (*models.Identity, error) {
	var (
		i          models.Identity
		kind       string
		tier       int
		referredBy sql.NullInt64
		lastLogin  sql.NullTime
	)
	err := row.Scan(&i.ID, &i.ExternalID, &kind, &i.Username, &i.FirstName, &i.LastName, &i.Title, &i.PhotoURL,
		&tier, &i.SuspectedAutomated, &i.Active, &referredBy, &i.CreatedAt, &i.UpdatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to scan identity: %w", err)
	}

	i.Kind = models.Kind(kind)
	i.AccessTier = authmodels.Tier(tier)
	if referredBy.Valid {
		v := referredBy.Int64
		i.ReferredBy = &v
	}
	if lastLogin.Valid {
		v := lastLogin.Time
		i.LastLoginAt = &v
	}
	return &i, nil
}

func (r *postgresRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE external_id = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, externalID))
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*models.Identity, error) {
	if username == "" {
		return nil, models.ErrIdentityNotFound
	}
	query := `SELECT ` + identityColumns + ` FROM identities WHERE lower(username) = lower($1) LIMIT 1`
	return scanIdentity(r.db.QueryRowContext(ctx, query, username))
}

func (r *postgresRepository) Create(ctx context.Context, i *models.Identity) error {
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		i.ID, i.ExternalID, string(i.Kind), i.Username, i.FirstName, i.LastName, i.Title, i.PhotoURL,
		int(i.AccessTier), i.SuspectedAutomated, i.Active, nullInt64(i.ReferredBy), i.CreatedAt, i.UpdatedAt, i.LastLoginAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.ErrIdentityExists
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, i *models.Identity) error {
	query := `
		UPDATE identities
		SET kind = $2, username = $3, first_name = $4, last_name = $5, title = $6, photo_url = $7,
			access_tier = $8, suspected_automated = $9, active = $10, referred_by = $11,
			updated_at = $12, last_login_at = $13
		WHERE external_id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		i.ExternalID, string(i.Kind), i.Username, i.FirstName, i.LastName, i.Title, i.PhotoURL,
		int(i.AccessTier), i.SuspectedAutomated, i.Active, nullInt64(i.ReferredBy), i.UpdatedAt, i.LastLoginAt)
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrIdentityNotFound
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
