package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	apperrors "tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/logger"
	"tg-reward-ledger/internal/features/ledger/models"
	"tg-reward-ledger/internal/features/ledger/repository"
)

const (
	uniqueViolation   = "23505"
	defaultEventLimit = 50
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("begin ledger transaction", err)
	}

	if err := fn(&pgTx{q: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to roll back ledger transaction")
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return apperrors.NewDatabaseError("commit ledger transaction", err)
	}
	return nil
}

func (r *postgresRepository) GetOrCreateBalance(ctx context.Context, ownerID int64, tokenID string) (*models.Balance, error) {
	query := `
		INSERT INTO balances (owner_id, token_id)
		VALUES ($1, $2)
		ON CONFLICT (owner_id, token_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
		RETURNING owner_id, token_id, total, frozen, updated_at
	`
	return scanBalance(r.db.QueryRowContext(ctx, query, ownerID, tokenID))
}

func (r *postgresRepository) ListBalances(ctx context.Context, ownerID int64) ([]*models.Balance, error) {
	query := `
		SELECT owner_id, token_id, total, frozen, updated_at
		FROM balances
		WHERE owner_id = $1
		ORDER BY token_id
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var out []*models.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *postgresRepository) GetPolicy(ctx context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error) {
	return getPolicy(ctx, r.db, ownerID, tokenID)
}

func (r *postgresRepository) PutPolicy(ctx context.Context, p *models.RewardPolicy) error {
	query := `
		INSERT INTO reward_policies (owner_id, token_id, min_amount, max_amount, enabled, cooldown_ms, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, token_id) DO UPDATE SET
			min_amount = EXCLUDED.min_amount,
			max_amount = EXCLUDED.max_amount,
			enabled = EXCLUDED.enabled,
			cooldown_ms = EXCLUDED.cooldown_ms,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.OwnerID, p.TokenID, p.MinAmount, p.MaxAmount, p.Enabled, p.Cooldown.Milliseconds(), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save reward policy: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListEvents(ctx context.Context, filter models.EventFilter) ([]*models.RewardEvent, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		n := len(args)
		where = append(where, fmt.Sprintf("(from_id = $%d OR to_id = $%d OR pool_id = $%d)", n, n, n))
	}
	if filter.TokenID != "" {
		args = append(args, filter.TokenID)
		where = append(where, fmt.Sprintf("token_id = $%d", len(args)))
	}
	if filter.BeforeID > 0 {
		args = append(args, filter.BeforeID)
		where = append(where, fmt.Sprintf("id < $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}
	args = append(args, limit)

	query := `SELECT ` + eventColumns + ` FROM reward_events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reward events: %w", err)
	}
	defer rows.Close()

	var out []*models.RewardEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *postgresRepository) GetToken(ctx context.Context, tokenID string) (*models.Token, error) {
	return getToken(ctx, r.db, tokenID)
}

func (r *postgresRepository) PutToken(ctx context.Context, t *models.Token) error {
	query := `
		INSERT INTO tokens (id, name, symbol, chain, contract_address, decimals, active,
			min_transfer, max_transfer, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			chain = EXCLUDED.chain,
			contract_address = EXCLUDED.contract_address,
			decimals = EXCLUDED.decimals,
			active = EXCLUDED.active,
			min_transfer = EXCLUDED.min_transfer,
			max_transfer = EXCLUDED.max_transfer,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Symbol, t.Chain, t.ContractAddress, t.Decimals, t.Active,
		t.MinTransfer, t.MaxTransfer, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListTokens(ctx context.Context) ([]*models.Token, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var out []*models.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type pgTx struct {
	q queryer
}

// GetBalance locks the row until the transaction ends.
func (t *pgTx) GetBalance(ctx context.Context, ownerID int64, tokenID string) (*models.Balance, error) {
	if _, err := t.q.ExecContext(ctx,
		`INSERT INTO balances (owner_id, token_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		ownerID, tokenID); err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}

	query := `
		SELECT owner_id, token_id, total, frozen, updated_at
		FROM balances
		WHERE owner_id = $1 AND token_id = $2
		FOR UPDATE
	`
	return scanBalance(t.q.QueryRowContext(ctx, query, ownerID, tokenID))
}

func (t *pgTx) PutBalance(ctx context.Context, b *models.Balance) error {
	query := `
		UPDATE balances
		SET total = $3, frozen = $4, updated_at = $5
		WHERE owner_id = $1 AND token_id = $2
	`
	if _, err := t.q.ExecContext(ctx, query, b.OwnerID, b.TokenID, b.Total, b.Frozen, b.UpdatedAt); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

func (t *pgTx) GetPolicy(ctx context.Context, ownerID int64, tokenID string) (*models.RewardPolicy, error) {
	return getPolicy(ctx, t.q, ownerID, tokenID)
}

func (t *pgTx) GetToken(ctx context.Context, tokenID string) (*models.Token, error) {
	return getToken(ctx, t.q, tokenID)
}

func (t *pgTx) FindEventByRef(ctx context.Context, tokenID, ref string) (*models.RewardEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM reward_events WHERE token_id = $1 AND external_message_ref = $2`
	return scanEvent(t.q.QueryRowContext(ctx, query, tokenID, ref))
}

func (t *pgTx) AppendEvent(ctx context.Context, e *models.RewardEvent) error {
	query := `
		INSERT INTO reward_events (from_id, to_id, pool_id, token_id, amount, external_message_ref, reason, action, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := t.q.QueryRowContext(ctx, query,
		nullInt64(e.FromID), nullInt64(e.ToID), nullInt64(e.PoolID),
		e.TokenID, e.Amount, nullString(e.ExternalMessageRef), e.Reason, e.Action, e.AppliedAt,
	).Scan(&e.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrDuplicateRef
		}
		return fmt.Errorf("failed to append reward event: %w", err)
	}
	return nil
}

const eventColumns = `id, from_id, to_id, pool_id, token_id, amount, external_message_ref, reason, action, applied_at`

func getPolicy(ctx context.Context, q queryer, ownerID int64, tokenID string) (*models.RewardPolicy, error) {
	query := `
		SELECT owner_id, token_id, min_amount, max_amount, enabled, cooldown_ms, updated_at
		FROM reward_policies
		WHERE owner_id = $1 AND token_id = $2
	`
	var (
		p          models.RewardPolicy
		cooldownMS int64
	)
	err := q.QueryRowContext(ctx, query, ownerID, tokenID).Scan(
		&p.OwnerID, &p.TokenID, &p.MinAmount, &p.MaxAmount, &p.Enabled, &cooldownMS, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get reward policy: %w", err)
	}
	p.Cooldown = time.Duration(cooldownMS) * time.Millisecond
	return &p, nil
}

const tokenColumns = `id, name, symbol, chain, contract_address, decimals, active, min_transfer, max_transfer, created_at, updated_at`

func getToken(ctx context.Context, q queryer, tokenID string) (*models.Token, error) {
	t, err := scanToken(q.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, tokenID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTokenNotFound
	}
	return t, err
}

func scanToken(row interface{ Scan(...interface{}) error }) (*models.Token, error) {
	var t models.Token
	err := row.Scan(&t.ID, &t.Name, &t.Symbol, &t.Chain, &t.ContractAddress, &t.Decimals, &t.Active,
		&t.MinTransfer, &t.MaxTransfer, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}
	return &t, nil
}

func scanBalance(row interface{ Scan(...interface{}) error }) (*models.Balance, error) {
	var b models.Balance
	if err := row.Scan(&b.OwnerID, &b.TokenID, &b.Total, &b.Frozen, &b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan balance: %w", err)
	}
	return &b, nil
}

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.RewardEvent, error) {
	var (
		e                    models.RewardEvent
		fromID, toID, poolID sql.NullInt64
		ref                  sql.NullString
	)
	err := row.Scan(&e.ID, &fromID, &toID, &poolID, &e.TokenID, &e.Amount, &ref, &e.Reason, &e.Action, &e.AppliedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan reward event: %w", err)
	}
	e.FromID = int64Ptr(fromID)
	e.ToID = int64Ptr(toID)
	e.PoolID = int64Ptr(poolID)
	if ref.Valid {
		e.ExternalMessageRef = &ref.String
	}
	return &e, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
