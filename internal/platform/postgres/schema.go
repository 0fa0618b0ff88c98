package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tg-reward-ledger/internal/common/logger"
)

// schema is applied by Migrate when DB_AUTO_MIGRATE is set. Production
// deployments run their own migrations; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS identities (
		id                  UUID PRIMARY KEY,
		external_id         BIGINT NOT NULL UNIQUE,
		kind                TEXT NOT NULL DEFAULT 'user',
		username            TEXT NOT NULL DEFAULT '',
		first_name          TEXT NOT NULL DEFAULT '',
		last_name           TEXT NOT NULL DEFAULT '',
		title               TEXT NOT NULL DEFAULT '',
		photo_url           TEXT NOT NULL DEFAULT '',
		access_tier         SMALLINT NOT NULL DEFAULT 0,
		suspected_automated BOOLEAN NOT NULL DEFAULT FALSE,
		active              BOOLEAN NOT NULL DEFAULT TRUE,
		referred_by         BIGINT,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login_at       TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_identities_username ON identities (lower(username)) WHERE username <> ''`,

	`CREATE TABLE IF NOT EXISTS address_bindings (
		identity_id BIGINT NOT NULL,
		chain       TEXT NOT NULL,
		address     TEXT NOT NULL,
		bound_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (identity_id, chain),
		CONSTRAINT address_bindings_chain_address_key UNIQUE (chain, address)
	)`,

	`CREATE TABLE IF NOT EXISTS tokens (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		symbol           TEXT NOT NULL DEFAULT '',
		chain            TEXT NOT NULL DEFAULT '',
		contract_address TEXT NOT NULL DEFAULT '',
		decimals         SMALLINT NOT NULL CHECK (decimals BETWEEN 0 AND 18),
		active           BOOLEAN NOT NULL DEFAULT TRUE,
		min_transfer     NUMERIC(78, 18) NOT NULL DEFAULT 0,
		max_transfer     NUMERIC(78, 18) NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS balances (
		owner_id   BIGINT NOT NULL,
		token_id   TEXT NOT NULL,
		total      NUMERIC(78, 18) NOT NULL DEFAULT 0 CHECK (total >= 0),
		frozen     NUMERIC(78, 18) NOT NULL DEFAULT 0 CHECK (frozen >= 0 AND frozen <= total),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (owner_id, token_id)
	)`,

	`CREATE TABLE IF NOT EXISTS reward_policies (
		owner_id   BIGINT NOT NULL,
		token_id   TEXT NOT NULL,
		min_amount NUMERIC(78, 18) NOT NULL,
		max_amount NUMERIC(78, 18) NOT NULL,
		enabled    BOOLEAN NOT NULL DEFAULT FALSE,
		cooldown_ms BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (owner_id, token_id),
		CHECK (min_amount <= max_amount)
	)`,

	`CREATE TABLE IF NOT EXISTS reward_events (
		id                   BIGSERIAL PRIMARY KEY,
		from_id              BIGINT,
		to_id                BIGINT,
		pool_id              BIGINT,
		token_id             TEXT NOT NULL,
		amount               NUMERIC(78, 18) NOT NULL,
		external_message_ref TEXT,
		reason               TEXT NOT NULL DEFAULT '',
		action               TEXT NOT NULL DEFAULT '',
		applied_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS reward_events_token_ref_key
		ON reward_events (token_id, external_message_ref)
		WHERE external_message_ref IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_reward_events_to ON reward_events (to_id, applied_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_reward_events_from ON reward_events (from_id, applied_at DESC)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	logger.Info().Int("statements", len(schema)).Msg("Database schema applied")
	return nil
}
