package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123456:test-token")
	t.Setenv("JWT_SECRET", "secret")
}

func TestParse_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Telegram.AuthFreshness)
	assert.Equal(t, 876000*time.Hour, cfg.Auth.CredentialLifetime)
	assert.Equal(t, "none", cfg.Auth.Revocation)
}

func TestParse_AdminIDs(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_IDS", "1,42")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.IsAdmin(42))
	assert.False(t, cfg.IsAdmin(7))
}

func TestParse_MissingBotToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOT_TOKEN", "")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestParse_RedisBackendsRequireRedis(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "cooldowns", key: "COOLDOWN_BACKEND"},
		{name: "locks", key: "LOCK_BACKEND"},
		{name: "revocation", key: "REVOCATION_BACKEND"},
		{name: "reward stream", key: "REWARD_STREAM_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			value := "redis"
			if tt.key == "REWARD_STREAM_ENABLED" {
				value = "true"
			}
			t.Setenv(tt.key, value)

			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "REDIS_ENABLED")
		})
	}
}

func TestParse_UnknownStorageBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_BACKEND", "mongo")

	_, err := Parse()
	require.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{}
	cfg.Postgres.Host = "db"
	cfg.Postgres.Port = 5432
	cfg.Postgres.User = "u"
	cfg.Postgres.Password = "p"
	cfg.Postgres.Database = "rewards"
	cfg.Postgres.SSLMode = "disable"

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rewards sslmode=disable", cfg.GetDSN())
}

func TestParse_StreamReclaimDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.RewardStream.ReclaimIdle)
	assert.Equal(t, 30*time.Second, cfg.RewardStream.ReclaimInterval)
}

func TestTokenSeeds(t *testing.T) {
	setRequired(t)
	t.Setenv("LEDGER_TOKENS", "STAR:2, USDC:6:base")

	cfg, err := Parse()
	require.NoError(t, err)

	seeds, err := cfg.TokenSeeds()
	require.NoError(t, err)
	assert.Equal(t, []TokenSeed{
		{ID: "STAR", Decimals: 2},
		{ID: "USDC", Decimals: 6, Chain: "base"},
	}, seeds)
}

func TestTokenSeeds_Invalid(t *testing.T) {
	for _, raw := range []string{"STAR", "STAR:x", "STAR:19", ":2", "A:1:b:c"} {
		t.Run(raw, func(t *testing.T) {
			setRequired(t)
			t.Setenv("LEDGER_TOKENS", raw)

			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "LEDGER_TOKENS")
		})
	}
}
