package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	// Storage for identities, addresses and the ledger.
	Storage struct {
		Backend string `env:"STORAGE_BACKEND" envDefault:"memory"` // memory, postgres
	}

	Postgres struct {
		Host            string        `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int           `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string        `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string        `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string        `env:"POSTGRES_DB" envDefault:"rewards"`
		SSLMode         string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
		AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"false"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
		Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	}

	Telegram struct {
		BotToken string  `env:"BOT_TOKEN,required,notEmpty"`
		AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
		// Maximum age of auth_date for login widget and Mini App payloads.
		AuthFreshness time.Duration `env:"TELEGRAM_AUTH_FRESHNESS" envDefault:"24h"`
		// Fetch missing chat titles through the Bot API on chat registration.
		ResolveChats bool   `env:"TELEGRAM_RESOLVE_CHATS" envDefault:"false"`
		APIBaseURL   string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	}

	Auth struct {
		JWTSecret          string        `env:"JWT_SECRET,required,notEmpty"`
		Issuer             string        `env:"JWT_ISSUER" envDefault:"tg-reward-ledger"`
		CredentialLifetime time.Duration `env:"CREDENTIAL_LIFETIME" envDefault:"876000h"` // ~100 years
		Revocation         string        `env:"REVOCATION_BACKEND" envDefault:"none"`     // none, memory, redis
		IdentityCacheTTL   time.Duration `env:"IDENTITY_CACHE_TTL" envDefault:"30s"`
	}

	BotHeuristics struct {
		MinAccountAge     time.Duration `env:"BOT_MIN_ACCOUNT_AGE" envDefault:"720h"`
		MinAuthInterval   time.Duration `env:"BOT_MIN_AUTH_INTERVAL" envDefault:"2s"`
		RequireProfileHit bool          `env:"BOT_REQUIRE_PROFILE" envDefault:"true"`
	}

	Cooldown struct {
		Backend string `env:"COOLDOWN_BACKEND" envDefault:"memory"` // memory, redis
	}

	// Bot-published reward events consumed from a Redis stream.
	RewardStream struct {
		Enabled  bool   `env:"REWARD_STREAM_ENABLED" envDefault:"false"`
		Key      string `env:"REWARD_STREAM_KEY" envDefault:"bot:rewards"`
		Group    string `env:"REWARD_STREAM_GROUP" envDefault:"reward_ledger"`
		Consumer string `env:"REWARD_STREAM_CONSUMER" envDefault:"ledger_worker_1"`
		// Entries unacknowledged this long are taken over and retried.
		ReclaimIdle     time.Duration `env:"REWARD_STREAM_RECLAIM_IDLE" envDefault:"1m"`
		ReclaimInterval time.Duration `env:"REWARD_STREAM_RECLAIM_INTERVAL" envDefault:"30s"`
	}

	// Tokens registered at startup when missing, as ID:decimals[:chain].
	Ledger struct {
		Tokens []string `env:"LEDGER_TOKENS" envSeparator:"," envDefault:"STAR:2"`
	}

	Locks struct {
		Backend    string        `env:"LOCK_BACKEND" envDefault:"memory"` // memory, redis
		TTL        time.Duration `env:"LOCK_TTL" envDefault:"10s"`
		RetryDelay time.Duration `env:"LOCK_RETRY_DELAY" envDefault:"20ms"`
		WaitLimit  time.Duration `env:"LOCK_WAIT_LIMIT" envDefault:"5s"`
	}
}

// GetDSN builds a lib/pq connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password, c.Postgres.Database, c.Postgres.SSLMode)
}

// RedisAddr returns host:port for go-redis.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// IsAdmin reports whether the Telegram ID is in the bootstrap admin list.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// TokenSeed is one LEDGER_TOKENS entry.
type TokenSeed struct {
	ID       string
	Decimals int32
	Chain    string
}

// TokenSeeds parses LEDGER_TOKENS.
func (c *Config) TokenSeeds() ([]TokenSeed, error) {
	seeds := make([]TokenSeed, 0, len(c.Ledger.Tokens))
	for _, raw := range c.Ledger.Tokens {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("LEDGER_TOKENS entry %q must be ID:decimals[:chain]", raw)
		}
		decimals, err := strconv.ParseInt(parts[1], 10, 32)
		if err != nil || decimals < 0 || decimals > 18 {
			return nil, fmt.Errorf("LEDGER_TOKENS entry %q: decimals must be 0-18", raw)
		}
		seed := TokenSeed{ID: parts[0], Decimals: int32(decimals)}
		if len(parts) == 3 {
			seed.Chain = parts[2]
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	for name, backend := range map[string]string{
		"COOLDOWN_BACKEND": c.Cooldown.Backend,
		"LOCK_BACKEND":     c.Locks.Backend,
	} {
		switch backend {
		case BackendMemory:
		case BackendRedis:
			if !c.Redis.Enabled {
				return fmt.Errorf("%s=redis requires REDIS_ENABLED=true", name)
			}
		default:
			return fmt.Errorf("unsupported %s %q", name, backend)
		}
	}
	switch c.Auth.Revocation {
	case "none", BackendMemory:
	case BackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("REVOCATION_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("unsupported REVOCATION_BACKEND %q", c.Auth.Revocation)
	}
	if c.RewardStream.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("REWARD_STREAM_ENABLED requires REDIS_ENABLED=true")
	}
	if c.RewardStream.ReclaimIdle <= 0 || c.RewardStream.ReclaimInterval <= 0 {
		return fmt.Errorf("REWARD_STREAM_RECLAIM_IDLE and REWARD_STREAM_RECLAIM_INTERVAL must be positive")
	}
	if _, err := c.TokenSeeds(); err != nil {
		return err
	}
	if c.Auth.CredentialLifetime <= 0 {
		return fmt.Errorf("CREDENTIAL_LIFETIME must be positive")
	}
	return nil
}

// Parse reads the environment into a Config without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load() *Config {
	// .env is optional; production sets variables directly
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		panic(err)
	}
	return cfg
}
