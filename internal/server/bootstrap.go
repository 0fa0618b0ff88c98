package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"tg-reward-ledger/internal/common/cache"
	"tg-reward-ledger/internal/common/config"
	"tg-reward-ledger/internal/common/keylock"
	"tg-reward-ledger/internal/common/logger"
	addressrepo "tg-reward-ledger/internal/features/address/repository"
	addressmemory "tg-reward-ledger/internal/features/address/repository/memory"
	addresspostgres "tg-reward-ledger/internal/features/address/repository/postgres"
	addressservice "tg-reward-ledger/internal/features/address/service"
	authmodels "tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/auth/credential"
	"tg-reward-ledger/internal/features/auth/policy"
	authservice "tg-reward-ledger/internal/features/auth/service"
	"tg-reward-ledger/internal/features/auth/signature"
	"tg-reward-ledger/internal/features/cooldown"
	cdmemory "tg-reward-ledger/internal/features/cooldown/memory"
	cdredis "tg-reward-ledger/internal/features/cooldown/redis"
	identityrepo "tg-reward-ledger/internal/features/identity/repository"
	identitymemory "tg-reward-ledger/internal/features/identity/repository/memory"
	identitypostgres "tg-reward-ledger/internal/features/identity/repository/postgres"
	identityservice "tg-reward-ledger/internal/features/identity/service"
	ledgermodels "tg-reward-ledger/internal/features/ledger/models"
	ledgerrepo "tg-reward-ledger/internal/features/ledger/repository"
	ledgermemory "tg-reward-ledger/internal/features/ledger/repository/memory"
	ledgerpostgres "tg-reward-ledger/internal/features/ledger/repository/postgres"
	ledgerservice "tg-reward-ledger/internal/features/ledger/service"
	"tg-reward-ledger/internal/platform/postgres"
	"tg-reward-ledger/internal/platform/redis"
	"tg-reward-ledger/internal/platform/telegram"
	"tg-reward-ledger/internal/workers"
)

// App owns the backends selected by configuration and the services built on
// top of them.
type App struct {
	Config       *config.Config
	Services     Services
	HealthChecks map[string]HealthCheck
	// Stream is nil unless the reward stream is enabled.
	Stream *workers.RewardStreamWorker

	closers []func() error
}

// Bootstrap connects the configured backends and wires every service.
func Bootstrap(cfg *config.Config) (*App, error) {
	return bootstrap(cfg, time.Now)
}

func bootstrap(cfg *config.Config, now func() time.Time) (app *App, err error) {
	app = &App{Config: cfg, HealthChecks: map[string]HealthCheck{}}
	defer func() {
		if err != nil {
			app.Close()
			app = nil
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(cfg)
		if err != nil {
			return app, err
		}
		app.closers = append(app.closers, rdb.Close)
		app.HealthChecks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}

	var (
		identities identityrepo.Repository
		addresses  addressrepo.Repository
		ledger     ledgerrepo.Repository
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := postgres.NewClient(cfg)
		if err != nil {
			return app, err
		}
		app.closers = append(app.closers, pg.Close)
		app.HealthChecks["postgres"] = pg.HealthCheck

		identities = identitypostgres.NewPostgresRepository(pg.GetDB())
		addresses = addresspostgres.NewPostgresRepository(pg.GetDB())
		ledger = ledgerpostgres.NewPostgresRepository(pg.GetDB())
	default:
		identities = identitymemory.NewRepository()
		addresses = addressmemory.NewRepository()
		ledger = ledgermemory.NewRepository(now)
	}

	var locks keylock.Locker = keylock.NewLocal()
	if cfg.Locks.Backend == config.BackendRedis {
		locks = keylock.NewRedis(rdb.Client, cfg.Locks.TTL, cfg.Locks.RetryDelay, cfg.Locks.WaitLimit)
	}

	var cooldowns cooldown.Tracker = cdmemory.NewTracker(now)
	if cfg.Cooldown.Backend == config.BackendRedis {
		cooldowns = cdredis.NewTracker(rdb.Client)
	}

	var revocations credential.RevocationList = credential.NoRevocation{}
	switch cfg.Auth.Revocation {
	case config.BackendMemory:
		revocations = credential.NewMemoryRevocation(now)
	case config.BackendRedis:
		revocations = credential.NewRedisRevocation(rdb.Client)
	}

	identityOpts := identityservice.Options{
		BootstrapTier: func(externalID int64) authmodels.Tier {
			if cfg.IsAdmin(externalID) {
				return authmodels.TierFull
			}
			return authmodels.TierNone
		},
		CacheTTL: cfg.Auth.IdentityCacheTTL,
		Now:      now,
	}
	if rdb != nil {
		identityOpts.Cache = cache.NewCacheService(rdb.Client)
	}
	if cfg.Telegram.ResolveChats {
		identityOpts.Chats = telegram.NewClient(cfg.Telegram.BotToken, telegram.WithBaseURL(cfg.Telegram.APIBaseURL))
	}
	identitySvc := identityservice.NewIdentityService(identities, locks, identityOpts)

	issuer := credential.NewIssuer([]byte(cfg.Auth.JWTSecret),
		credential.WithIssuer(cfg.Auth.Issuer),
		credential.WithLifetime(cfg.Auth.CredentialLifetime),
		credential.WithRevocationList(revocations),
		credential.WithClock(now),
	)
	verifier := signature.NewVerifier(cfg.Telegram.BotToken,
		signature.WithClock(now),
		signature.WithDefaultWindow(cfg.Telegram.AuthFreshness),
	)

	app.Services = Services{
		Auth: authservice.NewAuthService(verifier, issuer, identitySvc, authservice.Options{
			Freshness: cfg.Telegram.AuthFreshness,
			Heuristics: policy.Heuristics{
				MinAccountAge:   cfg.BotHeuristics.MinAccountAge,
				MinAuthInterval: cfg.BotHeuristics.MinAuthInterval,
				RequireProfile:  cfg.BotHeuristics.RequireProfileHit,
			},
			Now: now,
		}),
		Identity:  identitySvc,
		Addresses: addressservice.NewAddressService(addresses, locks, now),
		Ledger:    ledgerservice.NewLedgerService(ledger, cooldowns, locks, now),
		Cooldowns: cooldowns,
	}

	if err = seedTokens(cfg, app.Services.Ledger); err != nil {
		return nil, err
	}

	if cfg.RewardStream.Enabled {
		app.Stream = workers.NewRewardStreamWorker(rdb.Client, app.Services.Ledger, identitySvc, workers.StreamConfig{
			Key:      cfg.RewardStream.Key,
			Group:    cfg.RewardStream.Group,
			Consumer:        cfg.RewardStream.Consumer,
			MinIdle:         cfg.RewardStream.ReclaimIdle,
			ReclaimInterval: cfg.RewardStream.ReclaimInterval,
		})
	}

	logger.Info().
		Str("storage", cfg.Storage.Backend).
		Str("locks", cfg.Locks.Backend).
		Str("cooldowns", cfg.Cooldown.Backend).
		Str("revocation", cfg.Auth.Revocation).
		Bool("redis", rdb != nil).
		Bool("reward_stream", app.Stream != nil).
		Msg("Services initialized")

	return app, nil
}

// seedTokens registers LEDGER_TOKENS entries that are not in the catalog
// yet. Existing tokens are left as an operator configured them.
func seedTokens(cfg *config.Config, ledger ledgerservice.LedgerService) error {
	seeds, err := cfg.TokenSeeds()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, seed := range seeds {
		_, err := ledger.GetToken(ctx, seed.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ledgermodels.ErrTokenNotFound) {
			return fmt.Errorf("failed to look up token %s: %w", seed.ID, err)
		}
		if _, err := ledger.RegisterToken(ctx, ledgermodels.Token{
			ID:       seed.ID,
			Name:     seed.ID,
			Symbol:   seed.ID,
			Chain:    seed.Chain,
			Decimals: seed.Decimals,
			Active:   true,
		}); err != nil {
			return fmt.Errorf("failed to seed token %s: %w", seed.ID, err)
		}
	}
	return nil
}

// StartWorkers runs background consumers until ctx is done.
func (a *App) StartWorkers(ctx context.Context) {
	if a.Stream != nil {
		go a.Stream.Start(ctx)
	}
}

func (a *App) Router() *gin.Engine {
	return NewRouter(a.Config, a.Services, a.HealthChecks)
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn().Err(err).Msg("Failed to close backend")
		}
	}
	a.closers = nil
}
