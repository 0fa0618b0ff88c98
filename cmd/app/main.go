package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg-reward-ledger/internal/common/config"
	"tg-reward-ledger/internal/common/logger"
	"tg-reward-ledger/internal/server"
)

// @title           Telegram Reward Ledger API
// @version         1.0
// @description     Telegram identity, address binding and reward ledger service.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Credential issued by /auth/telegram or /auth/webapp, sent as "Bearer <token>"

// @tag.name auth
// @tag.description Telegram login and credentials

// @tag.name users
// @tag.description Identities and access tiers

// @tag.name chats
// @tag.description Chat identities holding reward pools

// @tag.name addresses
// @tag.description External wallet address binding

// @tag.name balances
// @tag.description Token balances, freezes and admin adjustments

// @tag.name rewards
// @tag.description Guarded reward transfers and the event log

// @tag.name policies
// @tag.description Per-recipient reward policies

func main() {
	cfg := config.Load()

	logger.Init("tg-reward-ledger", cfg.Debug)
	logger.Info().
		Str("version", "1.0.0").
		Bool("debug", cfg.Debug).
		Msg("Starting reward ledger")

	app, err := server.Bootstrap(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer app.Close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	app.StartWorkers(workerCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
