package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "tg-reward-ledger/docs"
	"tg-reward-ledger/internal/common/config"
	"tg-reward-ledger/internal/common/middleware"
	addresshttp "tg-reward-ledger/internal/features/address/delivery/http"
	addressservice "tg-reward-ledger/internal/features/address/service"
	authhttp "tg-reward-ledger/internal/features/auth/delivery/http"
	authservice "tg-reward-ledger/internal/features/auth/service"
	"tg-reward-ledger/internal/features/cooldown"
	identityhttp "tg-reward-ledger/internal/features/identity/delivery/http"
	identityservice "tg-reward-ledger/internal/features/identity/service"
	ledgerhttp "tg-reward-ledger/internal/features/ledger/delivery/http"
	ledgerservice "tg-reward-ledger/internal/features/ledger/service"
)

const serviceName = "tg-reward-ledger"

type Services struct {
	Auth      authservice.AuthService
	Identity  identityservice.IdentityService
	Addresses addressservice.AddressService
	Ledger    ledgerservice.LedgerService
	Cooldowns cooldown.Tracker
}

// HealthCheck checks that a backing store answers.
type HealthCheck func(ctx context.Context) error

func NewRouter(cfg *config.Config, svcs Services, checks map[string]HealthCheck) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.HandleErrors())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	requireAuth := middleware.RequireAuth(svcs.Auth)

	v1 := router.Group("/api/v1")
	authhttp.NewAuthHandler(svcs.Auth).RegisterRoutes(v1, requireAuth)
	identityhttp.NewIdentityHandler(svcs.Identity, svcs.Addresses, svcs.Cooldowns).RegisterRoutes(v1, requireAuth)
	addresshttp.NewAddressHandler(svcs.Addresses).RegisterRoutes(v1, requireAuth)
	ledgerhttp.NewLedgerHandler(svcs.Ledger).RegisterRoutes(v1, requireAuth)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", readiness(checks))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

func readiness(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   name + " unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	}
}
