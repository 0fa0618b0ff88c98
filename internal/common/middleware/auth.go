package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tg-reward-ledger/internal/common/errors"
	authmodels "tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/auth/policy"
	authservice "tg-reward-ledger/internal/features/auth/service"
	identitymodels "tg-reward-ledger/internal/features/identity/models"
)

const (
	claimsKey   = "claims"
	identityKey = "identity"
)

// RequireAuth validates the bearer credential and stores the claims and
// identity on the context.
func RequireAuth(auth authservice.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, errors.NewUnauthorizedError("missing bearer credential"))
			return
		}

		claims, identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		c.Set(identityKey, identity)
		c.Set(userIDKey, identity.ExternalID)
		c.Next()
	}
}

// RequireTier must run after RequireAuth.
func RequireTier(required authmodels.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.Check(Claims(c), required); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// RequireHuman rejects identities flagged as automated.
func RequireHuman() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.RequireHuman(Identity(c)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func Claims(c *gin.Context) *authmodels.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*authmodels.Claims)
	return claims
}

func Identity(c *gin.Context) *identitymodels.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(*identitymodels.Identity)
	return identity
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
