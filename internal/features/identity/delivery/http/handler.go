package http

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/middleware"
	"tg-reward-ledger/internal/common/validation"
	addressservice "tg-reward-ledger/internal/features/address/service"
	authmodels "tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/cooldown"
	"tg-reward-ledger/internal/features/identity/models"
	"tg-reward-ledger/internal/features/identity/service"
)

type IdentityHandler struct {
	service   service.IdentityService
	addresses addressservice.AddressService
	cooldowns cooldown.Tracker
}

func NewIdentityHandler(service service.IdentityService, addresses addressservice.AddressService, cooldowns cooldown.Tracker) *IdentityHandler {
	return &IdentityHandler{
		service:   service,
		addresses: addresses,
		cooldowns: cooldowns,
	}
}

func (h *IdentityHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	users := router.Group("/users", requireAuth)
	{
		users.GET("/me", h.getMe)
		users.GET("/me/cooldowns", h.getMyCooldowns)
		users.GET("/:id", h.getIdentity)
	}

	admin := router.Group("", requireAuth, middleware.RequireTier(authmodels.TierAdmin))
	{
		admin.PUT("/users/:id/tier", h.updateTier)
		admin.PUT("/users/:id/active", h.updateActive)
		admin.POST("/chats", h.registerChat)
	}
}

// @Summary Get current identity
// @Description Returns the caller's identity together with its bound addresses per chain.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MeResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /users/me [get]
func (h *IdentityHandler) getMe(c *gin.Context) {
	identity := middleware.Identity(c)

	bindings, err := h.addresses.List(c.Request.Context(), identity.ExternalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	bound := make(map[string]string, len(bindings))
	for _, b := range bindings {
		bound[string(b.Chain)] = b.Address
	}

	c.JSON(http.StatusOK, models.MeResponse{
		Identity:       identity,
		DisplayName:    identity.DisplayName(),
		BoundAddresses: bound,
	})
}

// @Summary List active cooldowns of the caller
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} cooldown.Entry
// @Failure 401 {object} middleware.ErrorResponse
// @Router /users/me/cooldowns [get]
func (h *IdentityHandler) getMyCooldowns(c *gin.Context) {
	entries, err := h.cooldowns.List(c.Request.Context(), middleware.Identity(c).ExternalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if entries == nil {
		entries = []cooldown.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// @Summary Get identity by Telegram ID
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "Telegram user or chat ID"
// @Success 200 {object} models.Identity
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/{id} [get]
func (h *IdentityHandler) getIdentity(c *gin.Context) {
	id, ok := externalID(c)
	if !ok {
		return
	}

	identity, err := h.service.Get(c.Request.Context(), id)
	if stderrors.Is(err, models.ErrIdentityNotFound) {
		_ = c.Error(errors.NewUserNotFoundError(id))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// @Summary Grant an access tier
// @Description Sets the identity's tier. Configured administrators never drop below ADMIN. Requires ADMIN.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Telegram user ID"
// @Param request body models.TierUpdate true "New tier"
// @Success 200 {object} models.Identity
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /users/{id}/tier [put]
func (h *IdentityHandler) updateTier(c *gin.Context) {
	id, ok := externalID(c)
	if !ok {
		return
	}

	var req models.TierUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("tier", err.Error()))
		return
	}
	tier, err := authmodels.ParseTier(req.Tier)
	if err != nil {
		_ = c.Error(errors.NewValidationError("tier", err.Error()))
		return
	}

	identity, err := h.service.GrantTier(c.Request.Context(), id, tier)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// @Summary Activate or deactivate an identity
// @Description Deactivated identities can neither log in nor use existing credentials. Requires ADMIN.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Telegram user ID"
// @Param request body models.ActiveUpdate true "Activation flag"
// @Success 200 {object} models.Identity
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /users/{id}/active [put]
func (h *IdentityHandler) updateActive(c *gin.Context) {
	id, ok := externalID(c)
	if !ok {
		return
	}

	var req models.ActiveUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("active", err.Error()))
		return
	}

	identity, err := h.service.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// @Summary Register a chat
// @Description Creates or refreshes a chat identity that can hold a reward pool. When title is omitted it is fetched through the Bot API. Requires ADMIN.
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChatProfile true "Chat"
// @Success 200 {object} models.Identity
// @Failure 400 {object} middleware.ErrorResponse
// @Router /chats [post]
func (h *IdentityHandler) registerChat(c *gin.Context) {
	var req models.ChatProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("external_id", err.Error()))
		return
	}
	if req.Title != "" {
		if err := validation.ValidateChatTitle(req.Title); err != nil {
			_ = c.Error(err)
			return
		}
	}
	if req.Username != "" {
		if err := validation.ValidateUsername(req.Username); err != nil {
			_ = c.Error(err)
			return
		}
	}

	identity, err := h.service.RegisterChat(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func externalID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(errors.NewValidationError("id", "must be an integer Telegram ID"))
		return 0, false
	}
	return id, true
}
