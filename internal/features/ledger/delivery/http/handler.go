package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/middleware"
	"tg-reward-ledger/internal/common/validation"
	authmodels "tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/ledger/models"
	"tg-reward-ledger/internal/features/ledger/service"
)

type LedgerHandler struct {
	service service.LedgerService
}

func NewLedgerHandler(service service.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	admin := middleware.RequireTier(authmodels.TierAdmin)
	full := middleware.RequireTier(authmodels.TierFull)

	balances := router.Group("/balances", requireAuth)
	{
		balances.GET("", h.listBalances)
		balances.GET("/:token", h.getBalance)
		balances.POST("/:token/freeze", admin, h.freeze)
		balances.POST("/:token/unfreeze", admin, h.unfreeze)
		balances.POST("/:token/deposit", full, h.deposit)
		balances.POST("/:token/withdraw", full, h.withdraw)
	}

	rewards := router.Group("/rewards", requireAuth)
	{
		rewards.GET("", h.listEvents)
		rewards.POST("", middleware.RequireHuman(), h.applyReward)
		rewards.POST("/pool", admin, h.applyPoolReward)
	}

	policies := router.Group("/policies", requireAuth)
	{
		policies.GET("/:owner/:token", h.getPolicy)
		policies.PUT("", admin, h.setPolicy)
	}

	tokens := router.Group("/tokens", requireAuth)
	{
		tokens.GET("", h.listTokens)
		tokens.GET("/:token", h.getToken)
		tokens.PUT("", full, h.putToken)
	}
}

// @Summary List the caller's balances
// @Tags balances
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.BalanceResponse
// @Router /balances [get]
func (h *LedgerHandler) listBalances(c *gin.Context) {
	balances, err := h.service.ListBalances(c.Request.Context(), middleware.Identity(c).ExternalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := make([]models.BalanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, models.NewBalanceResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Get the caller's balance of a token
// @Description Balances are created at zero on first access.
// @Tags balances
// @Produce json
// @Security BearerAuth
// @Param token path string true "Token ID"
// @Success 200 {object} models.BalanceResponse
// @Router /balances/{token} [get]
func (h *LedgerHandler) getBalance(c *gin.Context) {
	tokenID := c.Param("token")
	if err := validation.ValidateTokenID(tokenID); err != nil {
		_ = c.Error(err)
		return
	}

	b, err := h.service.GetOrCreateBalance(c.Request.Context(), middleware.Identity(c).ExternalID, tokenID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewBalanceResponse(b))
}

// @Summary Send a reward
// @Description Debits the sender's available balance and credits the recipient. Non-admin callers always send from their own balance; admins may name any sender or omit it to mint. A repeated external_message_ref returns the original event.
// @Tags rewards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.RewardRequest true "Reward"
// @Success 200 {object} models.RewardEvent
// @Failure 400 {object} middleware.ErrorResponse "Amount out of range"
// @Failure 403 {object} middleware.ErrorResponse "Account flagged as automated"
// @Failure 422 {object} middleware.ErrorResponse "Policy disabled or insufficient funds"
// @Failure 429 {object} middleware.ErrorResponse "Cooldown active"
// @Router /rewards [post]
func (h *LedgerHandler) applyReward(c *gin.Context) {
	var req models.RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	if err := validateReward(req.TokenID, req.Amount, req.Action, req.Reason, req.ExternalMessageRef); err != nil {
		_ = c.Error(err)
		return
	}

	if !middleware.Claims(c).Tier.AtLeast(authmodels.TierAdmin) {
		caller := middleware.Identity(c).ExternalID
		if req.FromID != nil && *req.FromID != caller {
			_ = c.Error(errors.NewForbiddenError("from_id must be the caller"))
			return
		}
		req.FromID = &caller
	}

	ev, err := h.service.ApplyReward(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// @Summary Pay a reward from a chat pool
// @Description Debits the pool's available balance under the pool's policy. The cooldown is charged to from_id, the user who triggered the reward. Requires ADMIN.
// @Tags rewards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PoolRewardRequest true "Pool reward"
// @Success 200 {object} models.RewardEvent
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Router /rewards/pool [post]
func (h *LedgerHandler) applyPoolReward(c *gin.Context) {
	var req models.PoolRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	if err := validateReward(req.TokenID, req.Amount, req.Action, req.Reason, req.ExternalMessageRef); err != nil {
		_ = c.Error(err)
		return
	}

	ev, err := h.service.ApplyPoolReward(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// @Summary List reward events
// @Description Newest first. Admins may pass owner_id to inspect another identity.
// @Tags rewards
// @Produce json
// @Security BearerAuth
// @Param token query string false "Token ID"
// @Param owner_id query int false "Owner (admin only)"
// @Param before query int false "Return events with ID below this"
// @Param limit query int false "Page size, max 200"
// @Success 200 {array} models.RewardEvent
// @Router /rewards [get]
func (h *LedgerHandler) listEvents(c *gin.Context) {
	owner := middleware.Identity(c).ExternalID
	if raw := c.Query("owner_id"); raw != "" {
		if !middleware.Claims(c).Tier.AtLeast(authmodels.TierAdmin) {
			_ = c.Error(authmodels.ErrInsufficientAccess)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			_ = c.Error(errors.NewValidationError("owner_id", "must be an integer"))
			return
		}
		owner = id
	}

	before, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.service.ListEvents(c.Request.Context(), models.EventFilter{
		OwnerID:  &owner,
		TokenID:  c.Query("token"),
		BeforeID: before,
		Limit:    limit,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	if events == nil {
		events = []*models.RewardEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// @Summary Freeze part of a balance
// @Description Moves amount from available to frozen. Requires ADMIN.
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Token ID"
// @Param request body models.AmountRequest true "Owner and amount"
// @Success 200 {object} models.BalanceResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid freeze amount"
// @Failure 422 {object} middleware.ErrorResponse "Insufficient funds"
// @Router /balances/{token}/freeze [post]
func (h *LedgerHandler) freeze(c *gin.Context) {
	h.amountOp(c, func(owner int64, token string, req models.AmountRequest) (*models.Balance, error) {
		return h.service.Freeze(c.Request.Context(), owner, token, req.Amount)
	})
}

// @Summary Unfreeze part of a balance
// @Description Requires ADMIN.
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Token ID"
// @Param request body models.AmountRequest true "Owner and amount"
// @Success 200 {object} models.BalanceResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid freeze amount"
// @Router /balances/{token}/unfreeze [post]
func (h *LedgerHandler) unfreeze(c *gin.Context) {
	h.amountOp(c, func(owner int64, token string, req models.AmountRequest) (*models.Balance, error) {
		return h.service.Unfreeze(c.Request.Context(), owner, token, req.Amount)
	})
}

// @Summary Deposit into a balance
// @Description Credits total. Requires FULL.
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Token ID"
// @Param request body models.AmountRequest true "Owner and amount"
// @Success 200 {object} models.BalanceResponse
// @Router /balances/{token}/deposit [post]
func (h *LedgerHandler) deposit(c *gin.Context) {
	h.amountOp(c, func(owner int64, token string, req models.AmountRequest) (*models.Balance, error) {
		return h.service.Deposit(c.Request.Context(), owner, token, req.Amount, req.Reason)
	})
}

// @Summary Withdraw from a balance
// @Description Debits available balance. Requires FULL.
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Token ID"
// @Param request body models.AmountRequest true "Owner and amount"
// @Success 200 {object} models.BalanceResponse
// @Failure 422 {object} middleware.ErrorResponse "Insufficient funds"
// @Router /balances/{token}/withdraw [post]
func (h *LedgerHandler) withdraw(c *gin.Context) {
	h.amountOp(c, func(owner int64, token string, req models.AmountRequest) (*models.Balance, error) {
		return h.service.Withdraw(c.Request.Context(), owner, token, req.Amount, req.Reason)
	})
}

// amountOp binds an AmountRequest for the :token balance. owner_id defaults
// to the caller.
func (h *LedgerHandler) amountOp(c *gin.Context, op func(owner int64, token string, req models.AmountRequest) (*models.Balance, error)) {
	tokenID := c.Param("token")
	if err := validation.ValidateTokenID(tokenID); err != nil {
		_ = c.Error(err)
		return
	}

	var req models.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	if err := validation.First(
		validation.ValidateAmountScale(req.Amount, "amount"),
		validation.ValidateReason(req.Reason),
	); err != nil {
		_ = c.Error(err)
		return
	}

	owner := middleware.Identity(c).ExternalID
	if req.OwnerID != nil {
		owner = *req.OwnerID
	}

	b, err := op(owner, tokenID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewBalanceResponse(b))
}

// @Summary Get a reward policy
// @Tags policies
// @Produce json
// @Security BearerAuth
// @Param owner path int true "Recipient or pool ID"
// @Param token path string true "Token ID"
// @Success 200 {object} models.RewardPolicy
// @Failure 404 {object} middleware.ErrorResponse
// @Router /policies/{owner}/{token} [get]
func (h *LedgerHandler) getPolicy(c *gin.Context) {
	owner, err := strconv.ParseInt(c.Param("owner"), 10, 64)
	if err != nil {
		_ = c.Error(errors.NewValidationError("owner", "must be an integer"))
		return
	}

	p, err := h.service.GetPolicy(c.Request.Context(), owner, c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Create or replace a reward policy
// @Description Requires ADMIN.
// @Tags policies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PolicyRequest true "Policy"
// @Success 200 {object} models.RewardPolicy
// @Failure 400 {object} middleware.ErrorResponse "Invalid policy"
// @Router /policies [put]
func (h *LedgerHandler) setPolicy(c *gin.Context) {
	var req models.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	if err := validation.First(
		validation.ValidateTokenID(req.TokenID),
		validation.ValidateAmountScale(req.MinAmount, "min_amount"),
		validation.ValidateAmountScale(req.MaxAmount, "max_amount"),
	); err != nil {
		_ = c.Error(err)
		return
	}

	p, err := h.service.SetPolicy(c.Request.Context(), models.RewardPolicy{
		OwnerID:   req.OwnerID,
		TokenID:   req.TokenID,
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
		Enabled:   req.Enabled,
		Cooldown:  time.Duration(req.CooldownSeconds) * time.Second,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func validateReward(tokenID string, amount decimal.Decimal, action, reason string, ref *string) error {
	return validation.First(
		validation.ValidateTokenID(tokenID),
		validation.ValidateAmountScale(amount, "amount"),
		validation.ValidateAction(action),
		validation.ValidateReason(reason),
		validation.ValidateExternalRef(ref),
	)
}
