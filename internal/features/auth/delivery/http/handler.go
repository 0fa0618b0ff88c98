package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/middleware"
	"tg-reward-ledger/internal/features/auth/models"
	"tg-reward-ledger/internal/features/auth/service"
)

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(service service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	auth := router.Group("/auth")
	{
		auth.POST("/telegram", h.loginWidget)
		auth.GET("/telegram/callback", h.loginWidgetCallback)
		auth.POST("/webapp", h.loginWebApp)
		auth.GET("/me", requireAuth, h.me)
		auth.POST("/revoke", requireAuth, middleware.RequireTier(models.TierAdmin), h.revoke)
	}
}

// @Summary Log in with the Telegram login widget
// @Description Verifies the widget payload and issues a bearer credential. The identity is created on first login.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginWidgetRequest true "Widget payload"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} middleware.ErrorResponse "Malformed payload"
// @Failure 401 {object} middleware.ErrorResponse "Signature mismatch or stale auth data"
// @Failure 403 {object} middleware.ErrorResponse "Identity deactivated"
// @Router /auth/telegram [post]
func (h *AuthHandler) loginWidget(c *gin.Context) {
	var req models.LoginWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeMalformedPayload, "Invalid login widget payload"))
		return
	}

	resp, err := h.service.LoginWidget(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Login widget redirect callback
// @Description Redirect-mode variant of the widget login; signed fields arrive as query parameters.
// @Tags auth
// @Produce json
// @Param id query int true "Telegram user ID"
// @Param auth_date query int true "Unix time of authentication"
// @Param hash query string true "Widget signature"
// @Success 200 {object} models.LoginResponse
// @Failure 401 {object} middleware.ErrorResponse "Signature mismatch or stale auth data"
// @Router /auth/telegram/callback [get]
func (h *AuthHandler) loginWidgetCallback(c *gin.Context) {
	resp, err := h.service.LoginWidgetQuery(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Log in from a Mini App
// @Description Verifies raw Telegram.WebApp.initData and issues a bearer credential. A start_param of ref_<id> records the referrer on first login.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.WebAppLoginRequest true "Init data"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} middleware.ErrorResponse "Malformed init data"
// @Failure 401 {object} middleware.ErrorResponse "Signature mismatch or stale auth data"
// @Router /auth/webapp [post]
func (h *AuthHandler) loginWebApp(c *gin.Context) {
	var req models.WebAppLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeMalformedPayload, "Invalid init data payload"))
		return
	}

	resp, err := h.service.LoginWebApp(c.Request.Context(), req.InitData)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Current credential
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Claims
// @Failure 401 {object} middleware.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Claims(c))
}

// @Summary Revoke a credential
// @Description Revokes a credential by its jti. Requires ADMIN.
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Param request body models.RevokeRequest true "Credential to revoke"
// @Success 204
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse "No revocation list configured"
// @Router /auth/revoke [post]
func (h *AuthHandler) revoke(c *gin.Context) {
	var req models.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("jti", err.Error()))
		return
	}

	if err := h.service.Revoke(c.Request.Context(), req.JTI, req.Until); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
