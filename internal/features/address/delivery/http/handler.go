package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/middleware"
	"tg-reward-ledger/internal/features/address/models"
	"tg-reward-ledger/internal/features/address/service"
)

type AddressHandler struct {
	service service.AddressService
}

func NewAddressHandler(service service.AddressService) *AddressHandler {
	return &AddressHandler{service: service}
}

func (h *AddressHandler) RegisterRoutes(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	addresses := router.Group("/addresses", requireAuth)
	{
		addresses.GET("", h.list)
		addresses.GET("/chains", h.chains)
		addresses.GET("/lookup", h.lookup)
		addresses.POST("", middleware.RequireHuman(), h.bind)
		addresses.DELETE("/:chain", h.unbind)
	}
}

// @Summary Bind an address
// @Description Binds an address on a chain to the caller, replacing any previous address on that chain. EVM addresses are stored in checksum form, TON addresses as workchain:hex.
// @Tags addresses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BindRequest true "Address"
// @Success 200 {object} models.BindResult
// @Failure 400 {object} middleware.ErrorResponse "Invalid address format"
// @Failure 403 {object} middleware.ErrorResponse "Account flagged as automated"
// @Failure 409 {object} middleware.ErrorResponse "Address bound to another identity"
// @Router /addresses [post]
func (h *AddressHandler) bind(c *gin.Context) {
	var req models.BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("address", err.Error()))
		return
	}

	res, err := h.service.Bind(c.Request.Context(), middleware.Identity(c).ExternalID, req.Chain, req.Address)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary List the caller's addresses
// @Tags addresses
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Binding
// @Router /addresses [get]
func (h *AddressHandler) list(c *gin.Context) {
	bindings, err := h.service.List(c.Request.Context(), middleware.Identity(c).ExternalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if bindings == nil {
		bindings = []*models.Binding{}
	}
	c.JSON(http.StatusOK, bindings)
}

// @Summary Supported chains
// @Tags addresses
// @Produce json
// @Security BearerAuth
// @Success 200 {array} string
// @Router /addresses/chains [get]
func (h *AddressHandler) chains(c *gin.Context) {
	c.JSON(http.StatusOK, service.SupportedChains())
}

// @Summary Find the owner of an address
// @Tags addresses
// @Produce json
// @Security BearerAuth
// @Param chain query string true "Chain" Enums(ethereum, base, ton)
// @Param address query string true "Address in any accepted spelling"
// @Success 200 {object} models.Binding
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /addresses/lookup [get]
func (h *AddressHandler) lookup(c *gin.Context) {
	binding, err := h.service.Lookup(c.Request.Context(), models.Chain(c.Query("chain")), c.Query("address"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, binding)
}

// @Summary Unbind the caller's address on a chain
// @Tags addresses
// @Produce json
// @Security BearerAuth
// @Param chain path string true "Chain" Enums(ethereum, base, ton)
// @Success 200 {object} models.Binding "The removed binding"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /addresses/{chain} [delete]
func (h *AddressHandler) unbind(c *gin.Context) {
	prev, err := h.service.Unbind(c.Request.Context(), middleware.Identity(c).ExternalID, models.Chain(c.Param("chain")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, prev)
}
