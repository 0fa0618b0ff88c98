package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/validation"
	addressmodels "tg-reward-ledger/internal/features/address/models"
	addressservice "tg-reward-ledger/internal/features/address/service"
	"tg-reward-ledger/internal/features/ledger/models"
)

// @Summary List registered tokens
// @Tags tokens
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Token
// @Router /tokens [get]
func (h *LedgerHandler) listTokens(c *gin.Context) {
	tokens, err := h.service.ListTokens(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if tokens == nil {
		tokens = []*models.Token{}
	}
	c.JSON(http.StatusOK, tokens)
}

// @Summary Get a registered token
// @Tags tokens
// @Produce json
// @Security BearerAuth
// @Param token path string true "Token ID"
// @Success 200 {object} models.Token
// @Failure 404 {object} middleware.ErrorResponse
// @Router /tokens/{token} [get]
func (h *LedgerHandler) getToken(c *gin.Context) {
	tok, err := h.service.GetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// @Summary Register or update a token
// @Description Deactivating a token blocks new rewards, deposits and freezes; existing balances can still be withdrawn. Requires FULL.
// @Tags tokens
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.TokenRequest true "Token"
// @Success 200 {object} models.Token
// @Failure 400 {object} middleware.ErrorResponse "Invalid token"
// @Router /tokens [put]
func (h *LedgerHandler) putToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", err.Error()))
		return
	}
	if err := validation.ValidateTokenID(req.ID); err != nil {
		_ = c.Error(err)
		return
	}

	contract, err := tokenContract(req.Chain, req.ContractAddress)
	if err != nil {
		_ = c.Error(err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	tok, err := h.service.RegisterToken(c.Request.Context(), models.Token{
		ID:              req.ID,
		Name:            strings.TrimSpace(req.Name),
		Symbol:          strings.TrimSpace(req.Symbol),
		Chain:           req.Chain,
		ContractAddress: contract,
		Decimals:        req.Decimals,
		Active:          active,
		MinTransfer:     req.MinTransfer,
		MaxTransfer:     req.MaxTransfer,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// tokenContract checks the chain against the address book's chains and
// returns the canonical contract address. Off-chain tokens have neither.
func tokenContract(chain, contract string) (string, error) {
	contract = strings.TrimSpace(contract)
	if chain == "" {
		if contract != "" {
			return "", errors.NewValidationError("contract_address", "requires a chain")
		}
		return "", nil
	}

	supported := false
	for _, c := range addressservice.SupportedChains() {
		if string(c) == chain {
			supported = true
			break
		}
	}
	if !supported {
		return "", errors.NewValidationError("chain", "unsupported chain")
	}
	if contract == "" {
		return "", nil
	}

	canonical, err := addressservice.Canonicalize(addressmodels.Chain(chain), contract)
	if err != nil {
		return "", errors.NewValidationError("contract_address", "invalid address for chain")
	}
	return canonical, nil
}
