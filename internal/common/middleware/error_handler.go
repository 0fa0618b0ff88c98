package middleware

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-reward-ledger/internal/common/errors"
	"tg-reward-ledger/internal/common/keylock"
	"tg-reward-ledger/internal/common/logger"
	addressmodels "tg-reward-ledger/internal/features/address/models"
	authmodels "tg-reward-ledger/internal/features/auth/models"
	identitymodels "tg-reward-ledger/internal/features/identity/models"
	ledgermodels "tg-reward-ledger/internal/features/ledger/models"
	"tg-reward-ledger/internal/platform/telegram"
)

const (
	requestIDKey = "request_id"
	userIDKey    = "user_id"
)

// Recovery renders panics as INTERNAL_ERROR responses.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error().
			Str("request_id", getRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))
		sendErrorResponse(c, appErr)
	})
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
	Method    string           `json:"method,omitempty"`
}

// HandleErrors renders the last error a handler attached with c.Error.
func HandleErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := MapError(c.Errors.Last().Err).WithUserID(getUserID(c))
		sendErrorResponse(c, appErr)
	}
}

// AbortWithError attaches err and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

type errorMapping struct {
	target error
	build  func(err error) *errors.AppError
}

func coded(code errors.ErrorCode, message string) func(error) *errors.AppError {
	return func(err error) *errors.AppError {
		return errors.Wrap(err, code, message)
	}
}

func notFound(resource string) func(error) *errors.AppError {
	return func(err error) *errors.AppError {
		appErr := errors.NewNotFoundError(resource, nil)
		appErr.Cause = err
		return appErr
	}
}

func conflict(resource, reason string) func(error) *errors.AppError {
	return func(err error) *errors.AppError {
		appErr := errors.NewConflictError(resource, reason)
		appErr.Cause = err
		return appErr
	}
}

var errorTable = []errorMapping{
	{authmodels.ErrSignatureMismatch, coded(errors.ErrCodeSignatureMismatch, "Telegram signature does not match")},
	{authmodels.ErrStale, coded(errors.ErrCodeStaleAuthData, "Telegram auth data is too old")},
	{authmodels.ErrMalformedPayload, coded(errors.ErrCodeMalformedPayload, "Malformed auth payload")},
	{authmodels.ErrInvalidSignature, coded(errors.ErrCodeInvalidCredential, "Invalid credential")},
	{authmodels.ErrExpired, coded(errors.ErrCodeCredentialExpired, "Credential expired")},
	{authmodels.ErrRevoked, coded(errors.ErrCodeCredentialRevoked, "Credential revoked")},
	{authmodels.ErrInsufficientAccess, coded(errors.ErrCodeInsufficientAccess, "Insufficient access tier")},
	{authmodels.ErrBotSuspected, coded(errors.ErrCodeBotSuspected, "Account flagged as automated")},

	{identitymodels.ErrIdentityNotFound, coded(errors.ErrCodeUserNotFound, "Identity not found")},
	{identitymodels.ErrIdentityExists, conflict("identity", "already exists")},
	{identitymodels.ErrInactive, coded(errors.ErrCodeUserInactive, "Identity is deactivated")},

	{addressmodels.ErrInvalidFormat, coded(errors.ErrCodeInvalidAddress, "Invalid address format")},
	{addressmodels.ErrAddressTaken, coded(errors.ErrCodeAddressTaken, "Address is bound to another identity")},
	{addressmodels.ErrBindingNotFound, notFound("Address binding")},

	{ledgermodels.ErrPolicyDisabled, coded(errors.ErrCodePolicyDisabled, "Rewards are disabled for this recipient")},
	{ledgermodels.ErrAmountOutOfRange, coded(errors.ErrCodeAmountOutOfRange, "Amount is outside the allowed range")},
	{ledgermodels.ErrAmountPrecision, coded(errors.ErrCodeAmountPrecision, "Amount has more decimal places than the token allows")},
	{ledgermodels.ErrCooldownActive, coded(errors.ErrCodeCooldownActive, "Cooldown is active")},
	{ledgermodels.ErrInsufficientFunds, coded(errors.ErrCodeInsufficientFunds, "Insufficient available balance")},
	{ledgermodels.ErrInvalidFreezeAmount, coded(errors.ErrCodeInvalidFreezeAmount, "Invalid freeze amount")},
	{ledgermodels.ErrInvalidPolicy, coded(errors.ErrCodeInvalidPolicy, "Invalid reward policy")},
	{ledgermodels.ErrInvalidRequest, coded(errors.ErrCodeValidation, "Invalid ledger request")},
	{ledgermodels.ErrPolicyNotFound, notFound("Reward policy")},
	{ledgermodels.ErrTokenNotFound, notFound("Token")},
	{ledgermodels.ErrTokenInactive, coded(errors.ErrCodeTokenInactive, "Token is inactive")},
	{ledgermodels.ErrInvalidToken, coded(errors.ErrCodeInvalidToken, "Invalid token definition")},

	{telegram.ErrChatNotFound, notFound("Chat")},
	{telegram.ErrRateLimited, coded(errors.ErrCodeTooManyRequests, "Telegram rate limit reached, retry later")},

	{keylock.ErrLockTimeout, coded(errors.ErrCodeLockUnavailable, "Resource is busy, retry later")},
}

// MapError converts domain errors into AppErrors. Unknown errors become
// INTERNAL_ERROR.
func MapError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	for _, m := range errorTable {
		if stderrors.Is(err, m.target) {
			appErr := m.build(err)
			var rej *ledgermodels.Rejection
			if stderrors.As(err, &rej) {
				appErr.WithDetail("guard", rej.Guard)
			}
			return appErr
		}
	}
	return errors.Wrap(err, errors.ErrCodeInternal, "Internal server error")
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError) {
	requestID := getRequestID(c)

	appErr.WithRequestID(requestID).
		WithContext("path", c.Request.URL.Path).
		WithContext("method", c.Request.Method)

	logError(appErr, c)

	c.AbortWithStatusJSON(HTTPStatus(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

func HTTPStatus(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeMalformedPayload,
		errors.ErrCodeInvalidAddress, errors.ErrCodeAmountOutOfRange, errors.ErrCodeInvalidFreezeAmount,
		errors.ErrCodeInvalidPolicy, errors.ErrCodeInvalidToken, errors.ErrCodeAmountPrecision:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeUserNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized, errors.ErrCodeSignatureMismatch, errors.ErrCodeStaleAuthData,
		errors.ErrCodeInvalidCredential, errors.ErrCodeCredentialExpired, errors.ErrCodeCredentialRevoked:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden, errors.ErrCodeInsufficientAccess, errors.ErrCodeUserInactive,
		errors.ErrCodeBotSuspected:
		return http.StatusForbidden
	case errors.ErrCodeConflict, errors.ErrCodeAddressTaken:
		return http.StatusConflict
	case errors.ErrCodePolicyDisabled, errors.ErrCodeInsufficientFunds, errors.ErrCodeTokenInactive:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeTooManyRequests, errors.ErrCodeCooldownActive:
		return http.StatusTooManyRequests
	case errors.ErrCodeCacheError, errors.ErrCodeLockUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func logError(appErr *errors.AppError, c *gin.Context) {
	var event *zerolog.Event
	msg := "Request rejected"
	switch {
	case appErr.IsInternal():
		event, msg = logger.Error(), "Internal error occurred"
	case appErr.IsUnauthorized():
		event, msg = logger.Warn(), "Unauthorized access attempt"
	case appErr.IsNotFound():
		event = logger.Debug()
	default:
		event = logger.Info()
	}

	event = event.
		Str("request_id", getRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message)

	if userID := getUserID(c); userID != 0 {
		event = event.Int64("user_id", userID)
	}
	if len(appErr.Details) > 0 {
		event = event.Interface("details", appErr.Details)
	}
	if appErr.Cause != nil {
		event = event.Err(appErr.Cause)
	}
	event.Msg(msg)
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return "unknown"
}

func getUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
