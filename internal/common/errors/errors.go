package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode is the machine-readable error code returned to API clients.
type ErrorCode string

const (
	// Generic
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"

	// Authentication and credentials
	ErrCodeSignatureMismatch  ErrorCode = "SIGNATURE_MISMATCH"
	ErrCodeStaleAuthData      ErrorCode = "STALE_AUTH_DATA"
	ErrCodeMalformedPayload   ErrorCode = "MALFORMED_PAYLOAD"
	ErrCodeInvalidCredential  ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeCredentialExpired  ErrorCode = "CREDENTIAL_EXPIRED"
	ErrCodeCredentialRevoked  ErrorCode = "CREDENTIAL_REVOKED"
	ErrCodeInsufficientAccess ErrorCode = "INSUFFICIENT_ACCESS"

	// Identities
	ErrCodeUserNotFound ErrorCode = "USER_NOT_FOUND"
	ErrCodeUserInactive ErrorCode = "USER_INACTIVE"
	ErrCodeBotSuspected ErrorCode = "BOT_SUSPECTED"

	// Addresses
	ErrCodeInvalidAddress ErrorCode = "INVALID_ADDRESS_FORMAT"
	ErrCodeAddressTaken   ErrorCode = "ADDRESS_TAKEN"

	// Ledger
	ErrCodePolicyDisabled      ErrorCode = "POLICY_DISABLED"
	ErrCodeAmountOutOfRange    ErrorCode = "AMOUNT_OUT_OF_RANGE"
	ErrCodeCooldownActive      ErrorCode = "COOLDOWN_ACTIVE"
	ErrCodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidFreezeAmount ErrorCode = "INVALID_FREEZE_AMOUNT"
	ErrCodeInvalidPolicy       ErrorCode = "INVALID_POLICY"
	ErrCodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenInactive       ErrorCode = "TOKEN_INACTIVE"
	ErrCodeAmountPrecision     ErrorCode = "AMOUNT_PRECISION"

	// Infrastructure
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeCacheError      ErrorCode = "CACHE_ERROR"
	ErrCodeLockUnavailable ErrorCode = "LOCK_UNAVAILABLE"
)

// AppError is a typed application error rendered by the HTTP error handler.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	UserID    int64                  `json:"user_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound || e.Code == ErrCodeUserNotFound
}

// IsValidation covers client-side mistakes, including ledger rejections.
func (e *AppError) IsValidation() bool {
	switch e.Code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeMalformedPayload, ErrCodeInvalidAddress,
		ErrCodeAmountOutOfRange, ErrCodeInvalidFreezeAmount, ErrCodeInvalidPolicy, ErrCodeInvalidToken,
		ErrCodeAmountPrecision:
		return true
	}
	return false
}

func (e *AppError) IsUnauthorized() bool {
	switch e.Code {
	case ErrCodeUnauthorized, ErrCodeForbidden, ErrCodeSignatureMismatch, ErrCodeStaleAuthData,
		ErrCodeInvalidCredential, ErrCodeCredentialExpired, ErrCodeCredentialRevoked,
		ErrCodeInsufficientAccess, ErrCodeUserInactive, ErrCodeBotSuspected:
		return true
	}
	return false
}

func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodeDatabaseError ||
		e.Code == ErrCodeCacheError ||
		e.Code == ErrCodeLockUnavailable
}

func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func (e *AppError) WithUserID(userID int64) *AppError {
	e.UserID = userID
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewNotFoundError omits the id detail when id is nil.
func NewNotFoundError(resource string, id interface{}) *AppError {
	appErr := New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource)
	if id != nil {
		appErr.WithDetail("id", id)
	}
	return appErr
}

func NewUserNotFoundError(userID int64) *AppError {
	return New(ErrCodeUserNotFound, fmt.Sprintf("User not found: %d", userID)).
		WithDetail("user_id", userID)
}

func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewCacheError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeCacheError, fmt.Sprintf("Cache operation failed: %s", operation)).
		WithDetail("operation", operation)
}

func NewConflictError(resource, reason string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("Conflict with %s: %s", resource, reason)).
		WithDetail("resource", resource).
		WithDetail("reason", reason)
}

// AsAppError unwraps err until an *AppError is found.
func AsAppError(err error) (*AppError, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
