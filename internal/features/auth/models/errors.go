package models

import "errors"

var (
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrStale             = errors.New("auth data is stale")
	ErrMalformedPayload  = errors.New("malformed auth payload")

	ErrInvalidSignature = errors.New("invalid credential")
	ErrExpired          = errors.New("credential expired")
	ErrRevoked          = errors.New("credential revoked")

	ErrInsufficientAccess = errors.New("insufficient access tier")
	ErrBotSuspected       = errors.New("identity is suspected automated")
)
