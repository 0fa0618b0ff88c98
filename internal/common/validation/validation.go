package validation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"tg-reward-ledger/internal/common/errors"
)

const (
	MaxTokenIDLength   = 32
	MaxActionLength    = 32
	MaxReasonLength    = 280
	MaxRefLength       = 128
	MaxChatTitleLength = 255
	// MaxAmountDecimals is the scale of stored amounts; finer values would be
	// rounded by the database.
	MaxAmountDecimals = 18
)

var (
	// Telegram usernames: letter first, then letters, digits or underscores, 5-32 characters.
	telegramUsernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{4,31}$`)
	tokenIDRegex          = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)
	actionRegex           = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
)

func ValidateTokenID(tokenID string) error {
	if tokenID == "" {
		return errors.NewValidationError("token_id", "cannot be empty")
	}
	if !tokenIDRegex.MatchString(tokenID) {
		return errors.NewValidationError("token_id", "must be 1-32 letters, digits, '_', '.' or '-'")
	}
	return nil
}

// ValidateAction accepts an empty action; callers substitute the default.
func ValidateAction(action string) error {
	if action == "" {
		return nil
	}
	if !actionRegex.MatchString(action) {
		return errors.NewValidationError("action", "must be lowercase snake_case, up to 32 characters")
	}
	return nil
}

func ValidateReason(reason string) error {
	if len(reason) > MaxReasonLength {
		return errors.NewValidationError("reason", "too long")
	}
	return nil
}

func ValidateExternalRef(ref *string) error {
	if ref == nil {
		return nil
	}
	if len(*ref) > MaxRefLength {
		return errors.NewValidationError("external_message_ref", "too long")
	}
	return nil
}

func ValidatePositiveAmount(amount decimal.Decimal, field string) error {
	if !amount.IsPositive() {
		return errors.NewValidationError(field, "must be positive")
	}
	return ValidateAmountScale(amount, field)
}

// ValidateAmountScale rejects amounts with significant digits past
// MaxAmountDecimals. Trailing zeros are accepted.
func ValidateAmountScale(amount decimal.Decimal, field string) error {
	if !amount.Truncate(MaxAmountDecimals).Equal(amount) {
		return errors.NewValidationError(field, "must have at most 18 decimal places")
	}
	return nil
}

// ValidateUsername accepts an optional leading '@'.
func ValidateUsername(username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if !telegramUsernameRegex.MatchString(username) {
		return errors.NewValidationError("username", "must start with a letter and contain 5-32 letters, digits or underscores")
	}
	return nil
}

func ValidateChatTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.NewValidationError("title", "cannot be empty")
	}
	if len(title) > MaxChatTitleLength {
		return errors.NewValidationError("title", "too long")
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
