package models

import (
	"errors"
	"strings"
	"time"

	authmodels "tg-reward-ledger/internal/features/auth/models"
)

type Kind string

const (
	KindUser Kind = "user"
	KindChat Kind = "chat"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityExists   = errors.New("identity already exists")
	ErrInactive         = errors.New("identity is deactivated")
)

// Identity is a Telegram user or chat. ID is the credential subject;
// ExternalID is the Telegram-assigned identifier that balances and address
// bindings are keyed on.
// @Description Telegram user or chat
type Identity struct {
	ID                 string          `json:"id" example:"5f0c7a4e-2b1d-4c84-9a43-0c7e1b0f6d11"`
	ExternalID         int64           `json:"external_id" example:"123456789"`
	Kind               Kind            `json:"kind" example:"user" enums:"user,chat"`
	Username           string          `json:"username,omitempty" example:"johndoe"`
	FirstName          string          `json:"first_name,omitempty" example:"John"`
	LastName           string          `json:"last_name,omitempty" example:"Doe"`
	Title              string          `json:"title,omitempty"`
	PhotoURL           string          `json:"photo_url,omitempty"`
	AccessTier         authmodels.Tier `json:"access_tier" swaggertype:"string" example:"NONE"`
	SuspectedAutomated bool            `json:"suspected_automated"`
	Active             bool            `json:"active"`
	ReferredBy         *int64          `json:"referred_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	LastLoginAt        *time.Time      `json:"last_login_at,omitempty"`
}

func (i *Identity) DisplayName() string {
	if i.Kind == KindChat && i.Title != "" {
		return i.Title
	}
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name != "" {
		return name
	}
	if i.Username != "" {
		return "@" + i.Username
	}
	return ""
}

// Clone returns a deep copy safe to hand out of a store.
func (i *Identity) Clone() *Identity {
	c := *i
	if i.ReferredBy != nil {
		v := *i.ReferredBy
		c.ReferredBy = &v
	}
	if i.LastLoginAt != nil {
		v := *i.LastLoginAt
		c.LastLoginAt = &v
	}
	return &c
}

// Profile is what a verified login asserts about a user.
type Profile struct {
	ExternalID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
	// ReferrerID is honoured only when the identity is created.
	ReferrerID *int64
	// SuspectedAutomated is the advisory verdict for this login.
	SuspectedAutomated bool
}

// @Description Chat registration
type ChatProfile struct {
	ExternalID int64  `json:"external_id" binding:"required" example:"-1001234567890"`
	Title      string `json:"title" example:"Rewards chat"`
	Username   string `json:"username,omitempty" example:"rewardschat"`
}

// @Description Access tier update
type TierUpdate struct {
	Tier string `json:"tier" binding:"required" example:"ADMIN" enums:"NONE,ALPHA,BETA,ADMIN,FULL"`
}

// @Description Activation update
type ActiveUpdate struct {
	Active *bool `json:"active" binding:"required"`
}

// @Description Current identity with bound addresses
type MeResponse struct {
	*Identity
	DisplayName    string            `json:"display_name"`
	BoundAddresses map[string]string `json:"bound_addresses"`
}
