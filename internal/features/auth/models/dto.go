package models

import (
	"strconv"
	"time"
)

// LoginWidgetRequest is the object the Telegram login widget hands to its
// callback. Optional fields are omitted by Telegram when empty and must
// stay out of the data-check string.
// @Description Telegram login widget payload
type LoginWidgetRequest struct {
	ID        int64  `json:"id" binding:"required" example:"123456789"`
	FirstName string `json:"first_name" example:"John"`
	LastName  string `json:"last_name,omitempty" example:"Doe"`
	Username  string `json:"username,omitempty" example:"johndoe"`
	PhotoURL  string `json:"photo_url,omitempty" example:"https://t.me/i/userpic/320/johndoe.jpg"`
	AuthDate  int64  `json:"auth_date" binding:"required" example:"1714560000"`
	Hash      string `json:"hash" binding:"required" example:"c0ffee..."`
}

// Fields returns the signed fields, excluding hash.
func (r LoginWidgetRequest) Fields() map[string]string {
	f := map[string]string{
		"id":        strconv.FormatInt(r.ID, 10),
		"auth_date": strconv.FormatInt(r.AuthDate, 10),
	}
	optional := map[string]string{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"username":   r.Username,
		"photo_url":  r.PhotoURL,
	}
	for k, v := range optional {
		if v != "" {
			f[k] = v
		}
	}
	return f
}

// @Description Raw Mini App init data
type WebAppLoginRequest struct {
	InitData string `json:"init_data" binding:"required" example:"query_id=...&user=%7B...%7D&auth_date=1714560000&hash=..."`
}

// @Description Issued credential
type LoginResponse struct {
	Token              string    `json:"token"`
	TokenType          string    `json:"token_type" example:"Bearer"`
	ExpiresAt          time.Time `json:"expires_at"`
	TelegramID         int64     `json:"telegram_id" example:"123456789"`
	AccessTier         string    `json:"access_tier" example:"BETA"`
	SuspectedAutomated bool      `json:"suspected_automated"`
	Created            bool      `json:"created"`
}

// @Description Credential revocation request
type RevokeRequest struct {
	JTI   string    `json:"jti" binding:"required"`
	Until time.Time `json:"until"`
}
