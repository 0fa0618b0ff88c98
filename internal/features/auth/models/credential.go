package models

import "time"

// Subject is what a credential is issued for.
type Subject struct {
	ID         string
	TelegramID int64
	Tier       Tier
}

// Claims are the validated contents of a credential.
type Claims struct {
	SubjectID  string    `json:"sub" example:"5f0c7a4e-2b1d-4c84-9a43-0c7e1b0f6d11"`
	TelegramID int64     `json:"tid" example:"123456789"`
	Tier       Tier      `json:"tier" swaggertype:"string" example:"BETA"`
	IssuedAt   time.Time `json:"iat"`
	ExpiresAt  time.Time `json:"exp"`
	ID         string    `json:"jti" example:"0b9e6f0e-7d55-4f0b-8f3c-2f5a1c9e2d44"`
}

type Credential struct {
	Token  string
	Claims Claims
}
