package models

import (
	"time"

	"github.com/google/uuid"
)

// OtpVerification holds a pending self-registration until the emailed code is confirmed.
type OtpVerification struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Code         string    `json:"-"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Attempts     int       `json:"attempts"`
	Used         bool      `json:"used"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
