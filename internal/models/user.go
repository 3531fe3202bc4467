package models

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleMobileUser UserRole = "mobile_user"
)

type User struct {
	Versioned
	ID                     uuid.UUID `json:"id"`
	Email                  string    `json:"email"`
	PasswordHash           string    `json:"-"`
	FullName               string    `json:"full_name"`
	Role                   UserRole  `json:"role"`
	RequiresPasswordChange bool      `json:"requires_password_change"`
	IsApproved             bool      `json:"is_approved"`
	ProfilePictureURL      *string   `json:"profile_picture_url,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (u *User) GetID() string { return u.ID.String() }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
