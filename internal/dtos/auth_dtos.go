package dtos

import (
	"time"

	"github.com/poofware/inventory-service/internal/models"
)

// ----------------------
// Requests
// ----------------------

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RequestOTPRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,min=1,max=200"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// ----------------------
// Responses
// ----------------------

type User struct {
	ID                     string          `json:"id"`
	Email                  string          `json:"email"`
	FullName               string          `json:"full_name"`
	Role                   models.UserRole `json:"role"`
	RequiresPasswordChange bool            `json:"requires_password_change"`
	ProfilePictureURL      *string         `json:"profile_picture_url,omitempty"`
}

func NewUserFromModel(u *models.User) User {
	return User{
		ID:                     u.ID.String(),
		Email:                  u.Email,
		FullName:               u.FullName,
		Role:                   u.Role,
		RequiresPasswordChange: u.RequiresPasswordChange,
		ProfilePictureURL:      u.ProfilePictureURL,
	}
}

type LoginResponse struct {
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RequestOTPResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
