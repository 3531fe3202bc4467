package controllers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/middleware"
	"github.com/poofware/inventory-service/internal/services"
	"github.com/poofware/inventory-service/internal/utils"
)

type AuthController struct {
	authService services.AuthService
	validate    *validator.Validate
}

func NewAuthController(s services.AuthService) *AuthController {
	return &AuthController{authService: s, validate: validator.New()}
}

// setAccessCookie lets the web admin authenticate with the cookie while the
// mobile client keeps using the bearer token from the body.
func setAccessCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// POST /api/v1/inventory/auth/login
func (c *AuthController) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.LoginRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	resp, err := c.authService.Login(r.Context(), utils.ClientIP(r), req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	setAccessCookie(w, resp.AccessToken, resp.ExpiresAt)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/inventory/auth/register/request_otp
func (c *AuthController) RequestOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.RequestOTPRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	resp, err := c.authService.RequestOTP(r.Context(), utils.ClientIP(r), req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/inventory/auth/register/verify_otp
func (c *AuthController) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.VerifyOTPRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	resp, err := c.authService.VerifyOTP(r.Context(), req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	setAccessCookie(w, resp.AccessToken, resp.ExpiresAt)
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// POST /api/v1/inventory/auth/change_password
func (c *AuthController) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.ChangePasswordRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	if err := c.authService.ChangePassword(r.Context(), actor.ID, req); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Password updated"})
}
