package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/config"
	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
)

// AuthService covers password login, admin self-registration through an
// emailed one-time code, and password changes.
type AuthService interface {
	Login(ctx context.Context, ip string, req dtos.LoginRequest) (*dtos.LoginResponse, error)
	RequestOTP(ctx context.Context, ip string, req dtos.RequestOTPRequest) (*dtos.RequestOTPResponse, error)
	VerifyOTP(ctx context.Context, req dtos.VerifyOTPRequest) (*dtos.LoginResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req dtos.ChangePasswordRequest) error
}

type authService struct {
	userRepo    repositories.UserRepository
	otpRepo     repositories.OtpVerificationRepository
	rateLimiter RateLimiterService
	jwt         JWTService
	mailer      Mailer
	cfg         *config.Config
	now         func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepository,
	otpRepo repositories.OtpVerificationRepository,
	rateLimiter RateLimiterService,
	jwt JWTService,
	mailer Mailer,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		otpRepo:     otpRepo,
		rateLimiter: rateLimiter,
		jwt:         jwt,
		mailer:      mailer,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *authService) Login(ctx context.Context, ip string, req dtos.LoginRequest) (*dtos.LoginResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if err := s.rateLimiter.CheckLoginRateLimits(ctx, ip, email); err != nil {
		return nil, mapInventoryError(err)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		utils.Logger.WithField("email", email).Warn("Failed login attempt")
		return nil, mapInventoryError(utils.ErrInvalidCredentials)
	}
	if !user.IsApproved {
		return nil, &utils.AppError{
			StatusCode: http.StatusForbidden,
			Code:       utils.ErrCodeForbidden,
			Message:    "Account is not approved yet",
		}
	}
	return s.issue(user)
}

func (s *authService) issue(user *models.User) (*dtos.LoginResponse, error) {
	token, exp, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, mapInventoryError(fmt.Errorf("sign access token: %w", err))
	}
	return &dtos.LoginResponse{
		User:        dtos.NewUserFromModel(user),
		AccessToken: token,
		ExpiresAt:   exp,
	}, nil
}

// RequestOTP is the first registration step. The hashed password is parked
// with the code and only becomes a user row once the code is verified.
func (s *authService) RequestOTP(ctx context.Context, ip string, req dtos.RequestOTPRequest) (*dtos.RequestOTPResponse, error) {
	email := utils.NormalizeEmail(req.Email)

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if existing != nil {
		return nil, mapInventoryError(utils.ErrEmailExists)
	}

	if err := s.rateLimiter.CheckEmailRateLimits(ctx, ip, email); err != nil {
		return nil, mapInventoryError(err)
	}

	if err := s.otpRepo.DeleteByEmail(ctx, email); err != nil {
		utils.Logger.WithError(err).Warn("Failed to clear previous verification codes")
	}

	code, err := utils.GenerateNumericCode(s.cfg.OTPLength)
	if err != nil {
		return nil, mapInventoryError(fmt.Errorf("generate code: %w", err))
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, mapInventoryError(fmt.Errorf("hash password: %w", err))
	}

	now := s.now().UTC()
	otp := &models.OtpVerification{
		ID:           uuid.New(),
		Email:        email,
		Code:         code,
		FullName:     req.FullName,
		PasswordHash: hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.OTPExpiry),
	}
	if err := s.otpRepo.Create(ctx, otp); err != nil {
		return nil, mapInventoryError(err)
	}

	msg := otpEmail(s.cfg.OrganizationName, req.FullName, code, s.cfg.OTPExpiry)
	msg.ToName, msg.ToAddress = req.FullName, email
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, mapInventoryError(err)
	}

	utils.Logger.WithField("email", email).Info("Verification code sent")
	return &dtos.RequestOTPResponse{
		Message:   "Verification code sent",
		ExpiresAt: otp.ExpiresAt,
	}, nil
}

func invalidOTP(msg string) error {
	return &utils.AppError{
		StatusCode: http.StatusBadRequest,
		Code:       utils.ErrCodeInvalidOTP,
		Message:    msg,
	}
}

// VerifyOTP creates the admin account and logs it in.
func (s *authService) VerifyOTP(ctx context.Context, req dtos.VerifyOTPRequest) (*dtos.LoginResponse, error) {
	email := utils.NormalizeEmail(req.Email)

	otp, err := s.otpRepo.GetLatest(ctx, email)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if otp == nil {
		return nil, invalidOTP("No pending verification for this email")
	}
	if otp.Attempts >= s.cfg.MaxOTPAttempts {
		return nil, invalidOTP("Too many attempts; request a new code")
	}
	if s.now().After(otp.ExpiresAt) {
		return nil, invalidOTP("Verification code expired; request a new code")
	}
	if otp.Code != req.Code {
		if err := s.otpRepo.IncrementAttempts(ctx, otp.ID); err != nil {
			utils.Logger.WithError(err).Warn("Failed to record verification attempt")
		}
		return nil, invalidOTP("Incorrect verification code")
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: otp.PasswordHash,
		FullName:     otp.FullName,
		Role:         models.RoleAdmin,
		IsApproved:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, mapInventoryError(utils.ErrEmailExists)
		}
		return nil, mapInventoryError(err)
	}
	if err := s.otpRepo.MarkUsed(ctx, otp.ID); err != nil {
		utils.Logger.WithError(err).Warn("Failed to mark verification code used")
	}

	utils.Logger.WithField("email", email).Info("Admin account created")
	return s.issue(user)
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req dtos.ChangePasswordRequest) error {
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return mapInventoryError(fmt.Errorf("hash password: %w", err))
	}
	err = s.userRepo.UpdateWithRetry(ctx, userID, func(u *models.User) error {
		if !utils.CheckPasswordHash(req.CurrentPassword, u.PasswordHash) {
			return utils.ErrInvalidCredentials
		}
		u.PasswordHash = hash
		u.RequiresPasswordChange = false
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if errors.Is(err, utils.ErrInvalidCredentials) {
		return &utils.AppError{
			StatusCode: http.StatusUnauthorized,
			Code:       utils.ErrCodeInvalidCredentials,
			Message:    "Current password is incorrect",
			Err:        err,
		}
	}
	return mapInventoryError(err)
}
