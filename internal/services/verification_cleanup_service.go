package services

import (
	"context"

	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
)

// VerificationCleanupService removes expired verification codes and
// rate-limit windows.
type VerificationCleanupService struct {
	otpRepo       repositories.OtpVerificationRepository
	rateLimitRepo repositories.RateLimitRepository
}

func NewVerificationCleanupService(
	otpRepo repositories.OtpVerificationRepository,
	rateLimitRepo repositories.RateLimitRepository,
) *VerificationCleanupService {
	return &VerificationCleanupService{otpRepo: otpRepo, rateLimitRepo: rateLimitRepo}
}

// CleanupDaily is intended to be invoked by a daily cron
func (s *VerificationCleanupService) CleanupDaily(ctx context.Context) {
	utils.Logger.Info("Starting daily verification cleanup...")

	if n, err := s.otpRepo.CleanupExpired(ctx); err != nil {
		utils.Logger.WithError(err).Error("Failed to clean up expired verification codes")
	} else {
		utils.Logger.Infof("Removed %d expired verification code(s)", n)
	}

	if n, err := s.rateLimitRepo.CleanupExpired(ctx); err != nil {
		utils.Logger.WithError(err).Error("Failed to clean up expired rate limit windows")
	} else {
		utils.Logger.Infof("Removed %d expired rate limit window(s)", n)
	}

	utils.Logger.Info("Daily verification cleanup done.")
}
