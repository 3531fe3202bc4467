package seeding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
)

const DefaultAdminName = "Inventory Administrator"

// SeedDefaultAdmin creates the bootstrap admin account when email is set and
// no user with that email exists yet. The account must change its password
// on first login.
func SeedDefaultAdmin(ctx context.Context, users repositories.UserRepository, email, password string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	if password == "" {
		return fmt.Errorf("bootstrap admin %s has no password configured", email)
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error checking for existing admin %s: %w", email, err)
	}
	if existing != nil {
		if !existing.IsAdmin() {
			utils.Logger.Warnf("Bootstrap admin email %s belongs to a %s account; skipping seed.", email, existing.Role)
			return nil
		}
		utils.Logger.Infof("Default admin already exists (ID=%s); skipping seed.", existing.ID)
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}

	admin := &models.User{
		ID:                     uuid.New(),
		Email:                  email,
		PasswordHash:           hash,
		FullName:               DefaultAdminName,
		Role:                   models.RoleAdmin,
		RequiresPasswordChange: true,
		IsApproved:             true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to insert default admin: %w", err)
	}

	utils.Logger.Infof("Seeded default admin (ID=%s, email=%s).", admin.ID, admin.Email)
	return nil
}
