package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
	"github.com/sirupsen/logrus"
)

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  models.UserRole
}

// Label is what gets written to updated_by.
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	return a.ID.String()
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type auditLogger struct {
	repo repositories.AuditLogRepository
}

// log is best effort; a failed audit write never fails the operation.
func (a auditLogger) log(ctx context.Context, actor Actor, targetID uuid.UUID, action models.AuditAction, targetType models.AuditTargetType, details any) {
	if a.repo == nil {
		return
	}
	entry := &models.AuditLog{
		ID:         uuid.New(),
		ActorID:    actor.ID,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
		CreatedAt:  time.Now().UTC(),
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			msg := json.RawMessage(raw)
			entry.Details = &msg
		}
	}
	if err := a.repo.Create(ctx, entry); err != nil {
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"action": action,
			"target": targetID,
		}).Warn("Failed to write audit log")
	}
}

func (a auditLogger) history(ctx context.Context, targetID uuid.UUID, limit int) []*models.AuditLog {
	if a.repo == nil {
		return nil
	}
	entries, err := a.repo.ListByTarget(ctx, targetID, limit)
	if err != nil {
		utils.Logger.WithError(err).WithField("target", targetID).Warn("Failed to load audit history")
		return nil
	}
	return entries
}
