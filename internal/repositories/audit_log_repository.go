package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/models"
)

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]*models.AuditLog, error)
}

type auditLogRepo struct {
	db DB
}

func NewAuditLogRepository(db DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_audit_logs (
			id, actor_id, action, target_id, target_type, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, entry.ID, entry.ActorID, entry.Action, entry.TargetID, entry.TargetType, entry.Details)
	return err
}

func (r *auditLogRepo) ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_id, action, target_id, target_type, details, created_at
		FROM admin_audit_logs
		WHERE target_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AuditLog
	for rows.Next() {
		var e models.AuditLog
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetID, &e.TargetType, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
