package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/inventory-service/internal/models"
)

type AccountRequestRepository interface {
	Create(ctx context.Context, req *models.AccountRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AccountRequest, error)
	GetPendingByEmail(ctx context.Context, email string) (*models.AccountRequest, error)
	// List returns requests newest first; a nil status lists all.
	List(ctx context.Context, status *models.AccountRequestStatus) ([]*models.AccountRequest, error)
	Counts(ctx context.Context) (models.AccountRequestCounts, error)
	UpdateIfVersion(ctx context.Context, req *models.AccountRequest, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.AccountRequest) error) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type accountRequestRepo struct {
	*BaseVersionedRepo[*models.AccountRequest]
	db DB
}

func NewAccountRequestRepository(db DB) AccountRequestRepository {
	r := &accountRequestRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectAccountRequest()+" WHERE id=$1", scanAccountRequest)
	return r
}

func (r *accountRequestRepo) Create(ctx context.Context, req *models.AccountRequest) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO account_requests (
			id, email, full_name, position, status, requested_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,1)
	`, req.ID, req.Email, req.FullName, req.Position, req.Status, req.RequestedAt)
	if err == nil {
		req.RowVersion = 1
	}
	return err
}

func (r *accountRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AccountRequest, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *accountRequestRepo) GetPendingByEmail(ctx context.Context, email string) (*models.AccountRequest, error) {
	row := r.db.QueryRow(ctx, baseSelectAccountRequest()+`
		WHERE email=LOWER($1) AND status='Pending'
		ORDER BY requested_at DESC LIMIT 1`, email)
	return scanAccountRequest(row)
}

func (r *accountRequestRepo) List(ctx context.Context, status *models.AccountRequestStatus) ([]*models.AccountRequest, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		rows, err = r.db.Query(ctx, baseSelectAccountRequest()+" WHERE status=$1 ORDER BY requested_at DESC", *status)
	} else {
		rows, err = r.db.Query(ctx, baseSelectAccountRequest()+" ORDER BY requested_at DESC")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AccountRequest
	for rows.Next() {
		req, err := scanAccountRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *accountRequestRepo) Counts(ctx context.Context) (models.AccountRequestCounts, error) {
	var c models.AccountRequestCounts
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status='Pending'),
			COUNT(*) FILTER (WHERE status='Approved'),
			COUNT(*) FILTER (WHERE status='Rejected')
		FROM account_requests`).Scan(&c.Pending, &c.Approved, &c.Rejected)
	return c, err
}

func (r *accountRequestRepo) UpdateIfVersion(ctx context.Context, req *models.AccountRequest, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE account_requests
		SET status=$1, reviewed_at=$2, reviewed_by=$3, rejection_reason=$4,
		    row_version=row_version+1
		WHERE id=$5 AND row_version=$6
	`, req.Status, req.ReviewedAt, req.ReviewedBy, req.RejectionReason, req.ID, expected)
}

func (r *accountRequestRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.AccountRequest) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *accountRequestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM account_requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func baseSelectAccountRequest() string {
	return `
		SELECT id, email, full_name, position, status, requested_at,
		       reviewed_at, reviewed_by, rejection_reason, row_version
		FROM account_requests`
}

func scanAccountRequest(row pgx.Row) (*models.AccountRequest, error) {
	var req models.AccountRequest
	if err := row.Scan(
		&req.ID, &req.Email, &req.FullName, &req.Position, &req.Status, &req.RequestedAt,
		&req.ReviewedAt, &req.ReviewedBy, &req.RejectionReason, &req.RowVersion,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}
