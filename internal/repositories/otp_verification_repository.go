package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/inventory-service/internal/models"
)

type OtpVerificationRepository interface {
	Create(ctx context.Context, otp *models.OtpVerification) error
	// GetLatest returns the newest unused record for email, or nil.
	GetLatest(ctx context.Context, email string) (*models.OtpVerification, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	MarkUsed(ctx context.Context, id uuid.UUID) error
	DeleteByEmail(ctx context.Context, email string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type otpVerificationRepo struct {
	db DB
}

func NewOtpVerificationRepository(db DB) OtpVerificationRepository {
	return &otpVerificationRepo{db: db}
}

func (r *otpVerificationRepo) Create(ctx context.Context, otp *models.OtpVerification) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO otp_verifications
			(id, email, code, full_name, password_hash, attempts, used, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, 0, FALSE, NOW(), $6)
	`, otp.ID, otp.Email, otp.Code, otp.FullName, otp.PasswordHash, otp.ExpiresAt)
	return err
}

func (r *otpVerificationRepo) GetLatest(ctx context.Context, email string) (*models.OtpVerification, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, code, full_name, password_hash, attempts, used, created_at, expires_at
		FROM otp_verifications
		WHERE email = $1 AND used = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`, email)
	var otp models.OtpVerification
	err := row.Scan(
		&otp.ID, &otp.Email, &otp.Code, &otp.FullName, &otp.PasswordHash,
		&otp.Attempts, &otp.Used, &otp.CreatedAt, &otp.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &otp, nil
}

func (r *otpVerificationRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE otp_verifications SET attempts = attempts + 1 WHERE id = $1`, id)
	return err
}

func (r *otpVerificationRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE otp_verifications SET used = TRUE WHERE id = $1`, id)
	return err
}

func (r *otpVerificationRepo) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM otp_verifications WHERE email = $1 AND used = FALSE`, email)
	return err
}

func (r *otpVerificationRepo) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM otp_verifications
		WHERE expires_at < NOW()
		   OR (used = TRUE AND created_at + INTERVAL '1 day' < NOW())
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
