package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/config"
	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/inventory"
	"github.com/poofware/inventory-service/internal/metrics"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/notifications"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
)

// MobileLoginPath is appended to AppUrl in approval emails.
const MobileLoginPath = "/mobile/login"

type AccountRequestService interface {
	Create(ctx context.Context, ip string, req dtos.CreateAccountRequestRequest) (*models.AccountRequest, error)
	List(ctx context.Context, status *models.AccountRequestStatus) ([]*models.AccountRequest, error)
	Counts(ctx context.Context) (models.AccountRequestCounts, error)
	Approve(ctx context.Context, actor Actor, id uuid.UUID) (*models.AccountRequest, error)
	Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.AccountRequest, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type accountRequestService struct {
	requestRepo repositories.AccountRequestRepository
	userRepo    repositories.UserRepository
	rateLimiter RateLimiterService
	mailer      Mailer
	audit       auditLogger
	publisher   notifications.Publisher
	metrics     *metrics.Metrics
	cfg         *config.Config
	now         func() time.Time
}

func NewAccountRequestService(
	requestRepo repositories.AccountRequestRepository,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditLogRepository,
	rateLimiter RateLimiterService,
	mailer Mailer,
	publisher notifications.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
) AccountRequestService {
	if publisher == nil {
		publisher = notifications.NopPublisher{}
	}
	return &accountRequestService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		rateLimiter: rateLimiter,
		mailer:      mailer,
		audit:       auditLogger{repo: auditRepo},
		publisher:   publisher,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *accountRequestService) Create(ctx context.Context, ip string, in dtos.CreateAccountRequestRequest) (*models.AccountRequest, error) {
	email := utils.NormalizeEmail(in.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if user != nil {
		return nil, mapInventoryError(utils.ErrEmailExists)
	}
	pending, err := s.requestRepo.GetPendingByEmail(ctx, email)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if pending != nil {
		return nil, mapInventoryError(&inventory.ConflictError{Message: "A request for this email is already pending"})
	}

	if err := s.rateLimiter.CheckEmailRateLimits(ctx, ip, email); err != nil {
		return nil, mapInventoryError(err)
	}

	req := &models.AccountRequest{
		ID:          uuid.New(),
		Email:       email,
		FullName:    strings.TrimSpace(in.FullName),
		Position:    utils.TrimPtr(in.Position),
		Status:      models.AccountRequestPending,
		RequestedAt: s.now().UTC(),
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, mapInventoryError(&inventory.ConflictError{Message: "A request for this email is already pending"})
		}
		return nil, mapInventoryError(err)
	}
	s.metrics.RecordAccountRequest(string(req.Status))

	// The request is on record at this point; mail failures are only logged.
	confirm := requestReceivedEmail(s.cfg.OrganizationName, req)
	confirm.ToName, confirm.ToAddress = req.FullName, req.Email
	_ = s.mailer.Send(ctx, confirm)
	s.notifyAdmins(ctx, req)

	s.publish(ctx, notifications.AccountRequestCreated, req)
	utils.Logger.WithField("email", email).Info("Account request created")
	return req, nil
}

func (s *accountRequestService) notifyAdmins(ctx context.Context, req *models.AccountRequest) {
	admins, err := s.userRepo.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		utils.Logger.WithError(err).Warn("Failed to list admins for account request notice")
		return
	}
	for _, a := range admins {
		msg := requestAdminEmail(s.cfg.OrganizationName, s.cfg.AppUrl, req)
		msg.ToName, msg.ToAddress = a.FullName, a.Email
		_ = s.mailer.Send(ctx, msg)
	}
}

func (s *accountRequestService) List(ctx context.Context, status *models.AccountRequestStatus) ([]*models.AccountRequest, error) {
	reqs, err := s.requestRepo.List(ctx, status)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return reqs, nil
}

func (s *accountRequestService) Counts(ctx context.Context) (models.AccountRequestCounts, error) {
	c, err := s.requestRepo.Counts(ctx)
	if err != nil {
		return models.AccountRequestCounts{}, mapInventoryError(err)
	}
	return c, nil
}

// Approve creates a mobile user with a temporary password, then marks the
// request approved. A user that already exists blocks the approval.
func (s *accountRequestService) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*models.AccountRequest, error) {
	req, err := s.pendingRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if existing != nil {
		return nil, mapInventoryError(utils.ErrEmailExists)
	}

	tempPassword, err := utils.GenerateTemporaryPassword(s.cfg.TempPasswordLength)
	if err != nil {
		return nil, mapInventoryError(fmt.Errorf("generate temporary password: %w", err))
	}
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		return nil, mapInventoryError(fmt.Errorf("hash password: %w", err))
	}

	now := s.now().UTC()
	user := &models.User{
		ID:                     uuid.New(),
		Email:                  req.Email,
		PasswordHash:           hash,
		FullName:               req.FullName,
		Role:                   models.RoleMobileUser,
		RequiresPasswordChange: true,
		IsApproved:             true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, mapInventoryError(utils.ErrEmailExists)
		}
		return nil, mapInventoryError(err)
	}

	updated, err := s.review(ctx, actor, id, models.AccountRequestApproved, nil)
	if err != nil {
		return nil, err
	}

	msg := requestApprovedEmail(s.cfg.OrganizationName, s.cfg.AppUrl+MobileLoginPath, updated, tempPassword)
	msg.ToName, msg.ToAddress = updated.FullName, updated.Email
	if err := s.mailer.Send(ctx, msg); err != nil {
		utils.Logger.WithError(err).WithField("email", updated.Email).Error("Approved account but failed to email the temporary password")
	}

	s.audit.log(ctx, actor, updated.ID, models.AuditApprove, models.TargetAccountRequest, map[string]any{
		"email":   updated.Email,
		"user_id": user.ID,
	})
	s.metrics.RecordAccountRequest(string(updated.Status))
	s.publish(ctx, notifications.AccountRequestStatusChanged, updated)
	return updated, nil
}

func (s *accountRequestService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.AccountRequest, error) {
	if _, err := s.pendingRequest(ctx, id); err != nil {
		return nil, err
	}
	updated, err := s.review(ctx, actor, id, models.AccountRequestRejected, utils.TrimPtr(&reason))
	if err != nil {
		return nil, err
	}

	msg := requestRejectedEmail(s.cfg.OrganizationName, updated)
	msg.ToName, msg.ToAddress = updated.FullName, updated.Email
	_ = s.mailer.Send(ctx, msg)

	s.audit.log(ctx, actor, updated.ID, models.AuditReject, models.TargetAccountRequest, map[string]any{
		"email":  updated.Email,
		"reason": updated.RejectionReason,
	})
	s.metrics.RecordAccountRequest(string(updated.Status))
	s.publish(ctx, notifications.AccountRequestStatusChanged, updated)
	return updated, nil
}

func (s *accountRequestService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return mapInventoryError(err)
	}
	if req == nil {
		return mapInventoryError(&inventory.NotFoundError{What: "account request", Key: id.String()})
	}
	if err := s.requestRepo.Delete(ctx, id); err != nil {
		return mapInventoryError(err)
	}
	s.audit.log(ctx, actor, id, models.AuditDelete, models.TargetAccountRequest, map[string]any{"email": req.Email})
	return nil
}

func (s *accountRequestService) pendingRequest(ctx context.Context, id uuid.UUID) (*models.AccountRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if req == nil {
		return nil, mapInventoryError(&inventory.NotFoundError{What: "account request", Key: id.String()})
	}
	if req.Status != models.AccountRequestPending {
		return nil, notPending(req)
	}
	return req, nil
}

func notPending(req *models.AccountRequest) error {
	return &utils.AppError{
		StatusCode: http.StatusConflict,
		Code:       utils.ErrCodeConflict,
		Message:    fmt.Sprintf("Request is already %s", strings.ToLower(string(req.Status))),
	}
}

// review moves a pending request to status. Losing a race with another
// reviewer surfaces as a conflict, not a second transition.
func (s *accountRequestService) review(ctx context.Context, actor Actor, id uuid.UUID, status models.AccountRequestStatus, reason *string) (*models.AccountRequest, error) {
	var updated *models.AccountRequest
	err := s.requestRepo.UpdateWithRetry(ctx, id, func(r *models.AccountRequest) error {
		if r.Status != models.AccountRequestPending {
			return notPending(r)
		}
		now := s.now().UTC()
		r.Status = status
		r.ReviewedAt = &now
		r.ReviewedBy = utils.Ptr(actor.Label())
		r.RejectionReason = reason
		updated = r
		return nil
	})
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return updated, nil
}

func (s *accountRequestService) publish(ctx context.Context, t notifications.EventType, req *models.AccountRequest) {
	s.publisher.Publish(ctx, notifications.Event{
		Type: t,
		Payload: notifications.AccountRequestPayload{
			ID:       req.ID,
			Email:    req.Email,
			FullName: req.FullName,
			Status:   string(req.Status),
		},
		SentAt:    s.now().UTC(),
		AdminOnly: true,
	})
}
