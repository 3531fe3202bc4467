package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/poofware/inventory-service/internal/config"
	"github.com/poofware/inventory-service/internal/metrics"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/notifications"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
	"github.com/sirupsen/logrus"
)

// OverdueNotificationService pushes one notification per borrowed unit that
// passed its return date and flags the unit so it is not pushed again.
type OverdueNotificationService interface {
	NotifyOverdue(ctx context.Context) (int, error)
}

type overdueNotificationService struct {
	unitRepo  repositories.InventoryUnitRepository
	userRepo  repositories.UserRepository
	publisher notifications.Publisher
	mailer    Mailer
	metrics   *metrics.Metrics
	cfg       *config.Config
	now       func() time.Time
}

func NewOverdueNotificationService(
	unitRepo repositories.InventoryUnitRepository,
	userRepo repositories.UserRepository,
	publisher notifications.Publisher,
	mailer Mailer,
	m *metrics.Metrics,
	cfg *config.Config,
) OverdueNotificationService {
	if publisher == nil {
		publisher = notifications.NopPublisher{}
	}
	return &overdueNotificationService{
		unitRepo:  unitRepo,
		userRepo:  userRepo,
		publisher: publisher,
		mailer:    mailer,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
	}
}

type overdueItem struct {
	unit     *models.InventoryUnit
	borrower string
	days     int
}

// DaysOverdue counts started days past due, so one minute late is one day.
func DaysOverdue(due, now time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(math.Ceil(now.Sub(due).Hours() / 24))
}

func (s *overdueNotificationService) NotifyOverdue(ctx context.Context) (int, error) {
	now := s.now().UTC()
	units, err := s.unitRepo.ListOverdueUnnotified(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue units: %w", err)
	}

	var notified []overdueItem
	for _, u := range units {
		if !u.IsOverdue(now) {
			continue
		}
		item := overdueItem{unit: u, borrower: utils.Val(u.BorrowerName), days: DaysOverdue(*u.ReturnDueAt, now)}

		s.publisher.Publish(ctx, notifications.Event{
			Type: notifications.OverduePropertyNotification,
			Payload: notifications.OverduePayload{
				PropertyID:   u.ID,
				PropertyCode: u.PropertyCode,
				PropertyName: u.PropertyName,
				TagNumber:    u.TagNumber,
				BorrowerName: item.borrower,
				ReturnDueAt:  *u.ReturnDueAt,
				DaysOverdue:  item.days,
				Message: fmt.Sprintf("%s (%s) borrowed by %s is %d day(s) overdue",
					u.PropertyName, u.PropertyCode, item.borrower, item.days),
			},
			SentAt:    now,
			AdminOnly: true,
		})

		if err := s.unitRepo.MarkOverdueNotified(ctx, u.ID); err != nil {
			// Returned or edited since the scan; the next run sees the new state.
			utils.Logger.WithError(err).WithField("id", u.ID).Warn("Failed to mark unit overdue-notified")
			continue
		}
		s.metrics.RecordOverdueNotified()
		notified = append(notified, item)
	}

	if len(notified) > 0 && s.cfg != nil && s.cfg.LDFlag_OverdueEmailDigest {
		s.sendDigest(ctx, notified)
	}

	utils.Logger.WithFields(logrus.Fields{
		"scanned":  len(units),
		"notified": len(notified),
	}).Info("Overdue scan finished")
	return len(notified), nil
}

func (s *overdueNotificationService) sendDigest(ctx context.Context, items []overdueItem) {
	admins, err := s.userRepo.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		utils.Logger.WithError(err).Warn("Failed to list admins for overdue digest")
		return
	}
	for _, a := range admins {
		msg := overdueDigestEmail(s.cfg.OrganizationName, items)
		msg.ToName, msg.ToAddress = a.FullName, a.Email
		_ = s.mailer.Send(ctx, msg)
	}
}
