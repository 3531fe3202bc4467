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
	"github.com/sirupsen/logrus"
)

// maxAllocationAttempts is the first allocation plus one re-mint.
const maxAllocationAttempts = 2

const detailHistoryLimit = 20

type InventoryService interface {
	ListGrouped(ctx context.Context, f repositories.UnitFilter) ([]inventory.FamilyView, error)
	ListUnits(ctx context.Context, f repositories.UnitFilter) ([]*models.InventoryUnit, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListBorrowed(ctx context.Context) ([]*models.InventoryUnit, error)
	ListOverdue(ctx context.Context) ([]*models.InventoryUnit, error)
	ListHistory(ctx context.Context, email string) ([]*models.InventoryUnit, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*dtos.PropertyDetailResponse, error)
	GetByCode(ctx context.Context, code string) (*models.InventoryUnit, error)

	Create(ctx context.Context, actor Actor, req dtos.CreatePropertyRequest) (*dtos.CreatePropertyResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req dtos.UpdatePropertyRequest) (*dtos.UpdatePropertyResponse, error)
	Borrow(ctx context.Context, actor Actor, id uuid.UUID, req dtos.BorrowRequest) (*models.InventoryUnit, error)
	Return(ctx context.Context, actor Actor, id uuid.UUID) (*models.InventoryUnit, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	BulkDelete(ctx context.Context, actor Actor, ids []uuid.UUID) (int64, error)
}

type inventoryService struct {
	unitRepo  repositories.InventoryUnitRepository
	seqRepo   repositories.CodeSequenceRepository
	userRepo  repositories.UserRepository
	audit     auditLogger
	publisher notifications.Publisher
	metrics   *metrics.Metrics
	cfg       *config.Config
	now       func() time.Time
}

func NewInventoryService(
	unitRepo repositories.InventoryUnitRepository,
	seqRepo repositories.CodeSequenceRepository,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditLogRepository,
	publisher notifications.Publisher,
	m *metrics.Metrics,
	cfg *config.Config,
) InventoryService {
	if publisher == nil {
		publisher = notifications.NopPublisher{}
	}
	return &inventoryService{
		unitRepo:  unitRepo,
		seqRepo:   seqRepo,
		userRepo:  userRepo,
		audit:     auditLogger{repo: auditRepo},
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ---------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------

func (s *inventoryService) ListGrouped(ctx context.Context, f repositories.UnitFilter) ([]inventory.FamilyView, error) {
	units, err := s.unitRepo.List(ctx, f)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return inventory.GroupAll(units), nil
}

func (s *inventoryService) ListUnits(ctx context.Context, f repositories.UnitFilter) ([]*models.InventoryUnit, error) {
	units, err := s.unitRepo.List(ctx, f)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return units, nil
}

func (s *inventoryService) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := s.unitRepo.ListCategories(ctx)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return cats, nil
}

func (s *inventoryService) ListBorrowed(ctx context.Context) ([]*models.InventoryUnit, error) {
	units, err := s.unitRepo.ListBorrowed(ctx)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return units, nil
}

// ListOverdue includes units already notified; the flag only gates pushes.
func (s *inventoryService) ListOverdue(ctx context.Context) ([]*models.InventoryUnit, error) {
	borrowed, err := s.unitRepo.ListBorrowed(ctx)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	now := s.now()
	out := make([]*models.InventoryUnit, 0, len(borrowed))
	for _, u := range borrowed {
		if u.IsOverdue(now) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *inventoryService) ListHistory(ctx context.Context, email string) ([]*models.InventoryUnit, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, mapInventoryError(&inventory.ValidationError{Field: "email", Message: "is required"})
	}
	units, err := s.unitRepo.ListUpdatedBy(ctx, email)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	return units, nil
}

func (s *inventoryService) GetDetail(ctx context.Context, id uuid.UUID) (*dtos.PropertyDetailResponse, error) {
	u, err := s.unitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if u == nil {
		return nil, mapInventoryError(&inventory.NotFoundError{What: "property", Key: id.String()})
	}

	all, err := s.unitRepo.ListAll(ctx)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	family := inventory.ResolveFamily(inventory.KeyFor(u), all)

	resp := &dtos.PropertyDetailResponse{Unit: u}
	if len(family) == 0 {
		// The unit vanished from the scan between the two reads.
		resp.Family = []*models.InventoryUnit{u}
		resp.Breakdown = inventory.FallbackBreakdown(u)
	} else {
		resp.Family = family
		resp.Breakdown = inventory.QuantityBreakdown(family)
	}
	resp.Representative = inventory.RepresentativeView(resp.Family)

	resp.History = s.audit.history(ctx, u.ID, detailHistoryLimit)
	return resp, nil
}

func (s *inventoryService) GetByCode(ctx context.Context, code string) (*models.InventoryUnit, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, mapInventoryError(&inventory.ValidationError{Field: "property_code", Message: "is required"})
	}
	u, err := s.unitRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, mapInventoryError(err)
	}
	if u == nil {
		return nil, mapInventoryError(&inventory.NotFoundError{What: "property", Key: code})
	}
	return u, nil
}

// ---------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------

func (s *inventoryService) Create(ctx context.Context, actor Actor, req dtos.CreatePropertyRequest) (*dtos.CreatePropertyResponse, error) {
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	tmpl := inventory.UnitTemplate{
		PropertyName: req.PropertyName,
		Category:     req.Category,
		Location:     req.Location,
		Description:  req.Description,
		Remarks:      req.Remarks,
		ImageURL:     req.ImageURL,
		SerialNumber: req.SerialNumber,
		Status:       req.Status,
		DateReceived: req.DateReceived,
		UpdatedBy:    actor.Label(),
	}
	now := s.now().UTC()

	floor := 0
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		existing := s.scanUnits(ctx)

		var family []*models.InventoryUnit
		if img := strings.TrimSpace(utils.Val(tmpl.ImageURL)); img != "" {
			family = inventory.ResolveFamily(inventory.ImageKey(img), existing)
		}
		freshBase := ""
		if len(family) == 0 {
			freshBase = s.mintBaseCode(ctx, existing, floor)
			floor, _, _ = inventory.ParseBaseNumber(freshBase)
		}

		units, err := inventory.AllocateBatch(inventory.BatchRequest{
			Template:  tmpl,
			Quantity:  qty,
			Family:    family,
			Existing:  existing,
			FreshBase: freshBase,
			Now:       now,
		})
		if err != nil {
			return nil, mapInventoryError(err)
		}

		if s.hasCollisions(units, existing) {
			s.metrics.RecordAllocationConflict("scan")
			continue
		}

		err = s.unitRepo.CreateBatch(ctx, units)
		if repositories.IsUniqueViolation(err) {
			utils.Logger.WithError(err).WithFields(logrus.Fields{
				"attempt":    attempt + 1,
				"constraint": repositories.ConstraintName(err),
			}).Warn("Unique violation inserting batch, re-minting")
			s.metrics.RecordAllocationConflict("insert")
			continue
		}
		if err != nil {
			return nil, mapInventoryError(err)
		}

		s.afterCreate(ctx, actor, units, "created")
		return &dtos.CreatePropertyResponse{Units: units, Count: len(units)}, nil
	}

	s.metrics.RecordAllocationConflict("exhausted")
	return nil, mapInventoryError(&inventory.ConflictError{
		Message:   "Could not allocate unique property codes, please try again",
		Retryable: true,
	})
}

// scanUnits reads every unit for numbering. A failed scan is treated as an
// empty store so numbering restarts at PROP-001; the unique constraints
// still reject a clash on insert.
func (s *inventoryService) scanUnits(ctx context.Context) []*models.InventoryUnit {
	units, err := s.unitRepo.ListAll(ctx)
	if err != nil {
		utils.Logger.WithError(err).Warn("Failed to scan units for numbering, falling back to an empty scan")
		return nil
	}
	return units
}

// mintBaseCode returns a base code above both the scan maximum and floor,
// numbered from the code sequence when it is enabled.
func (s *inventoryService) mintBaseCode(ctx context.Context, existing []*models.InventoryUnit, floor int) string {
	scanMax := inventory.MaxBaseNumber(existing)
	if s.cfg != nil && s.cfg.LDFlag_UseCodeSequence && s.seqRepo != nil {
		n, err := s.seqRepo.Next(ctx, repositories.PropertyCodeSequence, max(scanMax, floor))
		if err == nil {
			return inventory.FormatBaseCode(n)
		}
		utils.Logger.WithError(err).Warn("Code sequence unavailable, using scan maximum")
	}
	if floor > scanMax {
		return inventory.FormatBaseCode(floor + 1)
	}
	return inventory.NextBasePropertyCode(existing)
}

// hasCollisions reports minted values already in the scan. The caller
// re-scans and re-mints, so a clash here is always retryable.
func (s *inventoryService) hasCollisions(minted, existing []*models.InventoryUnit) bool {
	hits := inventory.FindCollisions(minted, existing)
	if len(hits) == 0 {
		return false
	}
	utils.Logger.WithField("collisions", hits).Warn("Minted identifiers collide with existing units, re-minting")
	return true
}

func (s *inventoryService) afterCreate(ctx context.Context, actor Actor, units []*models.InventoryUnit, action string) {
	first := units[0]
	codes := make([]string, len(units))
	for i, u := range units {
		codes[i] = u.PropertyCode
	}
	s.metrics.RecordUnitsCreated(len(units))
	s.audit.log(ctx, actor, first.ID, models.AuditCreate, models.TargetInventoryUnit, map[string]any{
		"property_codes": codes,
		"quantity":       len(units),
	})
	s.publisher.Publish(ctx, notifications.Event{
		Type: notifications.PropertyCreated,
		Payload: notifications.PropertyChangedPayload{
			ID:           first.ID,
			PropertyCode: inventory.BaseCode(first.PropertyCode),
			PropertyName: first.PropertyName,
			Action:       action,
			Status:       string(first.Status),
			Count:        len(units),
			Actor:        actor.Label(),
		},
		SentAt: s.now().UTC(),
	})
	utils.Logger.WithFields(logrus.Fields{
		"codes": codes,
		"actor": actor.Label(),
	}).Infof("Created %d unit(s)", len(units))
}

// ---------------------------------------------------------------------
// Update / borrow / return
// ---------------------------------------------------------------------

func (s *inventoryService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dtos.UpdatePropertyRequest) (*dtos.UpdatePropertyResponse, error) {
	now := s.now().UTC()
	edit := inventory.UnitEdit{
		PropertyCode: utils.TrimPtr(req.PropertyCode),
		TagNumber:    utils.TrimPtr(req.TagNumber),
		PropertyName: req.PropertyName,
		Category:     req.Category,
		Location:     req.Location,
		Description:  req.Description,
		Remarks:      req.Remarks,
		ImageURL:     req.ImageURL,
		DateReceived: req.DateReceived,
		Status:       req.Status,
		BorrowerName: req.BorrowerName,
		ReturnDueAt:  req.ReturnDueAt,
		UpdatedBy:    actor.Label(),
	}

	var (
		updated *models.InventoryUnit
		action  inventory.EditAction
	)
	err := s.unitRepo.UpdateWithRetry(ctx, id, func(u *models.InventoryUnit) error {
		if req.RowVersion != 0 && u.RowVersion != req.RowVersion {
			return &utils.AppError{
				StatusCode: http.StatusConflict,
				Code:       utils.ErrCodeRowVersionConflict,
				Message:    "The record was modified by someone else; reload and try again",
				Details:    u.Clone(),
				Err:        utils.ErrRowVersionConflict,
			}
		}
		if err := s.checkIdentifiersFree(ctx, u, edit); err != nil {
			return err
		}
		a, err := inventory.ApplyEdit(u, edit, now)
		if err != nil {
			return err
		}
		action, updated = a, u
		return nil
	})
	if err != nil {
		return nil, mapInventoryError(err)
	}

	resp := &dtos.UpdatePropertyResponse{Unit: updated, Action: action}
	if req.Quantity != nil {
		added, err := s.growFamily(ctx, actor, updated, *req.Quantity, now)
		if err != nil {
			return nil, err
		}
		resp.Added = added
	}

	s.afterEdit(ctx, actor, updated, action)
	return resp, nil
}

// checkIdentifiersFree looks up a changed code or tag in the rest of the store.
func (s *inventoryService) checkIdentifiersFree(ctx context.Context, u *models.InventoryUnit, e inventory.UnitEdit) error {
	code, tag := u.PropertyCode, u.TagNumber
	changed := false
	if e.PropertyCode != nil && *e.PropertyCode != code {
		code, changed = *e.PropertyCode, true
	}
	if e.TagNumber != nil && *e.TagNumber != tag {
		tag, changed = *e.TagNumber, true
	}
	if !changed {
		return nil
	}
	taken, err := s.unitRepo.CodeOrTagTaken(ctx, code, tag, u.ID)
	if err != nil {
		return err
	}
	if taken {
		return &inventory.ConflictError{Message: fmt.Sprintf("Property code %q or tag %q is already in use", code, tag)}
	}
	return nil
}

// growFamily adds units until the anchor's family holds want units. A
// smaller want is ignored; units are removed by deleting them one by one.
func (s *inventoryService) growFamily(ctx context.Context, actor Actor, anchor *models.InventoryUnit, want int, now time.Time) ([]*models.InventoryUnit, error) {
	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		all, err := s.unitRepo.ListAll(ctx)
		if err != nil {
			return nil, mapInventoryError(err)
		}
		family := inventory.ResolveFamily(inventory.KeyFor(anchor), all)
		if len(family) == 0 {
			family = []*models.InventoryUnit{anchor}
		}
		if want <= len(family) {
			if want < len(family) {
				utils.Logger.WithFields(logrus.Fields{
					"id":   anchor.ID,
					"want": want,
					"have": len(family),
				}).Info("Quantity below family size ignored")
			}
			return nil, nil
		}

		tmpl := inventory.TemplateFromUnit(anchor)
		tmpl.SerialNumber = anchor.TagNumber
		tmpl.UpdatedBy = actor.Label()
		units, err := inventory.AllocateBatch(inventory.BatchRequest{
			Template: tmpl,
			Quantity: want - len(family),
			Family:   family,
			Existing: all,
			Now:      now,
		})
		if err != nil {
			return nil, mapInventoryError(err)
		}
		if s.hasCollisions(units, all) {
			s.metrics.RecordAllocationConflict("scan")
			continue
		}

		err = s.unitRepo.CreateBatch(ctx, units)
		if repositories.IsUniqueViolation(err) {
			s.metrics.RecordAllocationConflict("insert")
			continue
		}
		if err != nil {
			return nil, mapInventoryError(err)
		}
		s.afterCreate(ctx, actor, units, "quantity_increased")
		return units, nil
	}
	s.metrics.RecordAllocationConflict("exhausted")
	return nil, mapInventoryError(&inventory.ConflictError{
		Message:   "Could not allocate unique codes for the added units, please try again",
		Retryable: true,
	})
}

func (s *inventoryService) Borrow(ctx context.Context, actor Actor, id uuid.UUID, req dtos.BorrowRequest) (*models.InventoryUnit, error) {
	borrower := strings.TrimSpace(req.BorrowerName)
	if borrower == "" {
		borrower = s.actorName(ctx, actor)
	}
	now := s.now().UTC()

	var updated *models.InventoryUnit
	err := s.unitRepo.UpdateWithRetry(ctx, id, func(u *models.InventoryUnit) error {
		if err := inventory.Borrow(u, borrower, req.ReturnDueAt, now); err != nil {
			return err
		}
		u.UpdatedBy = actor.Label()
		u.UpdatedAt = now
		updated = u
		return nil
	})
	if err != nil {
		return nil, mapInventoryError(err)
	}
	s.afterEdit(ctx, actor, updated, inventory.ActionBorrowed)
	return updated, nil
}

func (s *inventoryService) Return(ctx context.Context, actor Actor, id uuid.UUID) (*models.InventoryUnit, error) {
	now := s.now().UTC()

	var (
		updated  *models.InventoryUnit
		borrower *string
	)
	err := s.unitRepo.UpdateWithRetry(ctx, id, func(u *models.InventoryUnit) error {
		borrower = u.BorrowerName
		if err := inventory.Return(u); err != nil {
			return err
		}
		u.UpdatedBy = actor.Label()
		u.UpdatedAt = now
		updated = u
		return nil
	})
	if err != nil {
		return nil, mapInventoryError(err)
	}
	s.afterEditWithBorrower(ctx, actor, updated, inventory.ActionReturned, borrower)
	return updated, nil
}

// actorName is the default borrower: the caller's full name, else their email.
func (s *inventoryService) actorName(ctx context.Context, actor Actor) string {
	if s.userRepo != nil && actor.ID != uuid.Nil {
		u, err := s.userRepo.GetByID(ctx, actor.ID)
		if err != nil {
			utils.Logger.WithError(err).WithField("user_id", actor.ID).Warn("Failed to load borrower profile")
		} else if u != nil && strings.TrimSpace(u.FullName) != "" {
			return u.FullName
		}
	}
	return actor.Email
}

func (s *inventoryService) afterEdit(ctx context.Context, actor Actor, u *models.InventoryUnit, action inventory.EditAction) {
	s.afterEditWithBorrower(ctx, actor, u, action, u.BorrowerName)
}

func (s *inventoryService) afterEditWithBorrower(ctx context.Context, actor Actor, u *models.InventoryUnit, action inventory.EditAction, borrower *string) {
	auditAction := models.AuditUpdate
	switch action {
	case inventory.ActionBorrowed:
		auditAction = models.AuditBorrow
	case inventory.ActionReturned:
		auditAction = models.AuditReturn
	}
	s.metrics.RecordUnitOperation(string(action))
	s.audit.log(ctx, actor, u.ID, auditAction, models.TargetInventoryUnit, map[string]any{
		"action":        action,
		"property_code": u.PropertyCode,
		"status":        u.Status,
		"borrower_name": borrower,
	})
	s.publisher.Publish(ctx, notifications.Event{
		Type: notifications.PropertyUpdated,
		Payload: notifications.PropertyChangedPayload{
			ID:           u.ID,
			PropertyCode: u.PropertyCode,
			PropertyName: u.PropertyName,
			Action:       string(action),
			Status:       string(u.Status),
			BorrowerName: borrower,
			Actor:        actor.Label(),
		},
		SentAt: s.now().UTC(),
	})
}

// ---------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------

func (s *inventoryService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	u, err := s.unitRepo.GetByID(ctx, id)
	if err != nil {
		return mapInventoryError(err)
	}
	if u == nil {
		return mapInventoryError(&inventory.NotFoundError{What: "property", Key: id.String()})
	}
	if err := s.unitRepo.Delete(ctx, id); err != nil {
		return mapInventoryError(err)
	}

	s.metrics.RecordUnitOperation("deleted")
	s.audit.log(ctx, actor, u.ID, models.AuditDelete, models.TargetInventoryUnit, map[string]any{
		"property_code": u.PropertyCode,
		"tag_number":    u.TagNumber,
	})
	s.publisher.Publish(ctx, notifications.Event{
		Type: notifications.PropertyDeleted,
		Payload: notifications.PropertyChangedPayload{
			ID:           u.ID,
			PropertyCode: u.PropertyCode,
			PropertyName: u.PropertyName,
			Action:       "deleted",
			Count:        1,
			Actor:        actor.Label(),
		},
		SentAt: s.now().UTC(),
	})
	return nil
}

func (s *inventoryService) BulkDelete(ctx context.Context, actor Actor, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, mapInventoryError(&inventory.ValidationError{Field: "ids", Message: "at least one id is required"})
	}
	n, err := s.unitRepo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, mapInventoryError(err)
	}
	if n == 0 {
		return 0, nil
	}

	s.metrics.RecordUnitOperation("bulk_deleted")
	s.audit.log(ctx, actor, ids[0], models.AuditDelete, models.TargetInventoryUnit, map[string]any{
		"ids":     ids,
		"deleted": n,
	})
	s.publisher.Publish(ctx, notifications.Event{
		Type: notifications.PropertyDeleted,
		Payload: notifications.PropertyChangedPayload{
			Action: "bulk_deleted",
			Count:  int(n),
			Actor:  actor.Label(),
		},
		SentAt: s.now().UTC(),
	})
	return n, nil
}
