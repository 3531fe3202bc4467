package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/inventory"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/notifications"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

var adminActor = Actor{ID: uuid.New(), Email: "admin@example.com", Role: models.RoleAdmin}

type inventoryFixture struct {
	svc   *inventoryService
	units *fakeUnitRepo
	seq   *fakeSeqRepo
	users *fakeUserRepo
	audit *fakeAuditRepo
	pub   *fakePublisher
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	f := &inventoryFixture{
		units: &fakeUnitRepo{},
		seq:   &fakeSeqRepo{},
		users: &fakeUserRepo{},
		audit: &fakeAuditRepo{},
		pub:   &fakePublisher{},
	}
	svc := NewInventoryService(f.units, f.seq, f.users, f.audit, f.pub, nil, testConfig()).(*inventoryService)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

func createReq(qty int) dtos.CreatePropertyRequest {
	return dtos.CreatePropertyRequest{
		PropertyName: "Laptop",
		Category:     "IT Equipment",
		Location:     "Room 101",
		Quantity:     qty,
	}
}

func stored(code, tag string, status models.PropertyStatus) *models.InventoryUnit {
	return &models.InventoryUnit{
		ID:           uuid.New(),
		PropertyCode: code,
		TagNumber:    tag,
		PropertyName: "Projector",
		Category:     "AV",
		Location:     "Hall",
		Status:       status,
		UpdatedAt:    fixedNow.Add(-time.Hour),
	}
}

func borrowedStored(code string, due time.Time) *models.InventoryUnit {
	u := stored(code, code+"-TAG", models.StatusInUse)
	u.BorrowerName = utils.StrPtr("Juan Dela Cruz")
	u.BorrowedAt = utils.Ptr(due.Add(-72 * time.Hour))
	u.ReturnDueAt = utils.Ptr(due)
	return u
}

func requireAppError(t *testing.T, err error, status int, code string) *utils.AppError {
	t.Helper()
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.StatusCode)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func codesOf(units []*models.InventoryUnit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.PropertyCode
	}
	return out
}

/* ---------- create ---------- */

func TestCreate_SingleUnitGetsBareBaseCode(t *testing.T) {
	f := newInventoryFixture(t)

	resp, err := f.svc.Create(context.Background(), adminActor, createReq(0))
	require.NoError(t, err)
	require.Len(t, resp.Units, 1)

	u := resp.Units[0]
	assert.Equal(t, "PROP-001", u.PropertyCode)
	assert.Equal(t, "PROP-001-TAG-001", u.TagNumber)
	assert.Equal(t, models.StatusAvailable, u.Status)
	assert.Equal(t, 1, u.Quantity)
	assert.Equal(t, adminActor.Email, u.UpdatedBy)
	assert.Equal(t, []models.AuditAction{models.AuditCreate}, f.audit.actions())
	assert.Equal(t, []notifications.EventType{notifications.PropertyCreated}, f.pub.types())
}

func TestCreate_BatchFansOutConsecutiveSuffixes(t *testing.T) {
	f := newInventoryFixture(t)
	f.units.add(stored("PROP-004", "", models.StatusAvailable))

	req := createReq(3)
	req.SerialNumber = "SN-2024-010"
	resp, err := f.svc.Create(context.Background(), adminActor, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"PROP-005-001", "PROP-005-002", "PROP-005-003"}, codesOf(resp.Units))
	assert.Equal(t, "SN-2024-001", resp.Units[0].TagNumber)
	assert.Equal(t, "SN-2024-003", resp.Units[2].TagNumber)
	assert.Equal(t, 5, f.seq.last, "sequence is floored at the scan maximum")

	ev := f.pub.events[0].Payload.(notifications.PropertyChangedPayload)
	assert.Equal(t, "PROP-005", ev.PropertyCode)
	assert.Equal(t, 3, ev.Count)
}

func TestCreate_JoinsExistingImageFamily(t *testing.T) {
	f := newInventoryFixture(t)
	a := stored("PROP-004-001", "PROP-004-TAG-001", models.StatusAvailable)
	b := stored("PROP-004-002", "PROP-004-TAG-002", models.StatusInUse)
	a.ImageURL = utils.StrPtr("https://cdn.test/chair.png")
	b.ImageURL = utils.StrPtr("https://cdn.test/chair.png")
	f.units.add(a, b, stored("PROP-009", "", models.StatusAvailable))

	req := createReq(2)
	req.ImageURL = utils.StrPtr("  HTTPS://cdn.test/chair.png ")
	resp, err := f.svc.Create(context.Background(), adminActor, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"PROP-004-003", "PROP-004-004"}, codesOf(resp.Units))
	assert.Equal(t, "PROP-004-TAG-003", resp.Units[0].TagNumber)
	assert.Equal(t, 0, f.seq.last, "joining a family mints no base code")
}

func TestCreate_FallsBackToScanWhenSequenceFails(t *testing.T) {
	f := newInventoryFixture(t)
	f.seq.err = errBoom
	f.units.add(stored("PROP-012", "", models.StatusAvailable))

	resp, err := f.svc.Create(context.Background(), adminActor, createReq(1))
	require.NoError(t, err)
	assert.Equal(t, "PROP-013", resp.Units[0].PropertyCode)
}

func TestCreate_ScanFailureStartsAtOne(t *testing.T) {
	f := newInventoryFixture(t)
	f.units.listAllErr = errBoom
	f.svc.cfg.LDFlag_UseCodeSequence = false

	resp, err := f.svc.Create(context.Background(), adminActor, createReq(1))
	require.NoError(t, err)
	assert.Equal(t, "PROP-001", resp.Units[0].PropertyCode)
}

func TestCreate_ReMintsOnceAfterUniqueViolation(t *testing.T) {
	f := newInventoryFixture(t)
	f.units.createErrs = []error{errUnique}

	resp, err := f.svc.Create(context.Background(), adminActor, createReq(1))
	require.NoError(t, err)
	assert.Equal(t, "PROP-002", resp.Units[0].PropertyCode)
	assert.Equal(t, 2, f.units.createCalls)
}

func TestCreate_GivesUpWithRetryableConflict(t *testing.T) {
	f := newInventoryFixture(t)
	f.units.createErrs = []error{errUnique, errUnique}

	_, err := f.svc.Create(context.Background(), adminActor, createReq(2))
	appErr := requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	assert.Equal(t, map[string]bool{"retryable": true}, appErr.Details)
	assert.Empty(t, f.units.snapshot())
	assert.Empty(t, f.pub.types())
}

func TestCreate_SerialNumbersPastExistingTags(t *testing.T) {
	f := newInventoryFixture(t)
	f.units.add(stored("PROP-001", "SN-001", models.StatusAvailable))

	req := createReq(1)
	req.SerialNumber = "SN-001"
	resp, err := f.svc.Create(context.Background(), adminActor, req)
	require.NoError(t, err)
	assert.Equal(t, "PROP-002", resp.Units[0].PropertyCode)
	assert.Equal(t, "SN-002", resp.Units[0].TagNumber)
	assert.Equal(t, 1, f.units.createCalls)
}

func TestCreate_JoinFamilySkipsUnitsThatLeftIt(t *testing.T) {
	f := newInventoryFixture(t)
	img := utils.StrPtr("chair.png")
	a := stored("PROP-004-001", "PROP-004-TAG-001", models.StatusAvailable)
	a.ImageURL = img
	b := stored("PROP-004-002", "PROP-004-TAG-002", models.StatusAvailable)
	b.ImageURL = img
	left := stored("PROP-004-003", "PROP-004-TAG-003", models.StatusAvailable)
	f.units.add(a, b, left)

	req := createReq(1)
	req.ImageURL = img
	resp, err := f.svc.Create(context.Background(), adminActor, req)
	require.NoError(t, err)
	require.Len(t, resp.Units, 1)
	assert.Equal(t, "PROP-004-004", resp.Units[0].PropertyCode)
	assert.Equal(t, "PROP-004-TAG-004", resp.Units[0].TagNumber)
	assert.Equal(t, 1, f.units.createCalls)
}

func TestCreate_RejectsInUseAndBlankFields(t *testing.T) {
	f := newInventoryFixture(t)

	req := createReq(1)
	req.Status = models.StatusInUse
	_, err := f.svc.Create(context.Background(), adminActor, req)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	req = createReq(1)
	req.Location = "  "
	_, err = f.svc.Create(context.Background(), adminActor, req)
	appErr := requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
	assert.Equal(t, map[string]string{"field": "location"}, appErr.Details)
}

/* ---------- borrow / return ---------- */

func TestBorrow_DefaultsBorrowerToCallerName(t *testing.T) {
	f := newInventoryFixture(t)
	mobile := &models.User{ID: uuid.New(), Email: "maria@example.com", FullName: "Maria Clara", Role: models.RoleMobileUser}
	require.NoError(t, f.users.Create(context.Background(), mobile))
	u := stored("PROP-001", "PROP-001-TAG-001", models.StatusAvailable)
	f.units.add(u)

	due := fixedNow.Add(48 * time.Hour)
	actor := Actor{ID: mobile.ID, Email: mobile.Email, Role: mobile.Role}
	got, err := f.svc.Borrow(context.Background(), actor, u.ID, dtos.BorrowRequest{ReturnDueAt: &due})
	require.NoError(t, err)

	assert.Equal(t, models.StatusInUse, got.Status)
	assert.Equal(t, "Maria Clara", utils.Val(got.BorrowerName))
	assert.Equal(t, fixedNow, utils.Val(got.BorrowedAt))
	assert.Equal(t, int64(2), got.RowVersion)
	assert.Equal(t, "maria@example.com", f.units.get(u.ID).UpdatedBy)

	assert.Equal(t, []models.AuditAction{models.AuditBorrow}, f.audit.actions())
	ev := f.pub.events[0].Payload.(notifications.PropertyChangedPayload)
	assert.Equal(t, string(inventory.ActionBorrowed), ev.Action)
}

func TestBorrow_StatusGuards(t *testing.T) {
	f := newInventoryFixture(t)
	damaged := stored("PROP-001", "", models.StatusDamaged)
	out := borrowedStored("PROP-002", fixedNow.Add(time.Hour))
	f.units.add(damaged, out)

	_, err := f.svc.Borrow(context.Background(), adminActor, damaged.ID, dtos.BorrowRequest{BorrowerName: "Ana"})
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	_, err = f.svc.Borrow(context.Background(), adminActor, out.ID, dtos.BorrowRequest{BorrowerName: "Ana"})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)

	_, err = f.svc.Borrow(context.Background(), adminActor, uuid.New(), dtos.BorrowRequest{BorrowerName: "Ana"})
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
}

func TestReturn_ClearsBorrowingAndReportsPreviousBorrower(t *testing.T) {
	f := newInventoryFixture(t)
	out := borrowedStored("PROP-002", fixedNow.Add(time.Hour))
	idle := stored("PROP-003", "", models.StatusAvailable)
	f.units.add(out, idle)

	got, err := f.svc.Return(context.Background(), adminActor, out.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, got.Status)
	assert.Nil(t, got.BorrowerName)
	assert.Nil(t, got.ReturnDueAt)

	ev := f.pub.events[0].Payload.(notifications.PropertyChangedPayload)
	assert.Equal(t, "Juan Dela Cruz", utils.Val(ev.BorrowerName))

	_, err = f.svc.Return(context.Background(), adminActor, idle.ID)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
}

func TestBorrow_SurvivesConcurrentWriter(t *testing.T) {
	f := newInventoryFixture(t)
	u := stored("PROP-001", "", models.StatusAvailable)
	f.units.add(u)
	f.units.concurrentBump = 1

	got, err := f.svc.Borrow(context.Background(), adminActor, u.ID, dtos.BorrowRequest{BorrowerName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.RowVersion)
}

/* ---------- update ---------- */

func TestUpdate_BorrowedUnitOnlyAcceptsBorrowingChanges(t *testing.T) {
	f := newInventoryFixture(t)
	out := borrowedStored("PROP-002", fixedNow.Add(time.Hour))
	f.units.add(out)

	_, err := f.svc.Update(context.Background(), adminActor, out.ID, dtos.UpdatePropertyRequest{
		PropertyName: utils.StrPtr("Renamed"),
	})
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)

	later := fixedNow.Add(72 * time.Hour)
	resp, err := f.svc.Update(context.Background(), adminActor, out.ID, dtos.UpdatePropertyRequest{
		ReturnDueAt: &later,
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.ActionBorrowingUpdated, resp.Action)
	assert.Equal(t, later, utils.Val(resp.Unit.ReturnDueAt))
}

func TestUpdate_StatusChangeOutOfInUseIsAReturn(t *testing.T) {
	f := newInventoryFixture(t)
	out := borrowedStored("PROP-002", fixedNow.Add(time.Hour))
	f.units.add(out)

	resp, err := f.svc.Update(context.Background(), adminActor, out.ID, dtos.UpdatePropertyRequest{
		Status: utils.Ptr(models.StatusUnderMaintenance),
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.ActionReturned, resp.Action)
	assert.Equal(t, models.StatusUnderMaintenance, resp.Unit.Status)
	assert.Nil(t, resp.Unit.BorrowerName)
	assert.Equal(t, []models.AuditAction{models.AuditReturn}, f.audit.actions())
}

func TestUpdate_StaleRowVersion(t *testing.T) {
	f := newInventoryFixture(t)
	u := stored("PROP-001", "", models.StatusAvailable)
	u.RowVersion = 4
	f.units.add(u)

	_, err := f.svc.Update(context.Background(), adminActor, u.ID, dtos.UpdatePropertyRequest{
		Location:   utils.StrPtr("Storage"),
		RowVersion: 3,
	})
	appErr := requireAppError(t, err, http.StatusConflict, utils.ErrCodeRowVersionConflict)
	current, ok := appErr.Details.(*models.InventoryUnit)
	require.True(t, ok)
	assert.Equal(t, int64(4), current.RowVersion)
	assert.Equal(t, "Hall", f.units.get(u.ID).Location)
}

func TestUpdate_RejectsTakenCode(t *testing.T) {
	f := newInventoryFixture(t)
	a := stored("PROP-001", "", models.StatusAvailable)
	b := stored("PROP-002", "", models.StatusAvailable)
	f.units.add(a, b)

	_, err := f.svc.Update(context.Background(), adminActor, b.ID, dtos.UpdatePropertyRequest{
		PropertyCode: utils.StrPtr(" PROP-001 "),
	})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	assert.Equal(t, "PROP-002", f.units.get(b.ID).PropertyCode)
}

func TestUpdate_QuantityGrowsFamily(t *testing.T) {
	f := newInventoryFixture(t)
	u := stored("PROP-001", "PROP-001-TAG-001", models.StatusAvailable)
	u.ImageURL = utils.StrPtr("https://cdn.test/projector.png")
	f.units.add(u)

	resp, err := f.svc.Update(context.Background(), adminActor, u.ID, dtos.UpdatePropertyRequest{
		Quantity: utils.Ptr(3),
	})
	require.NoError(t, err)
	require.Len(t, resp.Added, 2)
	assert.Equal(t, []string{"PROP-001-001", "PROP-001-002"}, codesOf(resp.Added))
	assert.Equal(t, "PROP-001-TAG-002", resp.Added[0].TagNumber)
	assert.Equal(t, "PROP-001-TAG-003", resp.Added[1].TagNumber)
	for _, a := range resp.Added {
		assert.Equal(t, models.StatusAvailable, a.Status)
		assert.Equal(t, "https://cdn.test/projector.png", utils.Val(a.ImageURL))
	}
	assert.Len(t, f.units.snapshot(), 3)

	// Shrinking is ignored.
	resp, err = f.svc.Update(context.Background(), adminActor, u.ID, dtos.UpdatePropertyRequest{
		Quantity: utils.Ptr(1),
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Added)
	assert.Len(t, f.units.snapshot(), 3)
}

func TestUpdate_GrowSkipsUnitsThatLeftFamily(t *testing.T) {
	f := newInventoryFixture(t)
	u := stored("PROP-004-001", "PROP-004-TAG-001", models.StatusAvailable)
	u.ImageURL = utils.StrPtr("chair.png")
	left := stored("PROP-004-002", "PROP-004-TAG-002", models.StatusDamaged)
	f.units.add(u, left)

	resp, err := f.svc.Update(context.Background(), adminActor, u.ID, dtos.UpdatePropertyRequest{
		Quantity: utils.Ptr(2),
	})
	require.NoError(t, err)
	require.Len(t, resp.Added, 1)
	assert.Equal(t, "PROP-004-003", resp.Added[0].PropertyCode)
	assert.Equal(t, "PROP-004-TAG-003", resp.Added[0].TagNumber)
}

/* ---------- reads ---------- */

func TestGetDetail_FamilyBreakdownAndRepresentative(t *testing.T) {
	f := newInventoryFixture(t)
	img := utils.StrPtr("https://cdn.test/desk.png")
	a := stored("PROP-003-001", "D-001", models.StatusAvailable)
	b := borrowedStored("PROP-003-002", fixedNow.Add(time.Hour))
	c := stored("PROP-003-003", "D-003", models.StatusDamaged)
	for _, u := range []*models.InventoryUnit{a, b, c} {
		u.ImageURL = img
	}
	f.units.add(a, b, c, stored("PROP-004", "", models.StatusAvailable))

	detail, err := f.svc.GetDetail(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Family, 3)
	assert.Equal(t, inventory.Breakdown{Total: 3, Available: 1, InUse: 1, Damaged: 1}, detail.Breakdown)
	require.NotNil(t, detail.Representative)
	assert.Equal(t, b.ID, detail.Unit.ID)

	_, err = f.svc.GetDetail(context.Background(), uuid.New())
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
}

func TestListGrouped_GroupsByImage(t *testing.T) {
	f := newInventoryFixture(t)
	img := utils.StrPtr("https://cdn.test/chair.png")
	a := stored("PROP-001-001", "C-001", models.StatusAvailable)
	b := stored("PROP-001-002", "C-002", models.StatusAvailable)
	a.ImageURL, b.ImageURL = img, img
	f.units.add(a, b, stored("PROP-002", "", models.StatusAvailable))

	rows, err := f.svc.ListGrouped(context.Background(), repositories.UnitFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var grouped *inventory.FamilyView
	for i := range rows {
		if rows[i].Grouped {
			grouped = &rows[i]
		}
	}
	require.NotNil(t, grouped)
	assert.Equal(t, 2, grouped.Breakdown.Total)
	assert.Equal(t, "PROP-001", grouped.Representative.PropertyCode)
}

func TestListOverdueAndHistory(t *testing.T) {
	f := newInventoryFixture(t)
	late := borrowedStored("PROP-001", fixedNow.Add(-time.Hour))
	onTime := borrowedStored("PROP-002", fixedNow.Add(time.Hour))
	late.UpdatedBy = "clerk@example.com"
	f.units.add(late, onTime)

	overdue, err := f.svc.ListOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"PROP-001"}, codesOf(overdue))

	borrowed, err := f.svc.ListBorrowed(context.Background())
	require.NoError(t, err)
	assert.Len(t, borrowed, 2)

	hist, err := f.svc.ListHistory(context.Background(), " Clerk@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, []string{"PROP-001"}, codesOf(hist))

	_, err = f.svc.ListHistory(context.Background(), "")
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
}

func TestGetByCode(t *testing.T) {
	f := newInventoryFixture(t)
	f.units.add(stored("PROP-007", "", models.StatusAvailable))

	u, err := f.svc.GetByCode(context.Background(), " PROP-007 ")
	require.NoError(t, err)
	assert.Equal(t, "PROP-007", u.PropertyCode)

	_, err = f.svc.GetByCode(context.Background(), "PROP-999")
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
}

/* ---------- delete ---------- */

func TestDeleteAndBulkDelete(t *testing.T) {
	f := newInventoryFixture(t)
	a := stored("PROP-001", "", models.StatusAvailable)
	b := stored("PROP-002", "", models.StatusAvailable)
	c := stored("PROP-003", "", models.StatusAvailable)
	f.units.add(a, b, c)

	require.NoError(t, f.svc.Delete(context.Background(), adminActor, a.ID))
	err := f.svc.Delete(context.Background(), adminActor, a.ID)
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)

	n, err := f.svc.BulkDelete(context.Background(), adminActor, []uuid.UUID{b.ID, c.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Empty(t, f.units.snapshot())
	assert.Equal(t, []notifications.EventType{notifications.PropertyDeleted, notifications.PropertyDeleted}, f.pub.types())

	_, err = f.svc.BulkDelete(context.Background(), adminActor, nil)
	requireAppError(t, err, http.StatusBadRequest, utils.ErrCodeValidation)
}
