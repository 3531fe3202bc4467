package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/notifications"
	"github.com/poofware/inventory-service/internal/utils"
)

type accountRequestFixture struct {
	svc    *accountRequestService
	reqs   *fakeAccountRequestRepo
	users  *fakeUserRepo
	audit  *fakeAuditRepo
	mailer *fakeMailer
	pub    *fakePublisher
}

func newAccountRequestFixture(t *testing.T) *accountRequestFixture {
	t.Helper()
	cfg := testConfig()
	f := &accountRequestFixture{
		reqs:   &fakeAccountRequestRepo{},
		users:  &fakeUserRepo{},
		audit:  &fakeAuditRepo{},
		mailer: &fakeMailer{},
		pub:    &fakePublisher{},
	}
	svc := NewAccountRequestService(f.reqs, f.users, f.audit, NewRateLimiterService(&fakeRateLimitRepo{}, cfg), f.mailer, f.pub, nil, cfg).(*accountRequestService)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc

	require.NoError(t, f.users.Create(context.Background(), &models.User{
		ID: adminActor.ID, Email: adminActor.Email, FullName: "Admin One", Role: models.RoleAdmin, IsApproved: true,
	}))
	return f
}

func (f *accountRequestFixture) submit(t *testing.T, email string) *models.AccountRequest {
	t.Helper()
	req, err := f.svc.Create(context.Background(), "10.0.0.9", dtos.CreateAccountRequestRequest{
		Email:    email,
		FullName: "  Maria Santos ",
		Position: utils.StrPtr("Faculty"),
	})
	require.NoError(t, err)
	return req
}

func tempPasswordFrom(t *testing.T, e Email) string {
	t.Helper()
	const marker = "Temporary password: "
	i := strings.Index(e.PlainText, marker)
	require.GreaterOrEqual(t, i, 0)
	rest := e.PlainText[i+len(marker):]
	return rest[:strings.Index(rest, "\n")]
}

func TestAccountRequestCreate_NotifiesRequesterAndAdmins(t *testing.T) {
	f := newAccountRequestFixture(t)

	req := f.submit(t, "Maria@School.edu")
	assert.Equal(t, "maria@school.edu", req.Email)
	assert.Equal(t, "Maria Santos", req.FullName)
	assert.Equal(t, models.AccountRequestPending, req.Status)
	assert.Equal(t, fixedNow, req.RequestedAt)

	assert.Equal(t, []string{TemplateRequestReceived, TemplateRequestAdmin}, f.mailer.templates())
	assert.Equal(t, adminActor.Email, f.mailer.sent[1].ToAddress)

	require.Len(t, f.pub.events, 1)
	ev := f.pub.events[0]
	assert.Equal(t, notifications.AccountRequestCreated, ev.Type)
	assert.True(t, ev.AdminOnly)
}

func TestAccountRequestCreate_Conflicts(t *testing.T) {
	f := newAccountRequestFixture(t)
	f.submit(t, "maria@school.edu")

	_, err := f.svc.Create(context.Background(), "ip", dtos.CreateAccountRequestRequest{Email: "maria@school.edu", FullName: "Again"})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)

	_, err = f.svc.Create(context.Background(), "ip", dtos.CreateAccountRequestRequest{Email: adminActor.Email, FullName: "Admin"})
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
}

func TestAccountRequestCreate_MailFailureStillRecords(t *testing.T) {
	f := newAccountRequestFixture(t)
	f.mailer.err = errBoom

	req := f.submit(t, "maria@school.edu")
	stored, err := f.reqs.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestAccountRequestApprove_CreatesMobileUser(t *testing.T) {
	f := newAccountRequestFixture(t)
	ctx := context.Background()
	req := f.submit(t, "maria@school.edu")

	updated, err := f.svc.Approve(ctx, adminActor, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountRequestApproved, updated.Status)
	require.NotNil(t, updated.ReviewedAt)
	assert.Equal(t, fixedNow, *updated.ReviewedAt)
	assert.Equal(t, adminActor.Email, utils.Val(updated.ReviewedBy))

	user, err := f.users.GetByEmail(ctx, "maria@school.edu")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, models.RoleMobileUser, user.Role)
	assert.True(t, user.RequiresPasswordChange)
	assert.True(t, user.IsApproved)

	approved := f.mailer.sent[len(f.mailer.sent)-1]
	assert.Equal(t, TemplateRequestApproved, approved.Template)
	assert.Contains(t, approved.PlainText, "https://inventory.test/mobile/login")
	temp := tempPasswordFrom(t, approved)
	assert.Len(t, temp, 8)
	assert.True(t, utils.CheckPasswordHash(temp, user.PasswordHash))

	assert.Equal(t, []models.AuditAction{models.AuditApprove}, f.audit.actions())
	assert.Equal(t, notifications.AccountRequestStatusChanged, f.pub.types()[1])

	_, err = f.svc.Approve(ctx, adminActor, req.ID)
	appErr := requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)
	assert.Contains(t, appErr.Message, "already approved")
}

func TestAccountRequestApprove_ExistingUserBlocks(t *testing.T) {
	f := newAccountRequestFixture(t)
	ctx := context.Background()
	req := f.submit(t, "maria@school.edu")
	require.NoError(t, f.users.Create(ctx, &models.User{ID: uuid.New(), Email: "maria@school.edu", Role: models.RoleMobileUser}))

	_, err := f.svc.Approve(ctx, adminActor, req.ID)
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)

	got, err := f.reqs.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountRequestPending, got.Status)
}

func TestAccountRequestReject(t *testing.T) {
	f := newAccountRequestFixture(t)
	ctx := context.Background()
	req := f.submit(t, "maria@school.edu")

	updated, err := f.svc.Reject(ctx, adminActor, req.ID, "  Not staff  ")
	require.NoError(t, err)
	assert.Equal(t, models.AccountRequestRejected, updated.Status)
	assert.Equal(t, "Not staff", utils.Val(updated.RejectionReason))

	rejected := f.mailer.sent[len(f.mailer.sent)-1]
	assert.Equal(t, TemplateRequestRejected, rejected.Template)
	assert.Contains(t, rejected.PlainText, "Reason: Not staff")

	_, err = f.svc.Approve(ctx, adminActor, req.ID)
	requireAppError(t, err, http.StatusConflict, utils.ErrCodeConflict)

	// A rejected email may ask again.
	again := f.submit(t, "maria@school.edu")
	assert.NotEqual(t, req.ID, again.ID)
}

func TestAccountRequestReject_BlankReason(t *testing.T) {
	f := newAccountRequestFixture(t)
	req := f.submit(t, "maria@school.edu")

	updated, err := f.svc.Reject(context.Background(), adminActor, req.ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, updated.RejectionReason)
	assert.Contains(t, f.mailer.sent[len(f.mailer.sent)-1].PlainText, "No reason was given.")
}

func TestAccountRequestListCountsDelete(t *testing.T) {
	f := newAccountRequestFixture(t)
	ctx := context.Background()
	a := f.submit(t, "a@school.edu")
	b := f.submit(t, "b@school.edu")
	f.submit(t, "c@school.edu")
	_, err := f.svc.Approve(ctx, adminActor, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, adminActor, b.ID, "")
	require.NoError(t, err)

	counts, err := f.svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AccountRequestCounts{Pending: 1, Approved: 1, Rejected: 1}, counts)

	pending := models.AccountRequestPending
	list, err := f.svc.List(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c@school.edu", list[0].Email)

	all, err := f.svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, f.svc.Delete(ctx, adminActor, b.ID))
	assert.Equal(t, models.AuditDelete, f.audit.actions()[2])

	err = f.svc.Delete(ctx, adminActor, b.ID)
	requireAppError(t, err, http.StatusNotFound, utils.ErrCodeNotFound)
}
