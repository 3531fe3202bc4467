package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/poofware/inventory-service/internal/config"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/notifications"
	"github.com/poofware/inventory-service/internal/repositories"
)

var errUnique = &pgconn.PgError{Code: "23505", ConstraintName: "inventory_units_property_code_key"}

func testConfig() *config.Config {
	return &config.Config{
		OrganizationName:          "Inventory",
		AppUrl:                    "https://inventory.test",
		OTPLength:                 6,
		OTPExpiry:                 10 * time.Minute,
		MaxOTPAttempts:            3,
		TempPasswordLength:        8,
		TokenExpiry:               time.Hour,
		EmailLimitPerIPPerHour:    100,
		EmailLimitPerEmailPerHour: 100,
		GlobalEmailLimitPerHour:   100,
		LoginLimitPerIPPerHour:    100,
		LoginLimitPerEmailPerHour: 100,
		RateLimitWindow:           time.Hour,
		LDFlag_UseCodeSequence:    true,
	}
}

/* ---------- units ---------- */

type fakeUnitRepo struct {
	mu    sync.Mutex
	units []*models.InventoryUnit

	listAllErr     error
	createErrs     []error
	createCalls    int
	concurrentBump int
}

func (r *fakeUnitRepo) add(units ...*models.InventoryUnit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range units {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.RowVersion == 0 {
			u.RowVersion = 1
		}
		if u.Quantity == 0 {
			u.Quantity = 1
		}
		r.units = append(r.units, u.Clone())
	}
}

func (r *fakeUnitRepo) get(id uuid.UUID) *models.InventoryUnit {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units {
		if u.ID == id {
			return u.Clone()
		}
	}
	return nil
}

func (r *fakeUnitRepo) snapshot() []*models.InventoryUnit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.InventoryUnit, len(r.units))
	for i, u := range r.units {
		out[i] = u.Clone()
	}
	return out
}

func (r *fakeUnitRepo) CreateBatch(_ context.Context, units []*models.InventoryUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, n := range units {
		for _, u := range r.units {
			if u.PropertyCode == n.PropertyCode || (n.TagNumber != "" && u.TagNumber == n.TagNumber) {
				return errUnique
			}
		}
	}
	for _, n := range units {
		c := n.Clone()
		c.RowVersion = 1
		r.units = append(r.units, c)
	}
	return nil
}

func (r *fakeUnitRepo) GetByID(_ context.Context, id uuid.UUID) (*models.InventoryUnit, error) {
	return r.get(id), nil
}

func (r *fakeUnitRepo) GetByCode(_ context.Context, code string) (*models.InventoryUnit, error) {
	for _, u := range r.snapshot() {
		if u.PropertyCode == code {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUnitRepo) ListAll(context.Context) ([]*models.InventoryUnit, error) {
	if r.listAllErr != nil {
		return nil, r.listAllErr
	}
	units := r.snapshot()
	sort.SliceStable(units, func(i, j int) bool { return units[i].PropertyCode < units[j].PropertyCode })
	return units, nil
}

func (r *fakeUnitRepo) List(_ context.Context, f repositories.UnitFilter) ([]*models.InventoryUnit, error) {
	var out []*models.InventoryUnit
	for _, u := range r.snapshot() {
		if f.Category != "" && !strings.EqualFold(u.Category, f.Category) {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.PropertyName+" "+u.PropertyCode), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUnitRepo) ListBorrowed(context.Context) ([]*models.InventoryUnit, error) {
	var out []*models.InventoryUnit
	for _, u := range r.snapshot() {
		if u.IsBorrowed() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUnitRepo) ListOverdueUnnotified(_ context.Context, now time.Time) ([]*models.InventoryUnit, error) {
	var out []*models.InventoryUnit
	for _, u := range r.snapshot() {
		if u.IsOverdue(now) && !u.OverdueNotified {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUnitRepo) ListUpdatedBy(_ context.Context, email string) ([]*models.InventoryUnit, error) {
	var out []*models.InventoryUnit
	for _, u := range r.snapshot() {
		if strings.EqualFold(u.UpdatedBy, email) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUnitRepo) ListCategories(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, u := range r.snapshot() {
		if !seen[u.Category] {
			seen[u.Category] = true
			out = append(out, u.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeUnitRepo) CodeOrTagTaken(_ context.Context, code, tag string, exclude uuid.UUID) (bool, error) {
	for _, u := range r.snapshot() {
		if u.ID == exclude {
			continue
		}
		if u.PropertyCode == code || (tag != "" && u.TagNumber == tag) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUnitRepo) UpdateIfVersion(_ context.Context, u *models.InventoryUnit, expected int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.units {
		if cur.ID != u.ID {
			continue
		}
		if r.concurrentBump > 0 {
			r.concurrentBump--
			cur.RowVersion++
		}
		if cur.RowVersion != expected {
			return pgconn.CommandTag("UPDATE 0"), nil
		}
		c := u.Clone()
		c.RowVersion = expected + 1
		r.units[i] = c
		return pgconn.CommandTag("UPDATE 1"), nil
	}
	return pgconn.CommandTag("UPDATE 0"), nil
}

func (r *fakeUnitRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.InventoryUnit) error) error {
	get := func(ctx context.Context, id string) (*models.InventoryUnit, error) {
		return r.GetByID(ctx, uuid.MustParse(id))
	}
	return repositories.WithRetry(ctx, 3, id.String(), get, r.UpdateIfVersion, mutate)
}

func (r *fakeUnitRepo) MarkOverdueNotified(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units {
		if u.ID == id {
			u.OverdueNotified = true
			u.RowVersion++
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeUnitRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.units {
		if u.ID == id {
			r.units = append(r.units[:i], r.units[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeUnitRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range ids {
		if err := r.Delete(ctx, id); err == nil {
			n++
		}
	}
	return n, nil
}

/* ---------- code sequence ---------- */

type fakeSeqRepo struct {
	last int
	err  error
}

func (r *fakeSeqRepo) Next(_ context.Context, _ string, floor int) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if floor > r.last {
		r.last = floor
	}
	r.last++
	return r.last, nil
}

/* ---------- users ---------- */

type fakeUserRepo struct {
	mu    sync.Mutex
	users []*models.User
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if strings.EqualFold(x.Email, u.Email) {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	c := *u
	c.RowVersion = 1
	r.users = append(r.users, &c)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role models.UserRole) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		if u.Role == role {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateIfVersion(_ context.Context, u *models.User, expected int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.users {
		if cur.ID == u.ID && cur.RowVersion == expected {
			c := *u
			c.RowVersion = expected + 1
			r.users[i] = &c
			return pgconn.CommandTag("UPDATE 1"), nil
		}
	}
	return pgconn.CommandTag("UPDATE 0"), nil
}

func (r *fakeUserRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.User) error) error {
	get := func(ctx context.Context, id string) (*models.User, error) {
		return r.GetByID(ctx, uuid.MustParse(id))
	}
	return repositories.WithRetry(ctx, 3, id.String(), get, r.UpdateIfVersion, mutate)
}

/* ---------- account requests ---------- */

type fakeAccountRequestRepo struct {
	mu   sync.Mutex
	reqs []*models.AccountRequest
}

func (r *fakeAccountRequestRepo) Create(_ context.Context, req *models.AccountRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *req
	c.RowVersion = 1
	r.reqs = append(r.reqs, &c)
	return nil
}

func (r *fakeAccountRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*models.AccountRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.reqs {
		if x.ID == id {
			c := *x
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRequestRepo) GetPendingByEmail(_ context.Context, email string) (*models.AccountRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.reqs {
		if x.Email == email && x.Status == models.AccountRequestPending {
			c := *x
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRequestRepo) List(_ context.Context, status *models.AccountRequestStatus) ([]*models.AccountRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AccountRequest
	for _, x := range r.reqs {
		if status == nil || x.Status == *status {
			c := *x
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeAccountRequestRepo) Counts(context.Context) (models.AccountRequestCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c models.AccountRequestCounts
	for _, x := range r.reqs {
		switch x.Status {
		case models.AccountRequestPending:
			c.Pending++
		case models.AccountRequestApproved:
			c.Approved++
		case models.AccountRequestRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (r *fakeAccountRequestRepo) UpdateIfVersion(_ context.Context, req *models.AccountRequest, expected int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.reqs {
		if cur.ID == req.ID && cur.RowVersion == expected {
			c := *req
			c.RowVersion = expected + 1
			r.reqs[i] = &c
			return pgconn.CommandTag("UPDATE 1"), nil
		}
	}
	return pgconn.CommandTag("UPDATE 0"), nil
}

func (r *fakeAccountRequestRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.AccountRequest) error) error {
	get := func(ctx context.Context, id string) (*models.AccountRequest, error) {
		return r.GetByID(ctx, uuid.MustParse(id))
	}
	return repositories.WithRetry(ctx, 3, id.String(), get, r.UpdateIfVersion, mutate)
}

func (r *fakeAccountRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.reqs {
		if x.ID == id {
			r.reqs = append(r.reqs[:i], r.reqs[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

/* ---------- otp ---------- */

type fakeOtpRepo struct {
	mu   sync.Mutex
	otps []*models.OtpVerification
}

func (r *fakeOtpRepo) Create(_ context.Context, otp *models.OtpVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *otp
	r.otps = append(r.otps, &c)
	return nil
}

func (r *fakeOtpRepo) GetLatest(_ context.Context, email string) (*models.OtpVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.otps) - 1; i >= 0; i-- {
		if o := r.otps[i]; o.Email == email && !o.Used {
			c := *o
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeOtpRepo) find(id uuid.UUID) *models.OtpVerification {
	for _, o := range r.otps {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (r *fakeOtpRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o := r.find(id); o != nil {
		o.Attempts++
		return nil
	}
	return pgx.ErrNoRows
}

func (r *fakeOtpRepo) MarkUsed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o := r.find(id); o != nil {
		o.Used = true
		return nil
	}
	return pgx.ErrNoRows
}

func (r *fakeOtpRepo) DeleteByEmail(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.otps[:0]
	for _, o := range r.otps {
		if o.Email != email {
			kept = append(kept, o)
		}
	}
	r.otps = kept
	return nil
}

func (r *fakeOtpRepo) CleanupExpired(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	kept := r.otps[:0]
	var n int64
	for _, o := range r.otps {
		if o.ExpiresAt.Before(now) || o.Used {
			n++
			continue
		}
		kept = append(kept, o)
	}
	r.otps = kept
	return n, nil
}

/* ---------- rate limits ---------- */

type fakeRateLimitRepo struct {
	mu      sync.Mutex
	counts  map[string]int
	cleaned int
}

func (r *fakeRateLimitRepo) IncrementAndCheck(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[key]++
	return r.counts[key] <= limit, nil
}

func (r *fakeRateLimitRepo) CleanupExpired(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleaned++
	n := int64(len(r.counts))
	r.counts = nil
	return n, nil
}

/* ---------- audit ---------- */

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, e *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) ListByTarget(_ context.Context, targetID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].TargetID == targetID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditAction, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

/* ---------- mailer / publisher ---------- */

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, e)
	return nil
}

func (m *fakeMailer) templates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, e := range m.sent {
		out[i] = e.Template
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *fakePublisher) Publish(_ context.Context, ev notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakePublisher) types() []notifications.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var errBoom = errors.New("boom")
