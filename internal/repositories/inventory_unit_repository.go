package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/poofware/inventory-service/internal/models"
)

/* ───────────── public interface ───────────── */

// UnitFilter narrows list queries. Zero values match everything.
type UnitFilter struct {
	Search   string
	Category string
	Status   models.PropertyStatus
}

type InventoryUnitRepository interface {
	CreateBatch(ctx context.Context, units []*models.InventoryUnit) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error)
	GetByCode(ctx context.Context, code string) (*models.InventoryUnit, error)
	ListAll(ctx context.Context) ([]*models.InventoryUnit, error)
	List(ctx context.Context, f UnitFilter) ([]*models.InventoryUnit, error)
	ListBorrowed(ctx context.Context) ([]*models.InventoryUnit, error)
	ListOverdueUnnotified(ctx context.Context, now time.Time) ([]*models.InventoryUnit, error)
	ListUpdatedBy(ctx context.Context, email string) ([]*models.InventoryUnit, error)
	ListCategories(ctx context.Context) ([]string, error)
	CodeOrTagTaken(ctx context.Context, code, tag string, exclude uuid.UUID) (bool, error)

	UpdateIfVersion(ctx context.Context, u *models.InventoryUnit, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.InventoryUnit) error) error
	MarkOverdueNotified(ctx context.Context, id uuid.UUID) error

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
}

/* ───────────── implementation ───────────── */

type inventoryUnitRepo struct {
	*BaseVersionedRepo[*models.InventoryUnit]
	db DB
}

func NewInventoryUnitRepository(db DB) InventoryUnitRepository {
	r := &inventoryUnitRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectUnit()+" WHERE id=$1", scanUnit)
	return r
}

/* ---------- create ---------- */

// CreateBatch inserts every unit in one transaction. A unique violation on
// any row rolls back the whole batch and is returned as-is.
func (r *inventoryUnitRepo) CreateBatch(ctx context.Context, units []*models.InventoryUnit) (err error) {
	if len(units) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	for _, u := range units {
		_, err = tx.Exec(ctx, `
			INSERT INTO inventory_units (
				id, property_code, tag_number, image_url, property_name, category,
				description, location, remarks, status, quantity, date_received,
				borrower_name, borrowed_at, return_due_at, overdue_notified,
				updated_by, created_at, updated_at, row_version
			) VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$18,1)
		`,
			u.ID, u.PropertyCode, u.TagNumber, u.ImageURL, u.PropertyName, u.Category,
			u.Description, u.Location, u.Remarks, u.Status, u.Quantity, u.DateReceived,
			u.BorrowerName, u.BorrowedAt, u.ReturnDueAt, u.OverdueNotified,
			u.UpdatedBy, u.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", u.PropertyCode, err)
		}
		u.RowVersion = 1
	}
	return nil
}

/* ---------- reads ---------- */

func (r *inventoryUnitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *inventoryUnitRepo) GetByCode(ctx context.Context, code string) (*models.InventoryUnit, error) {
	row := r.db.QueryRow(ctx, baseSelectUnit()+" WHERE property_code=$1", strings.TrimSpace(code))
	return scanUnit(row)
}

// ListAll returns every unit ordered by property code, the order family
// resolution relies on.
func (r *inventoryUnitRepo) ListAll(ctx context.Context) ([]*models.InventoryUnit, error) {
	return r.query(ctx, baseSelectUnit()+" ORDER BY property_code")
}

func (r *inventoryUnitRepo) List(ctx context.Context, f UnitFilter) ([]*models.InventoryUnit, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(property_name ILIKE $%[1]d OR property_code ILIKE $%[1]d OR tag_number ILIKE $%[1]d OR category ILIKE $%[1]d OR location ILIKE $%[1]d OR borrower_name ILIKE $%[1]d)", n))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		args = append(args, c)
		where = append(where, fmt.Sprintf("category=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	q := baseSelectUnit()
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return r.query(ctx, q+" ORDER BY property_code", args...)
}

func (r *inventoryUnitRepo) ListBorrowed(ctx context.Context) ([]*models.InventoryUnit, error) {
	return r.query(ctx, baseSelectUnit()+`
		WHERE status='InUse' AND COALESCE(TRIM(borrower_name),'') <> ''
		ORDER BY borrowed_at DESC NULLS LAST`)
}

func (r *inventoryUnitRepo) ListOverdueUnnotified(ctx context.Context, now time.Time) ([]*models.InventoryUnit, error) {
	return r.query(ctx, baseSelectUnit()+`
		WHERE status='InUse'
		  AND COALESCE(TRIM(borrower_name),'') <> ''
		  AND return_due_at IS NOT NULL
		  AND return_due_at < $1
		  AND overdue_notified = FALSE
		ORDER BY return_due_at`, now)
}

func (r *inventoryUnitRepo) ListUpdatedBy(ctx context.Context, email string) ([]*models.InventoryUnit, error) {
	return r.query(ctx, baseSelectUnit()+" WHERE LOWER(updated_by)=LOWER($1) ORDER BY updated_at DESC", email)
}

func (r *inventoryUnitRepo) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT category FROM inventory_units
		WHERE TRIM(category) <> ''
		ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CodeOrTagTaken reports whether another unit already uses code or tag.
func (r *inventoryUnitRepo) CodeOrTagTaken(ctx context.Context, code, tag string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_units
			WHERE id <> $3
			  AND (property_code = $1 OR ($2 <> '' AND tag_number = $2))
		)`, code, tag, exclude).Scan(&taken)
	return taken, err
}

/* ---------- update / delete ---------- */

func (r *inventoryUnitRepo) UpdateIfVersion(ctx context.Context, u *models.InventoryUnit, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
		UPDATE inventory_units
		SET property_code=$1, tag_number=NULLIF($2,''), image_url=$3, property_name=$4,
		    category=$5, description=$6, location=$7, remarks=$8, status=$9,
		    quantity=$10, date_received=$11, borrower_name=$12, borrowed_at=$13,
		    return_due_at=$14, overdue_notified=$15, updated_by=$16, updated_at=NOW(),
		    row_version=row_version+1
		WHERE id=$17 AND row_version=$18
	`,
		u.PropertyCode, u.TagNumber, u.ImageURL, u.PropertyName,
		u.Category, u.Description, u.Location, u.Remarks, u.Status,
		u.Quantity, u.DateReceived, u.BorrowerName, u.BorrowedAt,
		u.ReturnDueAt, u.OverdueNotified, u.UpdatedBy,
		u.ID, expected,
	)
}

func (r *inventoryUnitRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.InventoryUnit) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func (r *inventoryUnitRepo) MarkOverdueNotified(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_units
		SET overdue_notified=TRUE, row_version=row_version+1
		WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *inventoryUnitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM inventory_units WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteMany removes the given units in one transaction and reports how many
// existed. Unknown ids are skipped.
func (r *inventoryUnitRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) (deleted int64, err error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	for _, id := range ids {
		tag, execErr := tx.Exec(ctx, `DELETE FROM inventory_units WHERE id=$1`, id)
		if execErr != nil {
			return 0, execErr
		}
		deleted += tag.RowsAffected()
	}
	return deleted, nil
}

/* ---------- internals ---------- */

func baseSelectUnit() string {
	return `
		SELECT id, property_code, COALESCE(tag_number,''), image_url, property_name,
		       category, description, location, remarks, status, quantity,
		       date_received, borrower_name, borrowed_at, return_due_at,
		       overdue_notified, updated_by, created_at, updated_at, row_version
		FROM inventory_units`
}

func (r *inventoryUnitRepo) query(ctx context.Context, sql string, args ...any) ([]*models.InventoryUnit, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.InventoryUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUnit(row pgx.Row) (*models.InventoryUnit, error) {
	var u models.InventoryUnit
	if err := row.Scan(
		&u.ID, &u.PropertyCode, &u.TagNumber, &u.ImageURL, &u.PropertyName,
		&u.Category, &u.Description, &u.Location, &u.Remarks, &u.Status, &u.Quantity,
		&u.DateReceived, &u.BorrowerName, &u.BorrowedAt, &u.ReturnDueAt,
		&u.OverdueNotified, &u.UpdatedBy, &u.CreatedAt, &u.UpdatedAt, &u.RowVersion,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
