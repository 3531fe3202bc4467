package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/utils"
)

// MaxBaseNumber scans every PROP code and returns the highest base number
// seen, or 0. Malformed codes are logged and skipped.
func MaxBaseNumber(units []*models.InventoryUnit) int {
	max := 0
	for _, u := range units {
		if u == nil {
			continue
		}
		n, ok, err := ParseBaseNumber(u.PropertyCode)
		if err != nil {
			utils.Logger.WithError(err).Warn("Skipping malformed property code")
			continue
		}
		if ok && n > max {
			max = n
		}
	}
	return max
}

// NextBasePropertyCode returns the next unused "PROP-###" base.
func NextBasePropertyCode(units []*models.InventoryUnit) string {
	return FormatBaseCode(MaxBaseNumber(units) + 1)
}

// NextTagSuffix returns max(final numeric token of every tag) + 1, or 1.
func NextTagSuffix(family []*models.InventoryUnit) int {
	max := 0
	for _, u := range family {
		if u == nil || strings.TrimSpace(u.TagNumber) == "" {
			continue
		}
		_, n, err := SplitNumericSuffix(u.TagNumber)
		if err != nil {
			utils.Logger.WithError(err).Warn("Skipping malformed tag number")
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// NextCodeSuffix applies the NextTagSuffix rule to property codes that carry
// a suffix segment. Bare base codes do not count.
func NextCodeSuffix(family []*models.InventoryUnit) int {
	max := 0
	for _, u := range family {
		if u == nil {
			continue
		}
		code := strings.TrimSpace(u.PropertyCode)
		if strings.Count(code, separator) < 2 {
			continue
		}
		_, n, err := SplitNumericSuffix(code)
		if err != nil {
			utils.Logger.WithError(err).Warn("Skipping malformed property code suffix")
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// UnitTemplate holds the descriptive fields copied onto every minted unit.
type UnitTemplate struct {
	PropertyName string
	Category     string
	Location     string
	Description  *string
	Remarks      *string
	ImageURL     *string
	SerialNumber string
	Status       models.PropertyStatus
	DateReceived *time.Time
	UpdatedBy    string
}

// TemplateFromUnit copies a unit's descriptive fields, used when growing an
// existing family. New units always start Available.
func TemplateFromUnit(u *models.InventoryUnit) UnitTemplate {
	c := u.Clone()
	return UnitTemplate{
		PropertyName: c.PropertyName,
		Category:     c.Category,
		Location:     c.Location,
		Description:  c.Description,
		Remarks:      c.Remarks,
		ImageURL:     c.ImageURL,
		Status:       models.StatusAvailable,
		DateReceived: c.DateReceived,
	}
}

func (t UnitTemplate) validate() error {
	if strings.TrimSpace(t.PropertyName) == "" {
		return validationErr("property_name", "is required")
	}
	if strings.TrimSpace(t.Category) == "" {
		return validationErr("category", "is required")
	}
	if strings.TrimSpace(t.Location) == "" {
		return validationErr("location", "is required")
	}
	if t.Status != "" && !t.Status.Valid() {
		return validationErr("status", "unknown status "+string(t.Status))
	}
	if t.Status == models.StatusInUse {
		return validationErr("status", "new units cannot start InUse, borrow them after creation")
	}
	return nil
}

// BatchRequest describes one allocation. Family is the unit set the new
// units join; leave it empty to start a new family at FreshBase. Existing is
// the full scan: numbering also skips past units outside Family that sit
// under the same base code or carry the same tag prefix.
type BatchRequest struct {
	Template  UnitTemplate
	Quantity  int
	Family    []*models.InventoryUnit
	Existing  []*models.InventoryUnit
	FreshBase string
	Now       time.Time
}

// AllocateBatch mints Quantity units of quantity 1 with consecutive code and
// tag suffixes. It does not persist anything.
func AllocateBatch(req BatchRequest) ([]*models.InventoryUnit, error) {
	if req.Quantity < 1 {
		return nil, validationErr("quantity", "must be at least 1")
	}
	if err := req.Template.validate(); err != nil {
		return nil, err
	}

	familyExists := len(req.Family) > 0
	base := strings.TrimSpace(req.FreshBase)
	if familyExists {
		base = BaseCode(req.Family[0].PropertyCode)
	}
	if base == "" {
		return nil, validationErr("property_code", "no base code available")
	}

	tagPrefix := StripNumericSuffix(req.Template.SerialNumber)
	if tagPrefix == "" {
		tagPrefix = DefaultTagPrefix(base)
	}

	nextCode := NextCodeSuffix(append(ResolveFamily(CodeKey(base), req.Existing), req.Family...))
	nextTag := NextTagSuffix(append(sharingTagPrefix(tagPrefix, req.Existing), req.Family...))
	suffixed := familyExists || req.Quantity > 1

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	status := req.Template.Status
	if status == "" {
		status = models.StatusAvailable
	}

	t := req.Template
	units := make([]*models.InventoryUnit, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		code := base
		if suffixed {
			code = JoinSuffix(base, nextCode+i)
		}
		units = append(units, &models.InventoryUnit{
			ID:           uuid.New(),
			PropertyCode: code,
			TagNumber:    JoinSuffix(tagPrefix, nextTag+i),
			ImageURL:     utils.TrimPtr(t.ImageURL),
			PropertyName: strings.TrimSpace(t.PropertyName),
			Category:     strings.TrimSpace(t.Category),
			Location:     strings.TrimSpace(t.Location),
			Description:  utils.TrimPtr(t.Description),
			Remarks:      utils.TrimPtr(t.Remarks),
			Status:       status,
			Quantity:     1,
			DateReceived: t.DateReceived,
			UpdatedBy:    t.UpdatedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return units, nil
}

// sharingTagPrefix returns the units whose tag is prefix plus a final token.
func sharingTagPrefix(prefix string, units []*models.InventoryUnit) []*models.InventoryUnit {
	var out []*models.InventoryUnit
	for _, u := range units {
		if u == nil {
			continue
		}
		p, _, err := SplitNumericSuffix(u.TagNumber)
		if err == nil && p == prefix {
			out = append(out, u)
		}
	}
	return out
}

// FindCollisions lists minted codes or tags already present in existing.
// Comparison is exact on trimmed values; empty tags never collide.
func FindCollisions(minted, existing []*models.InventoryUnit) []string {
	codes := make(map[string]struct{}, len(existing))
	tags := make(map[string]struct{}, len(existing))
	for _, u := range existing {
		codes[strings.TrimSpace(u.PropertyCode)] = struct{}{}
		if tag := strings.TrimSpace(u.TagNumber); tag != "" {
			tags[tag] = struct{}{}
		}
	}

	var hits []string
	for _, u := range minted {
		if _, ok := codes[u.PropertyCode]; ok {
			hits = append(hits, u.PropertyCode)
		}
		if _, ok := tags[u.TagNumber]; ok && u.TagNumber != "" {
			hits = append(hits, u.TagNumber)
		}
	}
	return hits
}
