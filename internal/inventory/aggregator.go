package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/utils"
)

type KeyKind string

const (
	KeyImageURL     KeyKind = "image_url"
	KeyPropertyCode KeyKind = "property_code"
)

// FamilyKey selects a family either by shared image URL or by code prefix.
type FamilyKey struct {
	Kind  KeyKind `json:"kind"`
	Value string  `json:"value"`
}

func ImageKey(url string) FamilyKey {
	return FamilyKey{Kind: KeyImageURL, Value: strings.TrimSpace(url)}
}

func CodeKey(code string) FamilyKey {
	return FamilyKey{Kind: KeyPropertyCode, Value: strings.TrimSpace(code)}
}

// KeyFor picks the family key of an anchor unit. An image URL always wins;
// otherwise the family is everything under the unit's base code.
func KeyFor(u *models.InventoryUnit) FamilyKey {
	if k := u.GroupingKey(); k != "" {
		return ImageKey(k)
	}
	return CodeKey(BaseCode(u.PropertyCode))
}

// ResolveFamily returns the units matching key in store order. An empty key
// value matches nothing.
func ResolveFamily(key FamilyKey, units []*models.InventoryUnit) []*models.InventoryUnit {
	if key.Value == "" {
		return nil
	}
	var out []*models.InventoryUnit
	for _, u := range units {
		if u != nil && key.matches(u) {
			out = append(out, u)
		}
	}
	return out
}

func (k FamilyKey) matches(u *models.InventoryUnit) bool {
	switch k.Kind {
	case KeyImageURL:
		return strings.EqualFold(u.GroupingKey(), k.Value)
	case KeyPropertyCode:
		code := strings.TrimSpace(u.PropertyCode)
		return code == k.Value || strings.HasPrefix(code, k.Value+separator)
	}
	return false
}

// Breakdown counts a family's quantity per status.
type Breakdown struct {
	Total            int `json:"total"`
	Available        int `json:"available"`
	InUse            int `json:"in_use"`
	UnderMaintenance int `json:"under_maintenance"`
	Damaged          int `json:"damaged"`
}

func (b *Breakdown) add(u *models.InventoryUnit) {
	b.Total += u.Quantity
	switch u.Status {
	case models.StatusAvailable:
		b.Available += u.Quantity
	case models.StatusInUse:
		b.InUse += u.Quantity
	case models.StatusUnderMaintenance:
		b.UnderMaintenance += u.Quantity
	case models.StatusDamaged:
		b.Damaged += u.Quantity
	default:
		utils.Logger.WithField("property_code", u.PropertyCode).
			Warnf("Unit has unknown status %q, counted in total only", u.Status)
	}
}

// QuantityBreakdown sums quantity per status. An empty family gives zeros.
func QuantityBreakdown(family []*models.InventoryUnit) Breakdown {
	var b Breakdown
	for _, u := range family {
		if u != nil {
			b.add(u)
		}
	}
	return b
}

// FallbackBreakdown is the breakdown of one unit on its own, used when a
// family lookup comes back empty.
func FallbackBreakdown(u *models.InventoryUnit) Breakdown {
	return QuantityBreakdown([]*models.InventoryUnit{u})
}

// RepresentativeView collapses a family into one synthetic unit. The first
// unit is the template, quantity is the family total, UpdatedAt is the most
// recent edit and the borrowing fields come from the first InUse unit.
// It returns nil for an empty family.
func RepresentativeView(family []*models.InventoryUnit) *models.InventoryUnit {
	if len(family) == 0 || family[0] == nil {
		return nil
	}
	rep := family[0].Clone()
	rep.Quantity = QuantityBreakdown(family).Total
	rep.BorrowerName, rep.BorrowedAt, rep.ReturnDueAt = nil, nil, nil

	var latest time.Time
	borrowerSet := false
	for _, u := range family {
		if u == nil {
			continue
		}
		if u.UpdatedAt.After(latest) {
			latest = u.UpdatedAt
		}
		if !borrowerSet && u.Status == models.StatusInUse {
			c := u.Clone()
			rep.BorrowerName, rep.BorrowedAt, rep.ReturnDueAt = c.BorrowerName, c.BorrowedAt, c.ReturnDueAt
			borrowerSet = true
		}
	}
	rep.UpdatedAt = latest
	return rep
}

// FamilyView is one row of the grouped listing.
type FamilyView struct {
	Key            FamilyKey               `json:"key"`
	Grouped        bool                    `json:"grouped"`
	Representative *models.InventoryUnit   `json:"representative"`
	Breakdown      Breakdown               `json:"breakdown"`
	Units          []*models.InventoryUnit `json:"units"`
}

// Summarize builds a listing row. Grouped rows show the base code and the tag
// prefix on the representative instead of the first unit's suffixes.
func Summarize(key FamilyKey, family []*models.InventoryUnit) FamilyView {
	v := FamilyView{
		Key:            key,
		Grouped:        key.Kind == KeyImageURL,
		Representative: RepresentativeView(family),
		Breakdown:      QuantityBreakdown(family),
		Units:          family,
	}
	if v.Grouped && v.Representative != nil {
		v.Representative.PropertyCode = BaseCode(v.Representative.PropertyCode)
		v.Representative.TagNumber = StripNumericSuffix(v.Representative.TagNumber)
	}
	return v
}

// GroupAll returns one row per image URL family plus one row for every unit
// without an image, newest first.
func GroupAll(units []*models.InventoryUnit) []FamilyView {
	var (
		order    []string
		families = map[string][]*models.InventoryUnit{}
		views    []FamilyView
	)
	for _, u := range units {
		if u == nil {
			continue
		}
		k := strings.ToLower(u.GroupingKey())
		if k == "" {
			views = append(views, Summarize(CodeKey(u.PropertyCode), []*models.InventoryUnit{u}))
			continue
		}
		if _, seen := families[k]; !seen {
			order = append(order, k)
		}
		families[k] = append(families[k], u)
	}
	for _, k := range order {
		fam := families[k]
		views = append(views, Summarize(ImageKey(fam[0].GroupingKey()), fam))
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Representative.UpdatedAt.After(views[j].Representative.UpdatedAt)
	})
	return views
}
