package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/utils"
)

// EditAction names what an edit did to a unit, for audit and push events.
type EditAction string

const (
	ActionUpdated          EditAction = "updated"
	ActionBorrowed         EditAction = "borrowed"
	ActionReturned         EditAction = "returned"
	ActionBorrowingUpdated EditAction = "borrowing_updated"
)

// Borrow moves an Available unit to InUse.
func Borrow(u *models.InventoryUnit, borrower string, returnDue *time.Time, now time.Time) error {
	borrower = strings.TrimSpace(borrower)
	if borrower == "" {
		return validationErr("borrower_name", "is required to borrow")
	}
	switch u.Status {
	case models.StatusAvailable:
	case models.StatusInUse:
		return &ConflictError{Message: fmt.Sprintf("%s is already borrowed", u.PropertyCode)}
	default:
		return validationErr("status", fmt.Sprintf("%s is %s and cannot be borrowed", u.PropertyCode, u.Status))
	}
	if returnDue != nil && returnDue.Before(now) {
		return validationErr("return_due_at", "must not be in the past")
	}
	u.Status = models.StatusInUse
	u.BorrowerName = &borrower
	u.BorrowedAt = utils.Ptr(now)
	u.ReturnDueAt = nil
	if returnDue != nil {
		u.ReturnDueAt = utils.Ptr(*returnDue)
	}
	u.OverdueNotified = false
	return nil
}

// Return moves an InUse unit back to Available.
func Return(u *models.InventoryUnit) error {
	if u.Status != models.StatusInUse {
		return validationErr("status", fmt.Sprintf("%s is not borrowed", u.PropertyCode))
	}
	u.Status = models.StatusAvailable
	clearBorrowing(u)
	return nil
}

func clearBorrowing(u *models.InventoryUnit) {
	u.BorrowerName = nil
	u.BorrowedAt = nil
	u.ReturnDueAt = nil
	u.OverdueNotified = false
}

// UnitEdit is a partial update; nil fields are left alone.
type UnitEdit struct {
	PropertyCode *string
	TagNumber    *string
	PropertyName *string
	Category     *string
	Location     *string
	Description  *string
	Remarks      *string
	ImageURL     *string
	DateReceived *time.Time
	Status       *models.PropertyStatus
	BorrowerName *string
	ReturnDueAt  *time.Time
	UpdatedBy    string
}

// ApplyEdit validates the edit against the status machine and applies it to u.
func ApplyEdit(u *models.InventoryUnit, e UnitEdit, now time.Time) (EditAction, error) {
	from := u.Status
	to := from
	if e.Status != nil {
		if !e.Status.Valid() {
			return "", validationErr("status", "unknown status "+string(*e.Status))
		}
		to = *e.Status
	}

	var borrower string
	if e.BorrowerName != nil {
		borrower = strings.TrimSpace(*e.BorrowerName)
	}

	var action EditAction
	switch {
	case u.IsBorrowed() && to == models.StatusInUse:
		if e.changesDescription(u) {
			return "", validationErr("status",
				fmt.Sprintf("%s is borrowed by %s, return it before editing", u.PropertyCode, *u.BorrowerName))
		}
		if e.BorrowerName != nil && borrower == "" {
			return "", validationErr("borrower_name", "is required while InUse")
		}
		action = ActionUpdated
		if borrower != "" && borrower != *u.BorrowerName {
			u.BorrowerName = &borrower
			action = ActionBorrowingUpdated
		}
		if e.ReturnDueAt != nil && !timeEqual(e.ReturnDueAt, u.ReturnDueAt) {
			u.ReturnDueAt = utils.Ptr(*e.ReturnDueAt)
			u.OverdueNotified = false
			action = ActionBorrowingUpdated
		}
		u.UpdatedBy = e.UpdatedBy
		u.UpdatedAt = now
		return action, nil

	case from == models.StatusInUse && to != models.StatusInUse:
		if borrower != "" {
			return "", validationErr("borrower_name", "only valid while InUse")
		}
		u.Status = to
		clearBorrowing(u)
		action = ActionReturned

	case to == models.StatusInUse || borrower != "":
		if to != models.StatusInUse && to != from {
			return "", validationErr("borrower_name", "only valid while InUse")
		}
		if err := e.applyDescription(u); err != nil {
			return "", err
		}
		if from == models.StatusInUse {
			// InUse without a borrower on record; the edit supplies one.
			if borrower == "" {
				return "", validationErr("borrower_name", "is required while InUse")
			}
			u.BorrowerName = &borrower
			u.BorrowedAt = utils.Ptr(now)
			if e.ReturnDueAt != nil {
				u.ReturnDueAt = utils.Ptr(*e.ReturnDueAt)
			}
			u.UpdatedBy = e.UpdatedBy
			u.UpdatedAt = now
			return ActionBorrowingUpdated, nil
		}
		if err := Borrow(u, borrower, e.ReturnDueAt, now); err != nil {
			return "", err
		}
		u.UpdatedBy = e.UpdatedBy
		u.UpdatedAt = now
		return ActionBorrowed, nil

	default:
		u.Status = to
		action = ActionUpdated
	}

	if err := e.applyDescription(u); err != nil {
		return "", err
	}
	u.UpdatedBy = e.UpdatedBy
	u.UpdatedAt = now
	return action, nil
}

func (e UnitEdit) changesDescription(u *models.InventoryUnit) bool {
	return strChanged(e.PropertyCode, u.PropertyCode) ||
		strChanged(e.TagNumber, u.TagNumber) ||
		strChanged(e.PropertyName, u.PropertyName) ||
		strChanged(e.Category, u.Category) ||
		strChanged(e.Location, u.Location) ||
		optChanged(e.Description, u.Description) ||
		optChanged(e.Remarks, u.Remarks) ||
		optChanged(e.ImageURL, u.ImageURL) ||
		(e.DateReceived != nil && !timeEqual(e.DateReceived, u.DateReceived))
}

func (e UnitEdit) applyDescription(u *models.InventoryUnit) error {
	required := []struct {
		field string
		val   *string
		dst   *string
	}{
		{"property_code", e.PropertyCode, &u.PropertyCode},
		{"property_name", e.PropertyName, &u.PropertyName},
		{"category", e.Category, &u.Category},
		{"location", e.Location, &u.Location},
	}
	for _, r := range required {
		if r.val == nil {
			continue
		}
		v := strings.TrimSpace(*r.val)
		if v == "" {
			return validationErr(r.field, "cannot be blank")
		}
		*r.dst = v
	}
	if e.TagNumber != nil {
		u.TagNumber = strings.TrimSpace(*e.TagNumber)
	}
	if e.Description != nil {
		u.Description = utils.TrimPtr(e.Description)
	}
	if e.Remarks != nil {
		u.Remarks = utils.TrimPtr(e.Remarks)
	}
	if e.ImageURL != nil {
		u.ImageURL = utils.TrimPtr(e.ImageURL)
	}
	if e.DateReceived != nil {
		u.DateReceived = utils.Ptr(*e.DateReceived)
	}
	return nil
}

func strChanged(p *string, cur string) bool {
	return p != nil && strings.TrimSpace(*p) != cur
}

func optChanged(p, cur *string) bool {
	if p == nil {
		return false
	}
	next := utils.TrimPtr(p)
	if next == nil || cur == nil {
		return (next == nil) != (cur == nil)
	}
	return *next != *cur
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
