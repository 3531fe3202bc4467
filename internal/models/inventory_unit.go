package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InventoryUnit is one individually tracked physical item.
type InventoryUnit struct {
	Versioned
	ID              uuid.UUID      `json:"id"`
	PropertyCode    string         `json:"property_code"`
	TagNumber       string         `json:"tag_number"`
	ImageURL        *string        `json:"image_url,omitempty"`
	PropertyName    string         `json:"property_name"`
	Category        string         `json:"category"`
	Description     *string        `json:"description,omitempty"`
	Location        string         `json:"location"`
	Remarks         *string        `json:"remarks,omitempty"`
	Status          PropertyStatus `json:"status"`
	Quantity        int            `json:"quantity"`
	DateReceived    *time.Time     `json:"date_received,omitempty"`
	BorrowerName    *string        `json:"borrower_name,omitempty"`
	BorrowedAt      *time.Time     `json:"borrowed_at,omitempty"`
	ReturnDueAt     *time.Time     `json:"return_due_at,omitempty"`
	OverdueNotified bool           `json:"overdue_notified"`
	UpdatedBy       string         `json:"updated_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (u *InventoryUnit) GetID() string { return u.ID.String() }

// GroupingKey returns the trimmed image URL, or "" when the unit is ungrouped.
func (u *InventoryUnit) GroupingKey() string {
	if u.ImageURL == nil {
		return ""
	}
	return strings.TrimSpace(*u.ImageURL)
}

// IsBorrowed reports whether the unit is out with a named borrower.
func (u *InventoryUnit) IsBorrowed() bool {
	return u.Status == StatusInUse && u.BorrowerName != nil && strings.TrimSpace(*u.BorrowerName) != ""
}

// IsOverdue reports whether a borrowed unit is past its due date at now.
func (u *InventoryUnit) IsOverdue(now time.Time) bool {
	return u.IsBorrowed() && u.ReturnDueAt != nil && u.ReturnDueAt.Before(now)
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (u *InventoryUnit) Clone() *InventoryUnit {
	c := *u
	c.ImageURL = clonePtr(u.ImageURL)
	c.Description = clonePtr(u.Description)
	c.Remarks = clonePtr(u.Remarks)
	c.DateReceived = clonePtr(u.DateReceived)
	c.BorrowerName = clonePtr(u.BorrowerName)
	c.BorrowedAt = clonePtr(u.BorrowedAt)
	c.ReturnDueAt = clonePtr(u.ReturnDueAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
