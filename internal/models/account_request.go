package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AccountRequestStatus string

const (
	AccountRequestPending  AccountRequestStatus = "Pending"
	AccountRequestApproved AccountRequestStatus = "Approved"
	AccountRequestRejected AccountRequestStatus = "Rejected"
)

func ParseAccountRequestStatus(s string) (AccountRequestStatus, bool) {
	for _, st := range []AccountRequestStatus{AccountRequestPending, AccountRequestApproved, AccountRequestRejected} {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

type AccountRequest struct {
	Versioned
	ID              uuid.UUID            `json:"id"`
	Email           string               `json:"email"`
	FullName        string               `json:"full_name"`
	Position        *string              `json:"position,omitempty"`
	Status          AccountRequestStatus `json:"status"`
	RequestedAt     time.Time            `json:"requested_at"`
	ReviewedAt      *time.Time           `json:"reviewed_at,omitempty"`
	ReviewedBy      *string              `json:"reviewed_by,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
}

func (r *AccountRequest) GetID() string { return r.ID.String() }

// AccountRequestCounts is the per-status tally shown on the admin dashboard.
type AccountRequestCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}
