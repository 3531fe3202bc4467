package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	PropertyCreated             EventType = "PropertyCreated"
	PropertyUpdated             EventType = "PropertyUpdated"
	PropertyDeleted             EventType = "PropertyDeleted"
	OverduePropertyNotification EventType = "OverduePropertyNotification"
	AccountRequestCreated       EventType = "AccountRequestCreated"
	AccountRequestStatusChanged EventType = "AccountRequestStatusChanged"
)

// Event is the websocket frame pushed to clients.
type Event struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	SentAt    time.Time `json:"sent_at"`
	AdminOnly bool      `json:"-"`
}

// Publisher fans events out to connected clients. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// NopPublisher drops everything.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

/* ---------- payloads ---------- */

type PropertyChangedPayload struct {
	ID           uuid.UUID `json:"id"`
	PropertyCode string    `json:"property_code"`
	PropertyName string    `json:"property_name"`
	Action       string    `json:"action"`
	Status       string    `json:"status,omitempty"`
	BorrowerName *string   `json:"borrower_name,omitempty"`
	Count        int       `json:"count,omitempty"`
	Actor        string    `json:"actor,omitempty"`
}

type OverduePayload struct {
	PropertyID   uuid.UUID `json:"property_id"`
	PropertyCode string    `json:"property_code"`
	PropertyName string    `json:"property_name"`
	TagNumber    string    `json:"tag_number"`
	BorrowerName string    `json:"borrower_name"`
	ReturnDueAt  time.Time `json:"return_due_at"`
	DaysOverdue  int       `json:"days_overdue"`
	Message      string    `json:"message"`
}

type AccountRequestPayload struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Status   string    `json:"status"`
}
