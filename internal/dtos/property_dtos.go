package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/inventory"
	"github.com/poofware/inventory-service/internal/models"
)

// ----------------------
// Requests
// ----------------------

type CreatePropertyRequest struct {
	PropertyName string                `json:"property_name" validate:"required,min=1,max=200"`
	Category     string                `json:"category" validate:"required,min=1,max=100"`
	Location     string                `json:"location" validate:"required,min=1,max=200"`
	Description  *string               `json:"description,omitempty" validate:"omitempty,max=2000"`
	Remarks      *string               `json:"remarks,omitempty" validate:"omitempty,max=2000"`
	ImageURL     *string               `json:"image_url,omitempty" validate:"omitempty,max=1000"`
	SerialNumber string                `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	Status       models.PropertyStatus `json:"status,omitempty"`
	Quantity     int                   `json:"quantity" validate:"gte=0,lte=500"`
	DateReceived *time.Time            `json:"date_received,omitempty"`
}

// UpdatePropertyRequest is a partial edit. RowVersion, when non-zero, must
// match the stored row. Quantity only ever grows the family.
type UpdatePropertyRequest struct {
	PropertyCode *string                `json:"property_code,omitempty" validate:"omitempty,min=1,max=50"`
	TagNumber    *string                `json:"tag_number,omitempty" validate:"omitempty,max=100"`
	PropertyName *string                `json:"property_name,omitempty" validate:"omitempty,min=1,max=200"`
	Category     *string                `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Location     *string                `json:"location,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string                `json:"description,omitempty" validate:"omitempty,max=2000"`
	Remarks      *string                `json:"remarks,omitempty" validate:"omitempty,max=2000"`
	ImageURL     *string                `json:"image_url,omitempty" validate:"omitempty,max=1000"`
	DateReceived *time.Time             `json:"date_received,omitempty"`
	Status       *models.PropertyStatus `json:"status,omitempty"`
	BorrowerName *string                `json:"borrower_name,omitempty" validate:"omitempty,max=200"`
	ReturnDueAt  *time.Time             `json:"return_due_at,omitempty"`
	Quantity     *int                   `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=500"`
	RowVersion   int64                  `json:"row_version"`
}

type BorrowRequest struct {
	BorrowerName string     `json:"borrower_name" validate:"omitempty,max=200"`
	ReturnDueAt  *time.Time `json:"return_due_at,omitempty"`
}

type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

// ----------------------
// Responses
// ----------------------

type CreatePropertyResponse struct {
	Units []*models.InventoryUnit `json:"units"`
	Count int                     `json:"count"`
}

type UpdatePropertyResponse struct {
	Unit   *models.InventoryUnit   `json:"unit"`
	Action inventory.EditAction    `json:"action"`
	Added  []*models.InventoryUnit `json:"added,omitempty"`
}

type PropertyDetailResponse struct {
	Unit           *models.InventoryUnit   `json:"unit"`
	Representative *models.InventoryUnit   `json:"representative"`
	Breakdown      inventory.Breakdown     `json:"breakdown"`
	Family         []*models.InventoryUnit `json:"family"`
	History        []*models.AuditLog      `json:"history"`
}

type BulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}
