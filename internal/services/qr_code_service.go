package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/inventory"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024
)

// QRCodeService renders the property code of a unit as a PNG. Scanning the
// image yields the bare code, which the mobile client looks up by code.
type QRCodeService interface {
	UnitQRCode(ctx context.Context, id uuid.UUID, size int) (png []byte, filename string, err error)
}

type qrCodeService struct {
	unitRepo repositories.InventoryUnitRepository
}

func NewQRCodeService(unitRepo repositories.InventoryUnitRepository) QRCodeService {
	return &qrCodeService{unitRepo: unitRepo}
}

func (s *qrCodeService) UnitQRCode(ctx context.Context, id uuid.UUID, size int) ([]byte, string, error) {
	u, err := s.unitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", mapInventoryError(err)
	}
	if u == nil {
		return nil, "", mapInventoryError(&inventory.NotFoundError{What: "property", Key: id.String()})
	}
	png, err := RenderQRCode(u.PropertyCode, size)
	if err != nil {
		return nil, "", err
	}
	return png, fmt.Sprintf("QRCode-%s.png", u.PropertyCode), nil
}

// RenderQRCode clamps size into [MinQRSize, MaxQRSize]; zero means DefaultQRSize.
func RenderQRCode(data string, size int) ([]byte, error) {
	if strings.TrimSpace(data) == "" {
		return nil, mapInventoryError(&inventory.ValidationError{Field: "property_code", Message: "is empty"})
	}
	switch {
	case size == 0:
		size = DefaultQRSize
	case size < MinQRSize:
		size = MinQRSize
	case size > MaxQRSize:
		size = MaxQRSize
	}
	return qrcode.Encode(data, qrcode.High, size)
}
