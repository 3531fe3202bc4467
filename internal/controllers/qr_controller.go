package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/poofware/inventory-service/internal/services"
	"github.com/poofware/inventory-service/internal/utils"
)

type QRController struct {
	qrService services.QRCodeService
}

func NewQRController(s services.QRCodeService) *QRController {
	return &QRController{qrService: s}
}

// GET /api/v1/inventory/properties/{id}/qr?size=&download=1
func (c *QRController) UnitQRHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "size must be an integer", nil, err)
			return
		}
	}

	png, filename, err := c.qrService.UnitQRCode(r.Context(), id, size)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	disposition := "inline"
	if r.URL.Query().Get("download") == "1" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
