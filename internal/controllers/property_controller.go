package controllers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/services"
	"github.com/poofware/inventory-service/internal/utils"
)

type PropertyController struct {
	inventoryService services.InventoryService
	validate         *validator.Validate
}

func NewPropertyController(s services.InventoryService) *PropertyController {
	return &PropertyController{
		inventoryService: s,
		validate:         validator.New(),
	}
}

func parseUnitFilter(r *http.Request) (repositories.UnitFilter, error) {
	q := r.URL.Query()
	f := repositories.UnitFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		st, err := models.ParsePropertyStatus(raw)
		if err != nil {
			return f, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeValidation, Message: "Unknown status filter", Err: err}
		}
		f.Status = st
	}
	return f, nil
}

// GET /api/v1/inventory/properties
func (c *PropertyController) ListGroupedHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseUnitFilter(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	rows, err := c.inventoryService.ListGrouped(r.Context(), f)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

// GET /api/v1/inventory/properties/units
func (c *PropertyController) ListUnitsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := parseUnitFilter(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	units, err := c.inventoryService.ListUnits(r.Context(), f)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, units)
}

// GET /api/v1/inventory/properties/categories
func (c *PropertyController) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	cats, err := c.inventoryService.ListCategories(r.Context())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.CategoriesResponse{Categories: cats})
}

// GET /api/v1/inventory/properties/borrowed
func (c *PropertyController) ListBorrowedHandler(w http.ResponseWriter, r *http.Request) {
	units, err := c.inventoryService.ListBorrowed(r.Context())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, units)
}

// GET /api/v1/inventory/properties/overdue
func (c *PropertyController) ListOverdueHandler(w http.ResponseWriter, r *http.Request) {
	units, err := c.inventoryService.ListOverdue(r.Context())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, units)
}

// GET /api/v1/inventory/properties/history?email=
func (c *PropertyController) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	units, err := c.inventoryService.ListHistory(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, units)
}

// GET /api/v1/inventory/properties/{id}
func (c *PropertyController) GetDetailHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	detail, err := c.inventoryService.GetDetail(r.Context(), id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, detail)
}

// GET /api/v1/inventory/properties/code/{code}
func (c *PropertyController) GetByCodeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := c.inventoryService.GetByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}

// POST /api/v1/inventory/properties
func (c *PropertyController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	logger := utils.Logger.WithField("handler", "CreateHandler")

	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.CreatePropertyRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	resp, err := c.inventoryService.Create(r.Context(), actor, req)
	if err != nil {
		logger.WithError(err).Warn("Create failed")
		utils.HandleAppError(w, err)
		return
	}
	logger.WithField("count", resp.Count).Info("Properties created")
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// PUT /api/v1/inventory/properties/{id}
func (c *PropertyController) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.UpdatePropertyRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	resp, err := c.inventoryService.Update(r.Context(), actor, id, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// POST /api/v1/inventory/properties/{id}/borrow
func (c *PropertyController) BorrowHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.BorrowRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	u, err := c.inventoryService.Borrow(r.Context(), actor, id, req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}

// POST /api/v1/inventory/properties/{id}/return
func (c *PropertyController) ReturnHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}

	u, err := c.inventoryService.Return(r.Context(), actor, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}

// DELETE /api/v1/inventory/properties/{id}
func (c *PropertyController) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	if err := c.inventoryService.Delete(r.Context(), actor, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/inventory/properties/bulk-delete
func (c *PropertyController) BulkDeleteHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	var req dtos.BulkDeleteRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	n, err := c.inventoryService.BulkDelete(r.Context(), actor, req.IDs)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.BulkDeleteResponse{Deleted: n})
}
