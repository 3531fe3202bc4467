package controllers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/services"
	"github.com/poofware/inventory-service/internal/utils"
)

type AccountRequestController struct {
	requestService services.AccountRequestService
	validate       *validator.Validate
}

func NewAccountRequestController(s services.AccountRequestService) *AccountRequestController {
	return &AccountRequestController{requestService: s, validate: validator.New()}
}

// POST /api/v1/inventory/account-requests
func (c *AccountRequestController) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.CreateAccountRequestRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	created, err := c.requestService.Create(r.Context(), utils.ClientIP(r), req)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// GET /api/v1/inventory/account-requests?status=
func (c *AccountRequestController) ListHandler(w http.ResponseWriter, r *http.Request) {
	var status *models.AccountRequestStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		st, ok := models.ParseAccountRequestStatus(raw)
		if !ok {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Unknown status filter", nil)
			return
		}
		status = &st
	}
	reqs, err := c.requestService.List(r.Context(), status)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, reqs)
}

// GET /api/v1/inventory/account-requests/counts
func (c *AccountRequestController) CountsHandler(w http.ResponseWriter, r *http.Request) {
	counts, err := c.requestService.Counts(r.Context())
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, counts)
}

// POST /api/v1/inventory/account-requests/{id}/approve
func (c *AccountRequestController) ApproveHandler(w http.ResponseWriter, r *http.Request) {
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
	updated, err := c.requestService.Approve(r.Context(), actor, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// POST /api/v1/inventory/account-requests/{id}/reject
func (c *AccountRequestController) RejectHandler(w http.ResponseWriter, r *http.Request) {
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
	var req dtos.RejectAccountRequestRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}
	updated, err := c.requestService.Reject(r.Context(), actor, id, req.Reason)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DELETE /api/v1/inventory/account-requests/{id}
func (c *AccountRequestController) DeleteHandler(w http.ResponseWriter, r *http.Request) {
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
	if err := c.requestService.Delete(r.Context(), actor, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
