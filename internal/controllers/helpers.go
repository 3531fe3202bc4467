package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/poofware/inventory-service/internal/dtos"
	"github.com/poofware/inventory-service/internal/middleware"
	"github.com/poofware/inventory-service/internal/models"
	"github.com/poofware/inventory-service/internal/services"
	"github.com/poofware/inventory-service/internal/utils"
)

// maxBodyBytes caps request bodies; image URLs are the largest field.
const maxBodyBytes = 1 << 20

// formatValidationErrors converts validator errors into per-field details.
func formatValidationErrors(errs validator.ValidationErrors) []dtos.ValidationErrorDetail {
	var details []dtos.ValidationErrorDetail
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("Field '%s' is required", err.Field())
		case "email":
			message = fmt.Sprintf("Field '%s' must be a valid email address", err.Field())
		case "min":
			message = fmt.Sprintf("Field '%s' must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("Field '%s' must not exceed %s", err.Field(), err.Param())
		case "gte", "lte":
			message = fmt.Sprintf("Field '%s' is out of range (%s %s)", err.Field(), err.Tag(), err.Param())
		case "len":
			message = fmt.Sprintf("Field '%s' must be exactly %s characters", err.Field(), err.Param())
		case "numeric":
			message = fmt.Sprintf("Field '%s' must contain only digits", err.Field())
		case "nefield":
			message = fmt.Sprintf("Field '%s' must differ from '%s'", err.Field(), err.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag", err.Field(), err.Tag())
		}
		details = append(details, dtos.ValidationErrorDetail{
			Field:   err.Field(),
			Message: message,
			Code:    "validation_" + err.Tag(),
		})
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return false
	}
	if err := v.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation failed", formatValidationErrors(validationErrs), err)
		} else {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error", nil, err)
		}
		return false
	}
	return true
}

// actorFromRequest rebuilds the caller identity AuthMiddleware put on the context.
func actorFromRequest(r *http.Request) (services.Actor, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return services.Actor{}, &utils.AppError{StatusCode: http.StatusUnauthorized, Code: utils.ErrCodeUnauthorized, Message: "Missing user in context"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return services.Actor{}, &utils.AppError{StatusCode: http.StatusUnauthorized, Code: utils.ErrCodeUnauthorized, Message: "Invalid user id in token", Err: err}
	}
	return services.Actor{
		ID:    id,
		Email: middleware.EmailFromContext(r.Context()),
		Role:  models.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeInvalidPayload, Message: "Invalid " + name, Err: err}
	}
	return id, nil
}
