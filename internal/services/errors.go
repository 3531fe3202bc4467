package services

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v4"
	"github.com/poofware/inventory-service/internal/inventory"
	"github.com/poofware/inventory-service/internal/repositories"
	"github.com/poofware/inventory-service/internal/utils"
)

// mapInventoryError translates domain, store and sentinel errors into the
// *utils.AppError the controllers render. An *utils.AppError passes through.
func mapInventoryError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var vErr *inventory.ValidationError
	var cErr *inventory.ConflictError
	var nErr *inventory.NotFoundError
	switch {
	case errors.As(err, &vErr):
		var details any
		if vErr.Field != "" {
			details = map[string]string{"field": vErr.Field}
		}
		return &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    vErr.Error(),
			Details:    details,
			Err:        err,
		}
	case errors.As(err, &cErr):
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeConflict,
			Message:    cErr.Message,
			Details:    map[string]bool{"retryable": cErr.Retryable},
			Err:        err,
		}
	case errors.As(err, &nErr):
		return &utils.AppError{
			StatusCode: http.StatusNotFound,
			Code:       utils.ErrCodeNotFound,
			Message:    nErr.Error(),
			Err:        err,
		}
	case errors.Is(err, pgx.ErrNoRows):
		return &utils.AppError{
			StatusCode: http.StatusNotFound,
			Code:       utils.ErrCodeNotFound,
			Message:    "Record not found",
			Err:        err,
		}
	case errors.Is(err, utils.ErrRowVersionConflict):
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeRowVersionConflict,
			Message:    "The record was modified by someone else; reload and try again",
			Err:        err,
		}
	case repositories.IsUniqueViolation(err):
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeConflict,
			Message:    "A record with the same unique value already exists",
			Details:    map[string]any{"retryable": true, "constraint": repositories.ConstraintName(err)},
			Err:        err,
		}
	case errors.Is(err, utils.ErrRateLimitExceeded):
		return &utils.AppError{
			StatusCode: http.StatusTooManyRequests,
			Code:       utils.ErrCodeRateLimitExceeded,
			Message:    "Too many requests; try again later",
			Err:        err,
		}
	case errors.Is(err, utils.ErrExternalServiceFailure):
		return &utils.AppError{
			StatusCode: http.StatusBadGateway,
			Code:       utils.ErrCodeExternalServiceFailure,
			Message:    "An upstream service failed",
			Err:        err,
		}
	case errors.Is(err, utils.ErrInvalidCredentials):
		return &utils.AppError{
			StatusCode: http.StatusUnauthorized,
			Code:       utils.ErrCodeInvalidCredentials,
			Message:    "Invalid email or password",
			Err:        err,
		}
	case errors.Is(err, utils.ErrEmailExists):
		return &utils.AppError{
			StatusCode: http.StatusConflict,
			Code:       utils.ErrCodeConflict,
			Message:    "An account with this email already exists",
			Err:        err,
		}
	case errors.Is(err, utils.ErrInvalidEmail):
		return &utils.AppError{
			StatusCode: http.StatusBadRequest,
			Code:       utils.ErrCodeValidation,
			Message:    "Invalid email address",
			Err:        err,
		}
	}
	return &utils.AppError{
		StatusCode: http.StatusInternalServerError,
		Code:       utils.ErrCodeInternal,
		Message:    "An unexpected error occurred",
		Err:        err,
	}
}
