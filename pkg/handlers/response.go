package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mealvita-inc/mealvita-engine/pkg/apperrors"
	"github.com/mealvita-inc/mealvita-engine/pkg/logging"
)

// ApiResponse is the standard envelope for API responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ScopeMiddleware wraps a handler with a per-request database scope. See
// database.WithRequestScope.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// handleServiceError maps service-layer errors onto HTTP status codes and
// writes the error response. Insufficient-recipe failures deliberately hide
// pool counts from the caller.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var insufficient *apperrors.InsufficientRecipesError

	switch {
	case errors.Is(err, apperrors.ErrPatientNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Patient not found")
	case errors.Is(err, apperrors.ErrPlanNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Meal plan not found")
	case errors.Is(err, apperrors.ErrInvitationNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Invitation not found or expired")
	case errors.Is(err, apperrors.ErrAccessDenied):
		_ = ErrorResponse(w, http.StatusForbidden, "forbidden", "Access denied")
	case errors.Is(err, apperrors.ErrConflict):
		_ = ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.As(err, &insufficient):
		_ = ErrorResponse(w, http.StatusUnprocessableEntity, "insufficient_recipes",
			"Plan generation is temporarily unavailable for this patient's restrictions")
	default:
		// Unexpected errors can carry connection strings or patient PII
		// (pgx wraps the DSN, validation errors echo input).
		logger.Error("Unhandled service error", zap.String("error", logging.SanitizeError(err)))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
