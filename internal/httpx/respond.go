package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeForbidden     = "FORBIDDEN"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeLoginRequired = "LOGIN_REQUIRED"
	CodeInternal      = "INTERNAL_ERROR"
)

func NewTraceID() string {
	return uuid.New().String()
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteErrorResponse(w http.ResponseWriter, traceID string, status int, code, message string, details []apperrors.ValidationDetail, logger *zap.Logger) {
	WriteJSON(w, status, dto.ErrorResponse{
		TraceID:   traceID,
		Error:     code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}, logger)
}

func WriteValidationError(w http.ResponseWriter, traceID, message string, logger *zap.Logger, details ...apperrors.ValidationDetail) {
	WriteErrorResponse(w, traceID, http.StatusBadRequest, CodeValidation, message, details, logger)
}

// WriteError maps a typed application error to its status code. Anything
// untyped is logged and reported as an internal error.
func WriteError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		WriteValidationError(w, traceID, ve.Message, logger, ve.Details...)
		return
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		WriteErrorResponse(w, traceID, http.StatusNotFound, CodeNotFound, err.Error(), nil, logger)
		return
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		WriteErrorResponse(w, traceID, http.StatusConflict, CodeConflict, err.Error(), nil, logger)
		return
	}
	if _, ok := apperrors.IsForbiddenError(err); ok {
		WriteErrorResponse(w, traceID, http.StatusForbidden, CodeForbidden, err.Error(), nil, logger)
		return
	}
	if _, ok := apperrors.IsUnauthorizedError(err); ok {
		WriteErrorResponse(w, traceID, http.StatusUnauthorized, CodeUnauthorized, err.Error(), nil, logger)
		return
	}

	logger.Error("unexpected error", zap.String("traceId", traceID), zap.Error(err))
	WriteErrorResponse(w, traceID, http.StatusInternalServerError, CodeInternal, "an unexpected error occurred", nil, logger)
}

// DecodeJSON reads the request body into dst, answering 400 on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, traceID string, dst interface{}, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid JSON body", zap.String("traceId", traceID), zap.Error(err))
		WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return false
	}
	return true
}
