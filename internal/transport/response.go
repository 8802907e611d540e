package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/domain/ticket"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

type transactionResponse struct {
	Message     string `json:"message,omitempty"`
	Transaction any    `json:"transaction"`
}

// fieldError rejects a malformed path or query parameter.
type fieldError struct {
	Field  string
	Reason string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

// decodeJSON reads a request body. Values of the wrong JSON type are reported
// as field errors, anything else unreadable as malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message: fmt.Sprintf("invalid %s: unexpected %s", typeErr.Field, typeErr.Value),
			Code:    "VALIDATION_ERROR",
			Field:   typeErr.Field,
		})
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: "malformed request body", Code: "BAD_REQUEST"})
	return false
}

// writeError maps a domain error to its HTTP status.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var parkingErr *parking.ValidationError
	var rateErr *rate.ValidationError
	var paramErr *fieldError

	switch {
	case errors.As(err, &paramErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: paramErr.Error(), Code: "VALIDATION_ERROR", Field: paramErr.Field})
	case errors.As(err, &parkingErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: parkingErr.Error(), Code: "VALIDATION_ERROR", Field: parkingErr.Field})
	case errors.As(err, &rateErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: rateErr.Error(), Code: "VALIDATION_ERROR", Field: rateErr.Field})
	case errors.Is(err, parking.ErrInvalidInput), errors.Is(err, rate.ErrInvalidInput),
		errors.Is(err, report.ErrInvalidInput), errors.Is(err, operator.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: err.Error(), Code: "VALIDATION_ERROR"})
	case errors.Is(err, parking.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: parking.ErrSessionNotFound.Error(), Code: "SESSION_NOT_FOUND"})
	case errors.Is(err, rate.ErrRateNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: rate.ErrRateNotFound.Error(), Code: "RATE_NOT_FOUND"})
	case errors.Is(err, parking.ErrRateNotConfigured):
		writeJSON(w, http.StatusConflict, errorResponse{Message: err.Error(), Code: "RATE_NOT_CONFIGURED"})
	case errors.Is(err, parking.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Message: err.Error(), Code: "INVALID_TRANSITION"})
	case errors.Is(err, ticket.ErrGeneration):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: err.Error(), Code: "GENERATION_ERROR"})
	case errors.Is(err, operator.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
	case errors.Is(err, parking.ErrAggregationFailed):
		logger.Error("checkout rolled back", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: parking.ErrAggregationFailed.Error(), Code: "AGGREGATION_FAILED"})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}
