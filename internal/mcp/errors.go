package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/domain/ticket"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	var parkingErr *parking.ValidationError
	var rateErr *rate.ValidationError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &parkingErr):
		return &APIError{Code: "VALIDATION_ERROR", Message: parkingErr.Error(), Details: map[string]string{"field": parkingErr.Field}, RecoveryHint: "Fix the named field"}
	case errors.As(err, &rateErr):
		return &APIError{Code: "VALIDATION_ERROR", Message: rateErr.Error(), Details: map[string]string{"field": rateErr.Field}, RecoveryHint: "Fix the named field"}
	case errors.Is(err, parking.ErrInvalidInput), errors.Is(err, rate.ErrInvalidInput), errors.Is(err, report.ErrInvalidInput):
		return &APIError{Code: "VALIDATION_ERROR", Message: err.Error(), RecoveryHint: "Check argument formats"}
	case errors.Is(err, parking.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "parking session not found or already completed", RecoveryHint: "Check the QR token or list active sessions"}
	case errors.Is(err, rate.ErrRateNotFound):
		return &APIError{Code: "RATE_NOT_FOUND", Message: "parking rate not found", RecoveryHint: "Call list_rates"}
	case errors.Is(err, parking.ErrRateNotConfigured):
		return &APIError{Code: "RATE_NOT_CONFIGURED", Message: "no rate configured for this vehicle type", RecoveryHint: "Ask an admin to call update_rate"}
	case errors.Is(err, parking.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: "invalid session status transition", RecoveryHint: "Only active sessions can change status"}
	case errors.Is(err, ticket.ErrSequenceExhausted):
		return &APIError{Code: "SEQUENCE_EXHAUSTED", Message: "daily ticket sequence exhausted", RecoveryHint: "Tickets resume at midnight"}
	case errors.Is(err, ticket.ErrGeneration):
		return &APIError{Code: "GENERATION_ERROR", Message: "could not allocate a ticket", RecoveryHint: "Retry the check-in"}
	case errors.Is(err, parking.ErrAggregationFailed):
		return &APIError{Code: "AGGREGATION_FAILED", Message: "checkout rolled back", RecoveryHint: "Retry the check-out"}
	default:
		return nil
	}
}

// toolError converts err to the error a tool handler returns.
func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
