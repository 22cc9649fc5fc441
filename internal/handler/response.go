package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type policyViolationDetails struct {
	TransactionID  string `json:"transaction_id"`
	Currency       string `json:"currency"`
	WouldBeBalance string `json:"would_be_balance"`
	Tolerance      string `json:"tolerance"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var pv *domain.PolicyViolationError
	if errors.As(err, &pv) {
		RespondAppError(w, ErrPolicyViolation, policyViolationDetails{
			TransactionID:  pv.TransactionID.String(),
			Currency:       string(pv.Currency),
			WouldBeBalance: pv.WouldBeBalance.String(),
			Tolerance:      pv.Tolerance.String(),
		})
		return
	}

	var ir *domain.InvalidRequestError
	if errors.As(err, &ir) {
		RespondAppError(w, &AppError{ErrInvalidRequest.Status, ErrInvalidRequest.Code, ir.Reason}, nil)
		return
	}

	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrPersistence):
		slog.Error("persistence failure", "error", err)
		appErr = ErrPersistence
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrPolicyViolation):
		appErr = ErrPolicyViolation
	case errors.Is(err, domain.ErrPaymentTerminal):
		appErr = ErrPaymentTerminal
	case errors.Is(err, domain.ErrAlreadyReversed):
		appErr = ErrAlreadyReversed
	case errors.Is(err, domain.ErrTransactionHasPayments):
		appErr = ErrHasPayments
	case errors.Is(err, domain.ErrCurrencyLocked):
		appErr = ErrCurrencyLocked
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrInvalidRate):
		appErr = ErrInvalidRate
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
