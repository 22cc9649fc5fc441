package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingTenant    = &AppError{http.StatusUnauthorized, "MISSING_TENANT", "X-Tenant-ID header required"}
	ErrInvalidTenant    = &AppError{http.StatusBadRequest, "INVALID_TENANT", "X-Tenant-ID header is malformed"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}
	ErrPersistence      = &AppError{http.StatusServiceUnavailable, "PERSISTENCE_ERROR", "Storage is unavailable, nothing was changed"}
	ErrInvalidCurrency  = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Invalid currency"}
	ErrInvalidAmount    = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidRate      = &AppError{http.StatusBadRequest, "INVALID_RATE", "Exchange rate missing or not positive"}
	ErrRateNotFound     = &AppError{http.StatusNotFound, "RATE_NOT_FOUND", "No reference rate for this currency pair"}
	ErrPolicyViolation  = &AppError{http.StatusUnprocessableEntity, "POLICY_VIOLATION", "Partial payments are not allowed for this transaction"}
	ErrPaymentTerminal  = &AppError{http.StatusConflict, "PAYMENT_TERMINAL", "Payment is already completed or failed"}
	ErrAlreadyReversed  = &AppError{http.StatusConflict, "ALREADY_REVERSED", "Payment has already been reversed"}
	ErrHasPayments      = &AppError{http.StatusConflict, "TRANSACTION_HAS_PAYMENTS", "Transaction has payments and cannot be deleted"}
	ErrCurrencyLocked   = &AppError{http.StatusConflict, "CURRENCY_LOCKED", "Receive currency cannot change while payments are pending or completed"}
	ErrVersionConflict  = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
	ErrIdempotencyInFlight   = &AppError{http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "A request with this idempotency key is still being processed"}
)
