package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInvalidCurrency        = errors.New("invalid currency")
	ErrInvalidRate            = errors.New("exchange rate must be greater than zero")
	ErrPolicyViolation        = errors.New("payment policy violation")
	ErrPersistence            = errors.New("persistence failure")
	ErrPaymentTerminal        = errors.New("payment already in terminal state")
	ErrAlreadyReversed        = errors.New("payment already reversed")
	ErrTransactionHasPayments = errors.New("transaction has payments")
	ErrCurrencyLocked         = errors.New("settlement currency cannot change while payments are pending or completed")
	ErrVersionConflict        = errors.New("optimistic lock conflict")
)

// InvalidRequestError carries a reason that is safe to show the caller. It
// matches ErrInvalidRequest under errors.Is.
type InvalidRequestError struct {
	Reason string
}

func InvalidRequestf(format string, args ...any) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

func (e *InvalidRequestError) Error() string { return "invalid request: " + e.Reason }

func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// PolicyViolationError is returned when a completed payment would leave a
// transaction that does not accept partial payments outside tolerance.
type PolicyViolationError struct {
	TransactionID  uuid.UUID
	Currency       Currency
	WouldBeBalance decimal.Decimal
	Tolerance      decimal.Decimal
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("partial payments not allowed: remaining balance would be %s %s (tolerance %s)",
		e.WouldBeBalance.String(), e.Currency, e.Tolerance.String())
}

func (e *PolicyViolationError) Unwrap() error { return ErrPolicyViolation }
