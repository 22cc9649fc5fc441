package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodHawala       PaymentMethod = "hawala"
	PaymentMethodCrypto       PaymentMethod = "crypto"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodHawala, PaymentMethodCrypto, PaymentMethodOther:
		return true
	}
	return false
}

// Payment is one receipt against a transaction. Amount is in Currency;
// ExchangeRate converts it into the transaction's receive currency.
// Reversals carry a negative Amount and point at the payment they undo.
type Payment struct {
	ID                uuid.UUID
	TransactionID     uuid.UUID
	Amount            decimal.Decimal
	Currency          Currency
	ExchangeRate      decimal.Decimal
	Method            PaymentMethod
	Status            PaymentStatus
	ReversesPaymentID *uuid.UUID
	Details           *string
	FailureReason     *string
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (p Payment) IsReversal() bool {
	return p.ReversesPaymentID != nil
}
