package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindExchange   TransactionKind = "exchange"
	TransactionKindRemittance TransactionKind = "remittance"
)

func (k TransactionKind) IsValid() bool {
	return k == TransactionKindExchange || k == TransactionKindRemittance
}

type RemittanceDirection string

const (
	DirectionOutgoing RemittanceDirection = "outgoing"
	DirectionIncoming RemittanceDirection = "incoming"
)

func (d RemittanceDirection) IsValid() bool {
	return d == DirectionOutgoing || d == DirectionIncoming
}

type SettlementStatus string

const (
	SettlementStatusOpen          SettlementStatus = "open"
	SettlementStatusPartiallyPaid SettlementStatus = "partially_paid"
	SettlementStatusFullyPaid     SettlementStatus = "fully_paid"
	SettlementStatusOverpaid      SettlementStatus = "overpaid"
)

func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusOpen, SettlementStatusPartiallyPaid, SettlementStatusFullyPaid, SettlementStatusOverpaid:
		return true
	}
	return false
}

func (s SettlementStatus) IsSettled() bool {
	return s == SettlementStatusFullyPaid || s == SettlementStatusOverpaid
}

// Terms are the commercial fields of a transaction. Edits snapshot them.
type Terms struct {
	SendCurrency        Currency
	SendAmount          decimal.Decimal
	ReceiveCurrency     Currency
	ReceiveAmount       decimal.Decimal
	RateApplied         decimal.Decimal
	FeeCharged          decimal.Decimal
	FeeCurrency         Currency
	Beneficiary         *string
	Notes               *string
	AllowPartialPayment bool
}

func (t Terms) Equal(o Terms) bool {
	return t.SendCurrency == o.SendCurrency &&
		t.SendAmount.Equal(o.SendAmount) &&
		t.ReceiveCurrency == o.ReceiveCurrency &&
		t.ReceiveAmount.Equal(o.ReceiveAmount) &&
		t.RateApplied.Equal(o.RateApplied) &&
		t.FeeCharged.Equal(o.FeeCharged) &&
		t.FeeCurrency == o.FeeCurrency &&
		equalStringPtr(t.Beneficiary, o.Beneficiary) &&
		equalStringPtr(t.Notes, o.Notes) &&
		t.AllowPartialPayment == o.AllowPartialPayment
}

// Clone returns a copy that shares no pointers with t.
func (t Terms) Clone() Terms {
	c := t
	if t.Beneficiary != nil {
		b := *t.Beneficiary
		c.Beneficiary = &b
	}
	if t.Notes != nil {
		n := *t.Notes
		c.Notes = &n
	}
	return c
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type Transaction struct {
	ID        uuid.UUID
	TenantID  string
	Kind      TransactionKind
	Direction *RemittanceDirection
	Terms

	PaymentStatus    SettlementStatus
	TotalPaid        decimal.Decimal
	RemainingBalance decimal.Decimal
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
