package settlement

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

type NetStatus string

const (
	NetStatusSettled    NetStatus = "settled"
	NetStatusReceivable NetStatus = "receivable"
	NetStatusPayable    NetStatus = "payable"
)

// Leg is one remittance in a netting run. Each rate converts the matching
// amount into the base currency.
type Leg struct {
	TransactionID uuid.UUID
	Direction     domain.RemittanceDirection
	SendAmount    decimal.Decimal
	SendRate      decimal.Decimal
	ReceiveAmount decimal.Decimal
	ReceiveRate   decimal.Decimal
	Fee           decimal.Decimal
	FeeRate       decimal.Decimal
}

type NetPosition struct {
	BaseCurrency domain.Currency
	Outgoing     decimal.Decimal
	Incoming     decimal.Decimal
	Net          decimal.Decimal
	FeeIncome    decimal.Decimal
	ProfitLoss   decimal.Decimal
	Status       NetStatus
	Legs         int
}

// Net offsets outgoing remittances against incoming ones in base. A
// positive Net means the counterparty owes us.
func (c *Calculator) Net(base domain.Currency, legs []Leg) (*NetPosition, error) {
	if !base.IsValid() {
		return nil, fmt.Errorf("Net: base %q: %w", base, domain.ErrInvalidCurrency)
	}
	if len(legs) == 0 {
		return nil, fmt.Errorf("Net: %w", domain.InvalidRequestf("no legs to net"))
	}

	pos := &NetPosition{
		BaseCurrency: base,
		Outgoing:     decimal.Zero,
		Incoming:     decimal.Zero,
		FeeIncome:    decimal.Zero,
		ProfitLoss:   decimal.Zero,
		Legs:         len(legs),
	}

	for i, l := range legs {
		if err := validateLeg(l); err != nil {
			return nil, fmt.Errorf("Net: leg %d: %w", i, err)
		}

		received := l.ReceiveAmount.Mul(l.ReceiveRate)
		sent := l.SendAmount.Mul(l.SendRate)
		fee := l.Fee.Mul(l.FeeRate)

		switch l.Direction {
		case domain.DirectionOutgoing:
			pos.Outgoing = pos.Outgoing.Add(received)
		case domain.DirectionIncoming:
			pos.Incoming = pos.Incoming.Add(received)
		}
		pos.FeeIncome = pos.FeeIncome.Add(fee)
		pos.ProfitLoss = pos.ProfitLoss.Add(sent.Add(fee).Sub(received))
	}

	pos.Net = pos.Incoming.Sub(pos.Outgoing)
	switch {
	case c.tolerances.IsWithinTolerance(pos.Net, base):
		pos.Status = NetStatusSettled
	case pos.Net.IsPositive():
		pos.Status = NetStatusReceivable
	default:
		pos.Status = NetStatusPayable
	}
	return pos, nil
}

func validateLeg(l Leg) error {
	if !l.Direction.IsValid() {
		return domain.InvalidRequestf("direction %q is not incoming or outgoing", l.Direction)
	}
	if !l.ReceiveAmount.IsPositive() || !l.SendAmount.IsPositive() || l.Fee.IsNegative() {
		return domain.ErrInvalidAmount
	}
	if !l.SendRate.IsPositive() || !l.ReceiveRate.IsPositive() {
		return domain.ErrInvalidRate
	}
	if !l.Fee.IsZero() && !l.FeeRate.IsPositive() {
		return domain.ErrInvalidRate
	}
	return nil
}
