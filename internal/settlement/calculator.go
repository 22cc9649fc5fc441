package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

type toleranceTable interface {
	ToleranceFor(c domain.Currency) decimal.Decimal
	IsWithinTolerance(amount decimal.Decimal, c domain.Currency) bool
}

type Summary struct {
	TotalPaid         decimal.Decimal
	RemainingBalance  decimal.Decimal
	Tolerance         decimal.Decimal
	Status            domain.SettlementStatus
	CompletedPayments int
}

type Calculator struct {
	tolerances toleranceTable
}

func NewCalculator(tolerances toleranceTable) *Calculator {
	return &Calculator{tolerances: tolerances}
}

// Convert returns the payment amount expressed in the transaction's receive
// currency, using the rate stored on the payment.
func Convert(p domain.Payment) decimal.Decimal {
	return p.Amount.Mul(p.ExchangeRate)
}

// Summarize recomputes the settlement position from scratch. Only completed
// payments count. Tolerance is always resolved against the receive currency.
func (c *Calculator) Summarize(tx *domain.Transaction, payments []domain.Payment) Summary {
	total := decimal.Zero
	completed := 0
	for _, p := range payments {
		if p.Status != domain.PaymentStatusCompleted {
			continue
		}
		total = total.Add(Convert(p))
		completed++
	}

	remaining := tx.ReceiveAmount.Sub(total)
	return Summary{
		TotalPaid:         total,
		RemainingBalance:  remaining,
		Tolerance:         c.tolerances.ToleranceFor(tx.ReceiveCurrency),
		Status:            c.StatusFor(remaining, total, tx.ReceiveCurrency),
		CompletedPayments: completed,
	}
}

func (c *Calculator) StatusFor(remaining, totalPaid decimal.Decimal, settlementCurrency domain.Currency) domain.SettlementStatus {
	switch {
	case c.tolerances.IsWithinTolerance(remaining, settlementCurrency):
		return domain.SettlementStatusFullyPaid
	case remaining.LessThan(c.tolerances.ToleranceFor(settlementCurrency).Neg()):
		return domain.SettlementStatusOverpaid
	case totalPaid.IsPositive():
		return domain.SettlementStatusPartiallyPaid
	default:
		return domain.SettlementStatusOpen
	}
}

// Apply returns the summary that would result from completing incoming on
// top of history. When the transaction does not accept partial payments and
// the resulting balance is outside tolerance, it returns a
// *domain.PolicyViolationError and the summary should be discarded.
func (c *Calculator) Apply(tx *domain.Transaction, history []domain.Payment, incoming domain.Payment) (Summary, error) {
	incoming.Status = domain.PaymentStatusCompleted

	next := make([]domain.Payment, 0, len(history)+1)
	next = append(next, history...)
	next = append(next, incoming)

	s := c.Summarize(tx, next)
	if !tx.AllowPartialPayment && !c.tolerances.IsWithinTolerance(s.RemainingBalance, tx.ReceiveCurrency) {
		return s, &domain.PolicyViolationError{
			TransactionID:  tx.ID,
			Currency:       tx.ReceiveCurrency,
			WouldBeBalance: s.RemainingBalance,
			Tolerance:      s.Tolerance,
		}
	}
	return s, nil
}
