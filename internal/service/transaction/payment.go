package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
)

type RecordPaymentRequest struct {
	TenantID      string
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	Currency      domain.Currency
	// ExchangeRate converts Currency into the transaction's receive
	// currency. When nil it is taken from the reference rate book.
	ExchangeRate *decimal.Decimal
	Method       domain.PaymentMethod
	Status       domain.PaymentStatus
	Details      *string
	PaidAt       *time.Time
	RecordedBy   string
}

func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*View, *domain.Payment, error) {
	log := logging.FromContext(ctx)

	if err := validatePayment(&req); err != nil {
		return nil, nil, fmt.Errorf("RecordPayment: %w", err)
	}

	var (
		view    *View
		payment *domain.Payment
	)
	err := s.withLockedTransaction(ctx, req.TenantID, req.TransactionID, func(tx *sql.Tx, t *domain.Transaction) error {
		rate, err := s.resolveRate(ctx, req.Currency, t.ReceiveCurrency, req.ExchangeRate)
		if err != nil {
			return err
		}

		now := s.now()
		p := &domain.Payment{
			ID:            uuid.New(),
			TransactionID: t.ID,
			Amount:        req.Amount,
			Currency:      req.Currency,
			ExchangeRate:  rate,
			Method:        req.Method,
			Status:        req.Status,
			Details:       req.Details,
			PaidAt:        req.PaidAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if p.Status == domain.PaymentStatusCompleted && p.PaidAt == nil {
			p.PaidAt = &now
		}

		history, err := s.payments.ListByTransactionTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}

		summary := s.calc.Summarize(t, history)
		if p.Status == domain.PaymentStatusCompleted {
			summary, err = s.calc.Apply(t, history, *p)
			if err != nil {
				return err
			}
		}

		if err := s.payments.Create(ctx, tx, p); err != nil {
			return err
		}

		before := t.PaymentStatus
		if err := s.applySummary(ctx, tx, t, summary); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, t, domain.EventPaymentRecorded, eventOpts{paymentID: &p.ID, actor: req.RecordedBy}); err != nil {
			return err
		}
		if err := s.emitSettledIfEntered(ctx, tx, t, before); err != nil {
			return err
		}

		payment = p
		view = &View{Transaction: t, Payments: append(history, *p), Summary: summary}
		return nil
	})
	if err != nil {
		var pv *domain.PolicyViolationError
		if errors.As(err, &pv) {
			log.Warn("payment rejected by partial payment policy",
				"transaction_id", req.TransactionID,
				"would_be_balance", pv.WouldBeBalance,
				"currency", pv.Currency,
			)
		}
		return nil, nil, fmt.Errorf("RecordPayment: %w", err)
	}

	log.Info("payment recorded",
		"transaction_id", view.Transaction.ID,
		"payment_id", payment.ID,
		"amount", payment.Amount,
		"currency", payment.Currency,
		"exchange_rate", payment.ExchangeRate,
		"payment_status", view.Transaction.PaymentStatus,
		"remaining_balance", view.Transaction.RemainingBalance,
	)
	return view, payment, nil
}

// resolveRate picks the rate stored on a new payment. The stored rate is what
// later recomputations use, so reference rates changing afterwards never move
// an old balance.
func (s *Service) resolveRate(ctx context.Context, from, to domain.Currency, given *decimal.Decimal) (decimal.Decimal, error) {
	if given != nil {
		return *given, nil
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if s.rates == nil {
		return decimal.Decimal{}, fmt.Errorf("resolveRate: exchange rate required for %s/%s: %w", from, to, domain.ErrInvalidRate)
	}

	quote, err := s.rates.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("resolveRate: no reference rate for %s/%s (%v): %w", from, to, err, domain.ErrInvalidRate)
	}
	return quote.Rate, nil
}

func (s *Service) CompletePayment(ctx context.Context, tenantID string, transactionID, paymentID uuid.UUID) (*View, error) {
	log := logging.FromContext(ctx)

	var view *View
	err := s.withLockedTransaction(ctx, tenantID, transactionID, func(tx *sql.Tx, t *domain.Transaction) error {
		p, err := s.payments.GetForUpdate(ctx, tx, t.ID, paymentID)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			return fmt.Errorf("payment is %s: %w", p.Status, domain.ErrPaymentTerminal)
		}

		history, err := s.payments.ListByTransactionTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}

		summary, err := s.calc.Apply(t, history, *p)
		if err != nil {
			return err
		}

		now := s.now()
		paidAt := p.PaidAt
		if paidAt == nil {
			paidAt = &now
		}
		if err := s.payments.UpdateStatus(ctx, tx, p.ID, domain.PaymentStatusCompleted, nil, paidAt); err != nil {
			return err
		}

		before := t.PaymentStatus
		if err := s.applySummary(ctx, tx, t, summary); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, t, domain.EventPaymentCompleted, eventOpts{paymentID: &p.ID}); err != nil {
			return err
		}
		if err := s.emitSettledIfEntered(ctx, tx, t, before); err != nil {
			return err
		}

		for i := range history {
			if history[i].ID == p.ID {
				history[i].Status = domain.PaymentStatusCompleted
				history[i].PaidAt = paidAt
			}
		}
		view = &View{Transaction: t, Payments: history, Summary: summary}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("CompletePayment: %w", err)
	}

	log.Info("payment completed",
		"transaction_id", transactionID,
		"payment_id", paymentID,
		"payment_status", view.Transaction.PaymentStatus,
		"remaining_balance", view.Transaction.RemainingBalance,
	)
	return view, nil
}

func (s *Service) FailPayment(ctx context.Context, tenantID string, transactionID, paymentID uuid.UUID, reason string) (*View, error) {
	log := logging.FromContext(ctx)

	var view *View
	err := s.withLockedTransaction(ctx, tenantID, transactionID, func(tx *sql.Tx, t *domain.Transaction) error {
		p, err := s.payments.GetForUpdate(ctx, tx, t.ID, paymentID)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			return fmt.Errorf("payment is %s: %w", p.Status, domain.ErrPaymentTerminal)
		}

		var failureReason *string
		if reason != "" {
			failureReason = &reason
		}
		if err := s.payments.UpdateStatus(ctx, tx, p.ID, domain.PaymentStatusFailed, failureReason, nil); err != nil {
			return err
		}

		history, err := s.payments.ListByTransactionTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, tx, t, domain.EventPaymentFailed, eventOpts{paymentID: &p.ID, reason: reason}); err != nil {
			return err
		}

		view = s.view(t, history)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("FailPayment: %w", err)
	}

	log.Info("payment failed", "transaction_id", transactionID, "payment_id", paymentID, "reason", reason)
	return view, nil
}

// ReversePayment appends a completed payment with the negated amount. The
// original row is never modified. Reversals skip the partial payment policy.
func (s *Service) ReversePayment(ctx context.Context, tenantID string, transactionID, paymentID uuid.UUID, reason string) (*View, *domain.Payment, error) {
	log := logging.FromContext(ctx)

	var (
		view     *View
		reversal *domain.Payment
	)
	err := s.withLockedTransaction(ctx, tenantID, transactionID, func(tx *sql.Tx, t *domain.Transaction) error {
		p, err := s.payments.GetForUpdate(ctx, tx, t.ID, paymentID)
		if err != nil {
			return err
		}
		if p.Status != domain.PaymentStatusCompleted {
			return domain.InvalidRequestf("only completed payments can be reversed, payment is %s", p.Status)
		}
		if p.IsReversal() {
			return domain.InvalidRequestf("a reversal cannot be reversed")
		}

		reversed, err := s.payments.ExistsReversal(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if reversed {
			return domain.ErrAlreadyReversed
		}

		now := s.now()
		r := &domain.Payment{
			ID:                uuid.New(),
			TransactionID:     t.ID,
			Amount:            p.Amount.Neg(),
			Currency:          p.Currency,
			ExchangeRate:      p.ExchangeRate,
			Method:            p.Method,
			Status:            domain.PaymentStatusCompleted,
			ReversesPaymentID: &p.ID,
			PaidAt:            &now,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if reason != "" {
			r.Details = &reason
		}

		history, err := s.payments.ListByTransactionTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if err := s.payments.Create(ctx, tx, r); err != nil {
			return err
		}

		history = append(history, *r)
		summary := s.calc.Summarize(t, history)

		before := t.PaymentStatus
		if err := s.applySummary(ctx, tx, t, summary); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, t, domain.EventPaymentReversed, eventOpts{paymentID: &p.ID, reason: reason}); err != nil {
			return err
		}
		if err := s.emitSettledIfEntered(ctx, tx, t, before); err != nil {
			return err
		}

		reversal = r
		view = &View{Transaction: t, Payments: history, Summary: summary}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ReversePayment: %w", err)
	}

	log.Info("payment reversed",
		"transaction_id", transactionID,
		"payment_id", paymentID,
		"reversal_id", reversal.ID,
		"payment_status", view.Transaction.PaymentStatus,
		"remaining_balance", view.Transaction.RemainingBalance,
	)
	return view, reversal, nil
}
