package transaction

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
	"github.com/josh-kwaku/sarafi-settlement/internal/settlement"
)

type UpdateTransactionRequest struct {
	TenantID string
	ID       uuid.UUID
	Terms    domain.Terms
	EditedBy string
}

type UpdateResult struct {
	View    *View
	History []domain.EditHistoryEntry
}

// UpdateTransaction replaces the commercial terms of a transaction. The
// previous terms are appended to the edit history before anything changes,
// and the settlement projection is recomputed against the new receive amount.
func (s *Service) UpdateTransaction(ctx context.Context, req UpdateTransactionRequest) (*UpdateResult, error) {
	log := logging.FromContext(ctx)

	if err := normalizeTerms(&req.Terms); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	if req.EditedBy == "" {
		req.EditedBy = "api"
	}

	var (
		result  *UpdateResult
		changed bool
	)
	err := s.withLockedTransaction(ctx, req.TenantID, req.ID, func(tx *sql.Tx, t *domain.Transaction) error {
		payments, err := s.payments.ListByTransactionTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}

		if t.Terms.Equal(req.Terms) {
			history, err := s.edits.ListByTransactionTx(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			result = &UpdateResult{View: s.view(t, payments), History: history}
			return nil
		}

		if t.ReceiveCurrency != req.Terms.ReceiveCurrency && hasLivePayments(payments) {
			return fmt.Errorf("receive currency %s has pending or completed payments: %w", t.ReceiveCurrency, domain.ErrCurrencyLocked)
		}

		now := s.now()
		entry := settlement.RecordEdit(t, req.EditedBy, now)
		if err := s.edits.Append(ctx, tx, &entry); err != nil {
			return err
		}

		t.Terms = req.Terms.Clone()
		t.Version++
		t.UpdatedAt = now
		if err := s.transactions.UpdateTerms(ctx, tx, t); err != nil {
			return err
		}

		before := t.PaymentStatus
		summary := s.calc.Summarize(t, payments)
		if err := s.applySummary(ctx, tx, t, summary); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, t, domain.EventTransactionUpdated, eventOpts{actor: req.EditedBy}); err != nil {
			return err
		}
		if err := s.emitSettledIfEntered(ctx, tx, t, before); err != nil {
			return err
		}

		history, err := s.edits.ListByTransactionTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		result = &UpdateResult{
			View:    &View{Transaction: t, Payments: payments, Summary: summary},
			History: history,
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	if changed {
		log.Info("transaction updated",
			"transaction_id", req.ID,
			"edited_by", req.EditedBy,
			"edits", len(result.History),
			"payment_status", result.View.Transaction.PaymentStatus,
			"remaining_balance", result.View.Transaction.RemainingBalance,
		)
	}
	return result, nil
}

// hasLivePayments reports whether any payment still carries a rate into the
// current receive currency. Pending payments count: they are applied later
// with the rate stored when they were recorded.
func hasLivePayments(payments []domain.Payment) bool {
	for _, p := range payments {
		if p.Status != domain.PaymentStatusFailed {
			return true
		}
	}
	return false
}
