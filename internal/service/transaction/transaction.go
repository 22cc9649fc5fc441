package transaction

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/logging"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type CreateTransactionRequest struct {
	TenantID  string
	Kind      domain.TransactionKind
	Direction *domain.RemittanceDirection
	Terms     domain.Terms
	CreatedBy string
}

type Page struct {
	Items  []domain.Transaction
	Total  int
	Limit  int
	Offset int
}

func (s *Service) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if err := validateCreate(&req); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	now := s.now()
	t := &domain.Transaction{
		ID:               uuid.New(),
		TenantID:         req.TenantID,
		Kind:             req.Kind,
		Direction:        req.Direction,
		Terms:            req.Terms.Clone(),
		PaymentStatus:    domain.SettlementStatusOpen,
		TotalPaid:        decimal.Zero,
		RemainingBalance: req.Terms.ReceiveAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", storageError(fmt.Errorf("begin tx: %w", err)))
	}
	defer tx.Rollback()

	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", storageError(err))
	}
	if err := s.emit(ctx, tx, t, domain.EventTransactionCreated, eventOpts{actor: req.CreatedBy}); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", storageError(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", storageError(fmt.Errorf("commit: %w", err)))
	}

	log.Info("transaction created",
		"transaction_id", t.ID,
		"kind", t.Kind,
		"receive_amount", t.ReceiveAmount,
		"receive_currency", t.ReceiveCurrency,
		"allow_partial_payment", t.AllowPartialPayment,
	)
	return t, nil
}

// GetTransaction recomputes the settlement summary from the stored payments
// rather than trusting the persisted projection.
func (s *Service) GetTransaction(ctx context.Context, tenantID string, id uuid.UUID) (*View, error) {
	t, err := s.transactions.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", storageError(err))
	}

	payments, err := s.payments.ListByTransaction(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", storageError(err))
	}

	return s.view(t, payments), nil
}

func (s *Service) view(t *domain.Transaction, payments []domain.Payment) *View {
	summary := s.calc.Summarize(t, payments)
	t.PaymentStatus = summary.Status
	t.TotalPaid = summary.TotalPaid
	t.RemainingBalance = summary.RemainingBalance
	return &View{Transaction: t, Payments: payments, Summary: summary}
}

func (s *Service) ListTransactions(ctx context.Context, tenantID string, status domain.SettlementStatus, limit, offset int) (*Page, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("ListTransactions: %w", domain.InvalidRequestf("unknown status %q", status))
	}
	if offset < 0 {
		return nil, fmt.Errorf("ListTransactions: %w", domain.InvalidRequestf("offset must not be negative"))
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	items, total, err := s.transactions.List(ctx, tenantID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", storageError(err))
	}
	return &Page{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, tenantID string, id uuid.UUID) error {
	log := logging.FromContext(ctx)

	err := s.withLockedTransaction(ctx, tenantID, id, func(tx *sql.Tx, t *domain.Transaction) error {
		n, err := s.payments.CountByTransaction(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%d payments recorded: %w", n, domain.ErrTransactionHasPayments)
		}

		if err := s.emit(ctx, tx, t, domain.EventTransactionDeleted, eventOpts{}); err != nil {
			return err
		}
		return s.transactions.Delete(ctx, tx, tenantID, t.ID)
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	log.Info("transaction deleted", "transaction_id", id)
	return nil
}

func (s *Service) GetEditHistory(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.EditHistoryEntry, error) {
	if _, err := s.transactions.GetByID(ctx, tenantID, id); err != nil {
		return nil, fmt.Errorf("GetEditHistory: %w", storageError(err))
	}

	entries, err := s.edits.ListByTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetEditHistory: %w", storageError(err))
	}
	return entries, nil
}
