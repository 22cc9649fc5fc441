package transaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
	"github.com/josh-kwaku/sarafi-settlement/internal/fx"
	"github.com/josh-kwaku/sarafi-settlement/internal/settlement"
	"github.com/josh-kwaku/sarafi-settlement/internal/txlock"
)

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Transaction, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, tenantID string, id uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, tenantID string, status domain.SettlementStatus, limit, offset int) ([]domain.Transaction, int, error)
	UpdateTerms(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	UpdateSettlement(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	Delete(ctx context.Context, tx *sql.Tx, tenantID string, id uuid.UUID) error
}

type paymentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, transactionID, id uuid.UUID) (*domain.Payment, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Payment, error)
	ListByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) ([]domain.Payment, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PaymentStatus, failureReason *string, paidAt *time.Time) error
	CountByTransaction(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) (int, error)
	ExistsReversal(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) (bool, error)
}

type editRepo interface {
	Append(ctx context.Context, tx *sql.Tx, e *domain.EditHistoryEntry) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.EditHistoryEntry, error)
	ListByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) ([]domain.EditHistoryEntry, error)
}

type outboxRepo interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.SettlementEvent) error
}

type rateSource interface {
	Base() domain.Currency
	GetRate(ctx context.Context, from, to domain.Currency) (*fx.Quote, error)
}

// View is a transaction together with its payments and a settlement summary
// recomputed from those payments.
type View struct {
	Transaction *domain.Transaction
	Payments    []domain.Payment
	Summary     settlement.Summary
}

type Service struct {
	transactions transactionRepo
	payments     paymentRepo
	edits        editRepo
	outbox       outboxRepo
	calc         *settlement.Calculator
	rates        rateSource
	locks        *txlock.KeyedMutex[uuid.UUID]
	db           *sql.DB
	now          func() time.Time
}

// NewService wires the settlement service. locks may be nil, in which case
// only the database row lock serializes work on a transaction.
func NewService(
	transactions transactionRepo,
	payments paymentRepo,
	edits editRepo,
	outbox outboxRepo,
	calc *settlement.Calculator,
	rates rateSource,
	locks *txlock.KeyedMutex[uuid.UUID],
	db *sql.DB,
) *Service {
	return &Service{
		transactions: transactions,
		payments:     payments,
		edits:        edits,
		outbox:       outbox,
		calc:         calc,
		rates:        rates,
		locks:        locks,
		db:           db,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// withLockedTransaction runs fn inside a database transaction holding the
// row lock on the target. fn's writes commit together or not at all.
func (s *Service) withLockedTransaction(ctx context.Context, tenantID string, id uuid.UUID, fn func(tx *sql.Tx, t *domain.Transaction) error) error {
	if s.locks != nil {
		unlock := s.locks.Lock(id)
		defer unlock()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	t, err := s.transactions.GetForUpdate(ctx, tx, tenantID, id)
	if err != nil {
		return storageError(err)
	}

	if err := fn(tx, t); err != nil {
		return storageError(err)
	}

	if err := tx.Commit(); err != nil {
		return storageError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrInvalidRequest,
	domain.ErrInvalidAmount,
	domain.ErrInvalidCurrency,
	domain.ErrInvalidRate,
	domain.ErrPolicyViolation,
	domain.ErrPersistence,
	domain.ErrPaymentTerminal,
	domain.ErrAlreadyReversed,
	domain.ErrTransactionHasPayments,
	domain.ErrCurrencyLocked,
	domain.ErrVersionConflict,
}

// storageError tags anything that is not already a domain error as a
// persistence failure.
func storageError(err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}

// applySummary copies the summary onto t as the next version and persists the
// projection.
func (s *Service) applySummary(ctx context.Context, tx *sql.Tx, t *domain.Transaction, summary settlement.Summary) error {
	t.PaymentStatus = summary.Status
	t.TotalPaid = summary.TotalPaid
	t.RemainingBalance = summary.RemainingBalance
	t.Version++
	t.UpdatedAt = s.now()

	if err := s.transactions.UpdateSettlement(ctx, tx, t); err != nil {
		return fmt.Errorf("applySummary: %w", err)
	}
	return nil
}

type eventPayload struct {
	TransactionID    uuid.UUID               `json:"transaction_id"`
	TenantID         string                  `json:"tenant_id"`
	PaymentID        *uuid.UUID              `json:"payment_id,omitempty"`
	PaymentStatus    domain.SettlementStatus `json:"payment_status"`
	TotalPaid        string                  `json:"total_paid"`
	RemainingBalance string                  `json:"remaining_balance"`
	Currency         domain.Currency         `json:"currency"`
	Version          int64                   `json:"version"`
	Actor            string                  `json:"actor,omitempty"`
	Reason           string                  `json:"reason,omitempty"`
	OccurredAt       time.Time               `json:"occurred_at"`
}

type eventOpts struct {
	paymentID *uuid.UUID
	actor     string
	reason    string
}

func (s *Service) emit(ctx context.Context, tx *sql.Tx, t *domain.Transaction, eventType domain.SettlementEventType, opts eventOpts) error {
	now := s.now()
	payload, err := json.Marshal(eventPayload{
		TransactionID:    t.ID,
		TenantID:         t.TenantID,
		PaymentID:        opts.paymentID,
		PaymentStatus:    t.PaymentStatus,
		TotalPaid:        t.TotalPaid.String(),
		RemainingBalance: t.RemainingBalance.String(),
		Currency:         t.ReceiveCurrency,
		Version:          t.Version,
		Actor:            opts.actor,
		Reason:           opts.reason,
		OccurredAt:       now,
	})
	if err != nil {
		return fmt.Errorf("emit %s: marshal: %w", eventType, err)
	}

	event := &domain.SettlementEvent{
		ID:            uuid.New(),
		TransactionID: t.ID,
		TenantID:      t.TenantID,
		EventType:     eventType,
		Payload:       payload,
		Status:        domain.SettlementEventStatusPending,
		CreatedAt:     now,
	}
	if err := s.outbox.Create(ctx, tx, event); err != nil {
		return fmt.Errorf("emit %s: %w", eventType, err)
	}
	return nil
}

// emitSettledIfEntered records a transaction.settled event when the status
// moved from unsettled to settled.
func (s *Service) emitSettledIfEntered(ctx context.Context, tx *sql.Tx, t *domain.Transaction, before domain.SettlementStatus) error {
	if before.IsSettled() || !t.PaymentStatus.IsSettled() {
		return nil
	}
	return s.emit(ctx, tx, t, domain.EventTransactionSettled, eventOpts{})
}
