package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

const paymentColumns = `id, transaction_id, amount, currency, exchange_rate,
	method, status, reverses_payment_id, details, failure_reason,
	paid_at, created_at, updated_at`

const reversalConstraint = "uq_payments_reverses"

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, p *domain.Payment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`,
		p.ID, p.TransactionID, p.Amount, p.Currency, p.ExchangeRate,
		p.Method, p.Status, p.ReversesPaymentID, p.Details, p.FailureReason,
		p.PaidAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, reversalConstraint) {
			return fmt.Errorf("Create: %w", domain.ErrAlreadyReversed)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, transactionID, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND transaction_id = $2`,
		id, transactionID,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, transactionID, id uuid.UUID) (*domain.Payment, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND transaction_id = $2 FOR UPDATE`,
		id, transactionID,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Payment, error) {
	ps, err := listPayments(ctx, r.db, transactionID)
	if err != nil {
		return nil, fmt.Errorf("ListByTransaction: %w", err)
	}
	return ps, nil
}

// ListByTransactionTx reads inside tx so that the caller sees its own
// uncommitted writes and the history that the row lock protects.
func (r *PaymentRepository) ListByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) ([]domain.Payment, error) {
	ps, err := listPayments(ctx, tx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("ListByTransactionTx: %w", err)
	}
	return ps, nil
}

func listPayments(ctx context.Context, q querier, transactionID uuid.UUID) ([]domain.Payment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE transaction_id = $1 ORDER BY created_at, id`,
		transactionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.PaymentStatus, failureReason *string, paidAt *time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = $1, failure_reason = $2, paid_at = COALESCE($3, paid_at), updated_at = now()
		WHERE id = $4`,
		status, failureReason, paidAt, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return expectOneRow(res, "UpdateStatus", domain.ErrNotFound)
}

func (r *PaymentRepository) CountByTransaction(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE transaction_id = $1`, transactionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountByTransaction: %w", err)
	}
	return n, nil
}

func (r *PaymentRepository) ExistsReversal(ctx context.Context, tx *sql.Tx, paymentID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE reverses_payment_id = $1)`, paymentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsReversal: %w", err)
	}
	return exists, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	var reverses uuid.NullUUID

	err := s.Scan(
		&p.ID, &p.TransactionID, &p.Amount, &p.Currency, &p.ExchangeRate,
		&p.Method, &p.Status, &reverses, &p.Details, &p.FailureReason,
		&p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reverses.Valid {
		id := reverses.UUID
		p.ReversesPaymentID = &id
	}
	return &p, nil
}
