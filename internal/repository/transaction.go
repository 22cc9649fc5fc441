package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

const transactionColumns = `id, tenant_id, kind, direction,
	send_currency, send_amount, receive_currency, receive_amount,
	rate_applied, fee_charged, fee_currency, beneficiary, notes,
	allow_partial_payment, payment_status, total_paid, remaining_balance,
	version, created_at, updated_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`,
		t.ID, t.TenantID, t.Kind, t.Direction,
		t.SendCurrency, t.SendAmount, t.ReceiveCurrency, t.ReceiveAmount,
		t.RateApplied, t.FeeCharged, t.FeeCurrency, t.Beneficiary, t.Notes,
		t.AllowPartialPayment, t.PaymentStatus, t.TotalPaid, t.RemainingBalance,
		t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, tenantID string, id uuid.UUID) (*domain.Transaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		id, tenantID,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return t, nil
}

// List returns one page of a tenant's transactions, newest first, plus the
// total number matching. An empty status matches every status.
func (r *TransactionRepository) List(ctx context.Context, tenantID string, status domain.SettlementStatus, limit, offset int) ([]domain.Transaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		WHERE tenant_id = $1 AND ($2::text = '' OR payment_status = $2)`,
		tenantID, string(status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE tenant_id = $1 AND ($2::text = '' OR payment_status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`,
		tenantID, string(status), limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return out, total, nil
}

// UpdateTerms writes the commercial fields. t.Version must already hold the
// new version; the row is only touched if it is still at t.Version-1.
func (r *TransactionRepository) UpdateTerms(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET
			send_currency = $1, send_amount = $2, receive_currency = $3, receive_amount = $4,
			rate_applied = $5, fee_charged = $6, fee_currency = $7, beneficiary = $8, notes = $9,
			allow_partial_payment = $10, version = $11, updated_at = $12
		WHERE id = $13 AND version = $14`,
		t.SendCurrency, t.SendAmount, t.ReceiveCurrency, t.ReceiveAmount,
		t.RateApplied, t.FeeCharged, t.FeeCurrency, t.Beneficiary, t.Notes,
		t.AllowPartialPayment, t.Version, t.UpdatedAt,
		t.ID, t.Version-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateTerms: %w", err)
	}
	return expectOneRow(res, "UpdateTerms", domain.ErrVersionConflict)
}

// UpdateSettlement writes the settlement projection under the same version
// guard as UpdateTerms.
func (r *TransactionRepository) UpdateSettlement(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET
			payment_status = $1, total_paid = $2, remaining_balance = $3,
			version = $4, updated_at = $5
		WHERE id = $6 AND version = $7`,
		t.PaymentStatus, t.TotalPaid, t.RemainingBalance,
		t.Version, t.UpdatedAt,
		t.ID, t.Version-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateSettlement: %w", err)
	}
	return expectOneRow(res, "UpdateSettlement", domain.ErrVersionConflict)
}

func (r *TransactionRepository) Delete(ctx context.Context, tx *sql.Tx, tenantID string, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND tenant_id = $2`, id, tenantID,
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return expectOneRow(res, "Delete", domain.ErrNotFound)
}

func expectOneRow(res sql.Result, op string, zeroErr error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, zeroErr)
	}
	return nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var direction sql.NullString

	err := s.Scan(
		&t.ID, &t.TenantID, &t.Kind, &direction,
		&t.SendCurrency, &t.SendAmount, &t.ReceiveCurrency, &t.ReceiveAmount,
		&t.RateApplied, &t.FeeCharged, &t.FeeCurrency, &t.Beneficiary, &t.Notes,
		&t.AllowPartialPayment, &t.PaymentStatus, &t.TotalPaid, &t.RemainingBalance,
		&t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if direction.Valid {
		d := domain.RemittanceDirection(direction.String)
		t.Direction = &d
	}
	return &t, nil
}
