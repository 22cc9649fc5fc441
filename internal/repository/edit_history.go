package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

const editColumns = `id, transaction_id, seq,
	send_currency, send_amount, receive_currency, receive_amount,
	rate_applied, fee_charged, fee_currency, beneficiary, notes,
	allow_partial_payment, edited_by, edited_at`

type EditHistoryRepository struct {
	db *sql.DB
}

func NewEditHistoryRepository(db *sql.DB) *EditHistoryRepository {
	return &EditHistoryRepository{db: db}
}

// Append assigns the next sequence number and inserts the entry. The caller
// must hold the row lock on the parent transaction.
func (r *EditHistoryRepository) Append(ctx context.Context, tx *sql.Tx, e *domain.EditHistoryEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM transaction_edits WHERE transaction_id = $1`,
		e.TransactionID,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("Append: next seq: %w", err)
	}

	prev := e.Previous
	_, err = tx.ExecContext(ctx,
		`INSERT INTO transaction_edits (`+editColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`,
		e.ID, e.TransactionID, e.Seq,
		prev.SendCurrency, prev.SendAmount, prev.ReceiveCurrency, prev.ReceiveAmount,
		prev.RateApplied, prev.FeeCharged, prev.FeeCurrency, prev.Beneficiary, prev.Notes,
		prev.AllowPartialPayment, e.EditedBy, e.EditedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (r *EditHistoryRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.EditHistoryEntry, error) {
	entries, err := listEdits(ctx, r.db, transactionID)
	if err != nil {
		return nil, fmt.Errorf("ListByTransaction: %w", err)
	}
	return entries, nil
}

func (r *EditHistoryRepository) ListByTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uuid.UUID) ([]domain.EditHistoryEntry, error) {
	entries, err := listEdits(ctx, tx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("ListByTransactionTx: %w", err)
	}
	return entries, nil
}

func listEdits(ctx context.Context, q querier, transactionID uuid.UUID) ([]domain.EditHistoryEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+editColumns+` FROM transaction_edits WHERE transaction_id = $1 ORDER BY seq`,
		transactionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EditHistoryEntry
	for rows.Next() {
		var e domain.EditHistoryEntry
		p := &e.Previous
		if err := rows.Scan(
			&e.ID, &e.TransactionID, &e.Seq,
			&p.SendCurrency, &p.SendAmount, &p.ReceiveCurrency, &p.ReceiveAmount,
			&p.RateApplied, &p.FeeCharged, &p.FeeCurrency, &p.Beneficiary, &p.Notes,
			&p.AllowPartialPayment, &e.EditedBy, &e.EditedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
