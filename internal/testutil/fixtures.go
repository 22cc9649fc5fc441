package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

const TenantID = "tenant-test"

// Terms returns exchange terms settling receive in ccy at rate 1.
func Terms(receive string, ccy domain.Currency, allowPartial bool) domain.Terms {
	amount := decimal.RequireFromString(receive)
	return domain.Terms{
		SendCurrency:        ccy,
		SendAmount:          amount,
		ReceiveCurrency:     ccy,
		ReceiveAmount:       amount,
		RateApplied:         decimal.NewFromInt(1),
		FeeCharged:          decimal.Zero,
		FeeCurrency:         ccy,
		AllowPartialPayment: allowPartial,
	}
}

// SeedTransaction inserts an open transaction directly, bypassing the
// service.
func SeedTransaction(t *testing.T, db *sql.DB, tenantID string, terms domain.Terms) *domain.Transaction {
	t.Helper()

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:               uuid.New(),
		TenantID:         tenantID,
		Kind:             domain.TransactionKindExchange,
		Terms:            terms,
		PaymentStatus:    domain.SettlementStatusOpen,
		TotalPaid:        decimal.Zero,
		RemainingBalance: terms.ReceiveAmount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err := db.Exec(
		`INSERT INTO transactions (id, tenant_id, kind, send_currency, send_amount,
			receive_currency, receive_amount, rate_applied, fee_charged, fee_currency,
			allow_partial_payment, payment_status, total_paid, remaining_balance,
			version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, $15, $16)`,
		tx.ID, tx.TenantID, tx.Kind, terms.SendCurrency, terms.SendAmount,
		terms.ReceiveCurrency, terms.ReceiveAmount, terms.RateApplied, terms.FeeCharged, terms.FeeCurrency,
		terms.AllowPartialPayment, tx.PaymentStatus, tx.TotalPaid, tx.RemainingBalance,
		tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func GetRemainingBalance(t *testing.T, db *sql.DB, transactionID uuid.UUID) decimal.Decimal {
	t.Helper()

	var remaining decimal.Decimal
	err := db.QueryRow(`SELECT remaining_balance FROM transactions WHERE id = $1`, transactionID).Scan(&remaining)
	if err != nil {
		t.Fatalf("get remaining balance %s: %v", transactionID, err)
	}
	return remaining
}

func CountPayments(t *testing.T, db *sql.DB, transactionID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM payments WHERE transaction_id = $1`, transactionID).Scan(&count)
	if err != nil {
		t.Fatalf("count payments for %s: %v", transactionID, err)
	}
	return count
}

func EventTypes(t *testing.T, db *sql.DB, transactionID uuid.UUID) []domain.SettlementEventType {
	t.Helper()

	rows, err := db.Query(
		`SELECT event_type FROM settlement_events WHERE transaction_id = $1 ORDER BY created_at, id`,
		transactionID,
	)
	if err != nil {
		t.Fatalf("query settlement events: %v", err)
	}
	defer rows.Close()

	var out []domain.SettlementEventType
	for rows.Next() {
		var et domain.SettlementEventType
		if err := rows.Scan(&et); err != nil {
			t.Fatalf("scan settlement event: %v", err)
		}
		out = append(out, et)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("settlement events rows: %v", err)
	}
	return out
}
