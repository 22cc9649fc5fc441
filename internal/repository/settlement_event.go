package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

const settlementEventColumns = `id, transaction_id, tenant_id, event_type, payload, status,
	attempts, last_attempt, created_at`

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, tx *sql.Tx, event *domain.SettlementEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO settlement_events (`+settlementEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.TransactionID, event.TenantID, event.EventType, []byte(event.Payload),
		event.Status, event.Attempts, event.LastAttempt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// ClaimPending locks up to limit pending events for the lifetime of tx.
// Concurrent dispatchers skip rows another one already holds.
func (r *OutboxRepository) ClaimPending(ctx context.Context, tx *sql.Tx, limit int) ([]domain.SettlementEvent, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+settlementEventColumns+` FROM settlement_events
		WHERE status = $1 ORDER BY created_at LIMIT $2 FOR UPDATE SKIP LOCKED`,
		domain.SettlementEventStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimPending: %w", err)
	}
	defer rows.Close()

	var events []domain.SettlementEvent
	for rows.Next() {
		e, err := scanSettlementEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ClaimPending: scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ClaimPending: rows: %w", err)
	}
	return events, nil
}

// MarkStatus records one dispatch attempt and its outcome.
func (r *OutboxRepository) MarkStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.SettlementEventStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE settlement_events SET status = $1, attempts = attempts + 1, last_attempt = now()
		WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("MarkStatus: %w", err)
	}
	return expectOneRow(res, "MarkStatus", domain.ErrNotFound)
}

// Backlog reports how many events are still waiting for dispatch and when
// the oldest of them was written. oldest is nil when nothing is pending.
func (r *OutboxRepository) Backlog(ctx context.Context) (pending int, oldest *time.Time, err error) {
	var ts sql.NullTime
	err = r.db.QueryRowContext(ctx,
		`SELECT count(*), min(created_at) FROM settlement_events WHERE status = 'pending'`,
	).Scan(&pending, &ts)
	if err != nil {
		return 0, nil, fmt.Errorf("Backlog: %w", err)
	}
	if ts.Valid {
		oldest = &ts.Time
	}
	return pending, oldest, nil
}

func scanSettlementEvent(s scanner) (*domain.SettlementEvent, error) {
	var e domain.SettlementEvent
	var payload []byte
	err := s.Scan(
		&e.ID, &e.TransactionID, &e.TenantID, &e.EventType, &payload, &e.Status,
		&e.Attempts, &e.LastAttempt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Payload = payload
	return &e, nil
}
