package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

// MaxAttempts is how many publish attempts an event gets before it is
// parked as failed.
const MaxAttempts = 5

type eventRepo interface {
	ClaimPending(ctx context.Context, tx *sql.Tx, limit int) ([]domain.SettlementEvent, error)
	MarkStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.SettlementEventStatus) error
}

type publisher interface {
	Publish(ctx context.Context, event domain.SettlementEvent) error
}

type Dispatcher struct {
	events    eventRepo
	publisher publisher
	db        *sql.DB
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewDispatcher(events eventRepo, publisher publisher, db *sql.DB, logger *slog.Logger, interval time.Duration, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		events:    events,
		publisher: publisher,
		db:        db,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("outbox dispatcher started", "interval", d.interval, "batch_size", d.batchSize)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil {
				d.logger.Error("outbox dispatch failed", "error", err)
			}
		}
	}
}

// DispatchOnce claims one batch of pending events and publishes them. It
// returns how many were published.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("DispatchOnce: begin tx: %w", err)
	}
	defer tx.Rollback()

	events, err := d.events.ClaimPending(ctx, tx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("DispatchOnce: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := 0
	for _, event := range events {
		status := domain.SettlementEventStatusDispatched
		if err := d.publisher.Publish(ctx, event); err != nil {
			status = nextStatus(event.Attempts)
			d.logger.Warn("publish settlement event failed",
				"event_id", event.ID,
				"event_type", event.EventType,
				"attempt", event.Attempts+1,
				"next_status", status,
				"error", err,
			)
		} else {
			published++
		}

		if err := d.events.MarkStatus(ctx, tx, event.ID, status); err != nil {
			return 0, fmt.Errorf("DispatchOnce: mark %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("DispatchOnce: commit: %w", err)
	}

	d.logger.Debug("outbox batch dispatched", "claimed", len(events), "published", published)
	return published, nil
}

func nextStatus(attempts int) domain.SettlementEventStatus {
	if attempts+1 >= MaxAttempts {
		return domain.SettlementEventStatusFailed
	}
	return domain.SettlementEventStatusPending
}
