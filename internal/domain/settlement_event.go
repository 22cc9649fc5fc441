package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SettlementEventStatus string

const (
	SettlementEventStatusPending    SettlementEventStatus = "pending"
	SettlementEventStatusDispatched SettlementEventStatus = "dispatched"
	SettlementEventStatusFailed     SettlementEventStatus = "failed"
)

type SettlementEventType string

const (
	EventTransactionCreated SettlementEventType = "transaction.created"
	EventTransactionUpdated SettlementEventType = "transaction.updated"
	EventTransactionSettled SettlementEventType = "transaction.settled"
	EventTransactionDeleted SettlementEventType = "transaction.deleted"
	EventPaymentRecorded    SettlementEventType = "payment.recorded"
	EventPaymentCompleted   SettlementEventType = "payment.completed"
	EventPaymentFailed      SettlementEventType = "payment.failed"
	EventPaymentReversed    SettlementEventType = "payment.reversed"
)

type SettlementEvent struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	TenantID      string
	EventType     SettlementEventType
	Payload       json.RawMessage
	Status        SettlementEventStatus
	Attempts      int
	LastAttempt   *time.Time
	CreatedAt     time.Time
}
