package domain

import (
	"time"

	"github.com/google/uuid"
)

// EditHistoryEntry is the snapshot of a transaction's terms taken just
// before an edit was applied.
type EditHistoryEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	Seq           int
	Previous      Terms
	EditedBy      string
	EditedAt      time.Time
}
