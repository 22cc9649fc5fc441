package settlement

import (
	"time"

	"github.com/josh-kwaku/sarafi-settlement/internal/domain"
)

// RecordEdit snapshots tx's current terms. The caller assigns ID and
// sequence and must persist the entry in the same database transaction that
// applies the new terms.
func RecordEdit(tx *domain.Transaction, editedBy string, at time.Time) domain.EditHistoryEntry {
	return domain.EditHistoryEntry{
		TransactionID: tx.ID,
		Previous:      tx.Terms.Clone(),
		EditedBy:      editedBy,
		EditedAt:      at,
	}
}
