package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEdit(t *testing.T) {
	tx := newTransaction("1000", "CAD", true)
	note := "pickup in Herat"
	tx.Notes = &note
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entry := RecordEdit(tx, "operator-7", at)

	assert.Equal(t, tx.ID, entry.TransactionID)
	assert.Equal(t, "operator-7", entry.EditedBy)
	assert.Equal(t, at, entry.EditedAt)
	assert.True(t, entry.Previous.Equal(tx.Terms))

	// Mutating the live transaction after the snapshot must not leak into it.
	tx.ReceiveAmount = dec("2000")
	*tx.Notes = "changed"

	assert.True(t, entry.Previous.ReceiveAmount.Equal(dec("1000")))
	require.NotNil(t, entry.Previous.Notes)
	assert.Equal(t, "pickup in Herat", *entry.Previous.Notes)
}
