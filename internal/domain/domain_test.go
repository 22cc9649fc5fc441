package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.True(t, PaymentStatusCompleted.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
}

func TestInvalidRequestError(t *testing.T) {
	err := fmt.Errorf("RecordPayment: %w", InvalidRequestf("unknown method %q", "barter"))

	assert.True(t, errors.Is(err, ErrInvalidRequest))
	var ir *InvalidRequestError
	assert.True(t, errors.As(err, &ir))
	assert.Equal(t, `unknown method "barter"`, ir.Reason)
}
