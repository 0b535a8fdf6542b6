package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusPaid},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusPaid, StatusCompleted},
		{StatusPaid, StatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusConfirmed, StatusPaid},
		{StatusPaid, StatusConfirmed},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusPending},
		{StatusCancelled, StatusCompleted},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, IsTerminal(StatusCancelled))
	assert.True(t, IsTerminal(StatusCompleted))
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusConfirmed))
	assert.False(t, IsTerminal(StatusPaid))
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"pending", "confirmed", "paid", "completed", "cancelled"} {
		got, err := ParseStatus(raw)
		assert.NoError(t, err)
		assert.Equal(t, Status(raw), got)
	}

	_, err := ParseStatus("expired")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestParsePaymentMethod(t *testing.T) {
	for _, raw := range []string{"payAtClinic", "payOnline"} {
		got, err := ParsePaymentMethod(raw)
		assert.NoError(t, err)
		assert.Equal(t, PaymentMethod(raw), got)
	}

	_, err := ParsePaymentMethod("barter")
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
}
