package payment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func pendingPayment(t *testing.T) *Payment {
	t.Helper()
	p, err := New("pay-1", "o1", "pi_1", decimal.NewFromFloat(25.59), "USD", testNow)
	require.NoError(t, err)
	return p
}

func TestNewRejectsNonPositiveAmount(t *testing.T) {
	_, err := New("pay-1", "o1", "pi_1", decimal.Zero, "USD", testNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = New("pay-1", "o1", "pi_1", decimal.NewFromInt(-5), "USD", testNow)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMarkSucceeded(t *testing.T) {
	p := pendingPayment(t)

	require.NoError(t, p.MarkSucceeded("visa", "4242", testNow))
	assert.Equal(t, StatusSucceeded, p.Status)
	assert.Equal(t, "visa", p.CardBrand)
	assert.Equal(t, "4242", p.CardLast4)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, testNow, *p.PaidAt)

	// A second confirmation must be rejected; callers treat it as a replay.
	assert.ErrorIs(t, p.MarkSucceeded("visa", "4242", testNow), ErrInvalidStateTransition)
}

func TestMarkFailedIsTerminal(t *testing.T) {
	p := pendingPayment(t)

	require.NoError(t, p.MarkFailed(testNow))
	assert.Equal(t, StatusFailed, p.Status)
	assert.True(t, p.IsTerminal())

	assert.ErrorIs(t, p.MarkSucceeded("visa", "4242", testNow), ErrInvalidStateTransition)
}

func TestMarkRefundedOnlyFromSucceeded(t *testing.T) {
	p := pendingPayment(t)
	assert.ErrorIs(t, p.MarkRefunded(testNow), ErrNotRefundable)

	require.NoError(t, p.MarkSucceeded("visa", "4242", testNow))
	require.NoError(t, p.MarkRefunded(testNow))
	assert.Equal(t, StatusRefunded, p.Status)
}

func TestIsTerminal(t *testing.T) {
	p := pendingPayment(t)
	assert.False(t, p.IsTerminal())

	for _, s := range []Status{StatusSucceeded, StatusFailed, StatusRefunded, StatusCancelled} {
		p.Status = s
		assert.True(t, p.IsTerminal(), string(s))
	}
	p.Status = StatusProcessing
	assert.False(t, p.IsTerminal())
}
