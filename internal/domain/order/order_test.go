package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testLines() []Line {
	return []Line{{
		ProductID: "p1",
		Title:     "Kind of Blue",
		Quantity:  2,
		UnitPrice: decimal.NewFromFloat(10.00),
		LineTotal: decimal.NewFromFloat(20.00),
	}}
}

func pendingOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("o1", "ORD-20250615-0001", "u1", testLines(),
		decimal.NewFromFloat(20.00), decimal.NewFromFloat(2.00),
		decimal.NewFromFloat(5.99), decimal.NewFromFloat(1.60), "USD", testNow)
	require.NoError(t, err)
	return o
}

func TestNewComputesTotal(t *testing.T) {
	o := pendingOrder(t)

	// max(0, 20.00 - 2.00) + 5.99 + 1.60
	assert.True(t, o.Total.Equal(decimal.NewFromFloat(25.59)), o.Total.String())
	assert.Equal(t, StatusPending, o.Status)
}

func TestNewClampsOverDiscount(t *testing.T) {
	o, err := New("o1", "n", "u1", testLines(),
		decimal.NewFromInt(10), decimal.NewFromInt(15),
		decimal.NewFromInt(5), decimal.Zero, "USD", testNow)
	require.NoError(t, err)

	// The discounted subtotal floors at zero; shipping is still charged.
	assert.True(t, o.Total.Equal(decimal.NewFromInt(5)), o.Total.String())
}

func TestNewValidation(t *testing.T) {
	_, err := New("o1", "n", "u1", nil,
		decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, "USD", testNow)
	assert.ErrorIs(t, err, ErrNoLines)

	_, err = New("o1", "n", "u1", testLines(),
		decimal.NewFromInt(-1), decimal.Zero, decimal.Zero, decimal.Zero, "USD", testNow)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestLifecycleTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		apply   func(*Order) error
		want    Status
		wantErr bool
	}{
		{"pending to processing", StatusPending, func(o *Order) error { return o.MarkProcessing(testNow) }, StatusProcessing, false},
		{"processing to shipped", StatusProcessing, func(o *Order) error { return o.MarkShipped(testNow) }, StatusShipped, false},
		{"shipped to delivered", StatusShipped, func(o *Order) error { return o.MarkDelivered(testNow) }, StatusDelivered, false},
		{"pending to cancelled", StatusPending, func(o *Order) error { return o.MarkCancelled(testNow) }, StatusCancelled, false},
		{"processing to cancelled", StatusProcessing, func(o *Order) error { return o.MarkCancelled(testNow) }, StatusCancelled, false},
		{"processing to refunded", StatusProcessing, func(o *Order) error { return o.MarkRefunded(testNow) }, StatusRefunded, false},
		{"shipped to refunded", StatusShipped, func(o *Order) error { return o.MarkRefunded(testNow) }, StatusRefunded, false},

		{"pending to shipped", StatusPending, func(o *Order) error { return o.MarkShipped(testNow) }, StatusPending, true},
		{"pending to delivered", StatusPending, func(o *Order) error { return o.MarkDelivered(testNow) }, StatusPending, true},
		{"shipped to cancelled", StatusShipped, func(o *Order) error { return o.MarkCancelled(testNow) }, StatusShipped, true},
		{"delivered to cancelled", StatusDelivered, func(o *Order) error { return o.MarkCancelled(testNow) }, StatusDelivered, true},
		{"delivered to refunded", StatusDelivered, func(o *Order) error { return o.MarkRefunded(testNow) }, StatusDelivered, true},
		{"cancelled to processing", StatusCancelled, func(o *Order) error { return o.MarkProcessing(testNow) }, StatusCancelled, true},
		{"refunded to cancelled", StatusRefunded, func(o *Order) error { return o.MarkCancelled(testNow) }, StatusRefunded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := pendingOrder(t)
			o.Status = tt.from

			err := tt.apply(o)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStateTransition)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, o.Status)
		})
	}
}

func TestTransitionTimestamps(t *testing.T) {
	o := pendingOrder(t)
	require.NoError(t, o.MarkProcessing(testNow))

	shipTime := testNow.Add(time.Hour)
	require.NoError(t, o.MarkShipped(shipTime))
	require.NotNil(t, o.ShippedAt)
	assert.Equal(t, shipTime, *o.ShippedAt)

	deliverTime := shipTime.Add(48 * time.Hour)
	require.NoError(t, o.MarkDelivered(deliverTime))
	require.NotNil(t, o.DeliveredAt)
	assert.Equal(t, deliverTime, *o.DeliveredAt)
}

func TestCanBeCancelled(t *testing.T) {
	o := pendingOrder(t)
	assert.True(t, o.CanBeCancelled())

	o.Status = StatusProcessing
	assert.True(t, o.CanBeCancelled())

	o.Status = StatusShipped
	assert.False(t, o.CanBeCancelled())
}

func TestFormatNumber(t *testing.T) {
	day := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "ORD-20250615-0007", FormatNumber("ORD", day, 7))
	assert.Equal(t, "ORD-20250615-1234", FormatNumber("ORD", day, 1234))
}

func TestCloneIsDeep(t *testing.T) {
	o := pendingOrder(t)
	o.ShippingAddress = []byte(`{"city":"Oslo"}`)

	clone := o.Clone()
	clone.Lines[0].Quantity = 99
	clone.ShippingAddress[2] = 'x'

	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.Equal(t, byte('c'), o.ShippingAddress[2])
}
