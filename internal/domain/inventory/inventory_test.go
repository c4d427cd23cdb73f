package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve(t *testing.T) {
	rec, err := NewRecord("p1", 10, 3)
	require.NoError(t, err)

	require.NoError(t, rec.Reserve(4))
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 4, rec.ReservedQuantity)
	assert.Equal(t, 6, rec.Available())

	require.NoError(t, rec.Reserve(6))
	assert.Equal(t, 0, rec.Available())
}

func TestReserveInsufficient(t *testing.T) {
	rec, err := NewRecord("p1", 5, 0)
	require.NoError(t, err)
	require.NoError(t, rec.Reserve(3))

	err = rec.Reserve(3)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// The failed reservation must not change anything.
	assert.Equal(t, 3, rec.ReservedQuantity)
}

func TestReserveInvalidQuantity(t *testing.T) {
	rec, err := NewRecord("p1", 5, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, rec.Reserve(0), ErrInvalidQuantity)
	assert.ErrorIs(t, rec.Reserve(-1), ErrInvalidQuantity)
}

func TestRelease(t *testing.T) {
	rec, err := NewRecord("p1", 10, 0)
	require.NoError(t, err)
	require.NoError(t, rec.Reserve(4))

	require.NoError(t, rec.Release(3))
	assert.Equal(t, 1, rec.ReservedQuantity)

	// Releasing more than is reserved clamps at zero.
	require.NoError(t, rec.Release(5))
	assert.Equal(t, 0, rec.ReservedQuantity)
	assert.Equal(t, 10, rec.Quantity)
}

func TestDeduct(t *testing.T) {
	rec, err := NewRecord("p1", 10, 0)
	require.NoError(t, err)
	require.NoError(t, rec.Reserve(4))

	require.NoError(t, rec.Deduct(4))
	assert.Equal(t, 6, rec.Quantity)
	assert.Equal(t, 0, rec.ReservedQuantity)
}

func TestDeductMoreThanOnHand(t *testing.T) {
	rec, err := NewRecord("p1", 2, 0)
	require.NoError(t, err)

	err = rec.Deduct(3)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, rec.Quantity)
}

func TestInStockVersusAvailable(t *testing.T) {
	rec, err := NewRecord("p1", 5, 0)
	require.NoError(t, err)
	require.NoError(t, rec.Reserve(5))

	// Fully reserved stock still displays as in stock but is not orderable.
	assert.True(t, rec.InStock())
	assert.Equal(t, 0, rec.Available())
}

func TestLowStock(t *testing.T) {
	rec, err := NewRecord("p1", 10, 5)
	require.NoError(t, err)
	assert.False(t, rec.LowStock())

	require.NoError(t, rec.Reserve(6))
	require.NoError(t, rec.Deduct(6))
	assert.True(t, rec.LowStock())
}

func TestSetAndAddStock(t *testing.T) {
	rec, err := NewRecord("p1", 1, 0)
	require.NoError(t, err)

	require.NoError(t, rec.AddStock(4))
	assert.Equal(t, 5, rec.Quantity)

	require.NoError(t, rec.SetStock(2))
	assert.Equal(t, 2, rec.Quantity)

	assert.Error(t, rec.SetStock(-1))
}
