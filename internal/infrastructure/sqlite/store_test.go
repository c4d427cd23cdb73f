package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domcoupon "github.com/waxline/recordshop/internal/domain/coupon"
	dominv "github.com/waxline/recordshop/internal/domain/inventory"
	domorder "github.com/waxline/recordshop/internal/domain/order"
	dompayment "github.com/waxline/recordshop/internal/domain/payment"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInventoryReserveConditional(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewInventoryRepository(store)

	rec, err := dominv.NewRecord("p1", 5, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))

	require.NoError(t, repo.Reserve(ctx, "p1", 3))

	// Only two units remain available; the second hold must fail whole.
	err = repo.Reserve(ctx, "p1", 3)
	var stockErr *dominv.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReservedQuantity)
	assert.Equal(t, 5, got.Quantity)
}

func TestInventoryReserveUnknownProduct(t *testing.T) {
	store := openStore(t)

	err := NewInventoryRepository(store).Reserve(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, dominv.ErrNotFound)
}

func TestInventoryReleaseClampsAtZero(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewInventoryRepository(store)

	rec, err := dominv.NewRecord("p1", 5, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))
	require.NoError(t, repo.Reserve(ctx, "p1", 2))

	require.NoError(t, repo.Release(ctx, "p1", 10))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReservedQuantity)
}

func TestInventoryDeduct(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewInventoryRepository(store)

	rec, err := dominv.NewRecord("p1", 5, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rec))
	require.NoError(t, repo.Reserve(ctx, "p1", 2))

	require.NoError(t, repo.Deduct(ctx, "p1", 2))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 0, got.ReservedQuantity)

	err = repo.Deduct(ctx, "p1", 4)
	var stockErr *dominv.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
}

func TestCouponRedeemRespectsLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewCouponRepository(store)

	limit := 2
	require.NoError(t, repo.Save(ctx, &domcoupon.Coupon{
		Code:       "LIMITED",
		Type:       domcoupon.TypeFixed,
		Value:      decimal.NewFromInt(5),
		UsageLimit: &limit,
		Active:     true,
	}))

	require.NoError(t, repo.Redeem(ctx, "LIMITED"))
	require.NoError(t, repo.Redeem(ctx, "LIMITED"))
	assert.ErrorIs(t, repo.Redeem(ctx, "LIMITED"), domcoupon.ErrUsageExceeded)

	assert.ErrorIs(t, repo.Redeem(ctx, "GHOST"), domcoupon.ErrNotFound)

	// Compensation frees one use again.
	require.NoError(t, repo.Unredeem(ctx, "LIMITED"))
	require.NoError(t, repo.Redeem(ctx, "LIMITED"))
}

func TestCouponRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewCouponRepository(store)

	minOrder := decimal.NewFromInt(15)
	maxDiscount := decimal.NewFromInt(50)
	limit := 100
	from := testNow.Add(-time.Hour)
	until := testNow.Add(24 * time.Hour)
	require.NoError(t, repo.Save(ctx, &domcoupon.Coupon{
		Code:              "WELCOME10",
		Type:              domcoupon.TypePercentage,
		Value:             decimal.NewFromInt(10),
		MinOrderAmount:    &minOrder,
		MaxDiscountAmount: &maxDiscount,
		UsageLimit:        &limit,
		ValidFrom:         &from,
		ValidUntil:        &until,
		Active:            true,
	}))

	got, err := repo.FindByCode(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, domcoupon.TypePercentage, got.Type)
	require.NotNil(t, got.MinOrderAmount)
	assert.True(t, got.MinOrderAmount.Equal(minOrder))
	require.NotNil(t, got.UsageLimit)
	assert.Equal(t, 100, *got.UsageLimit)
	require.NotNil(t, got.ValidUntil)
	assert.True(t, got.ValidUntil.Equal(until))
	assert.True(t, got.IsValid(testNow))
}

func TestOrderInsertAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewOrderRepository(store)

	entity, err := domorder.New("o1", "ORD-20250615-0001", "u1",
		[]domorder.Line{
			{ProductID: "p1", Title: "Kind of Blue", Artist: "Miles Davis", Quantity: 2,
				UnitPrice: decimal.NewFromFloat(10.00), LineTotal: decimal.NewFromFloat(20.00)},
			{ProductID: "p2", Title: "Blue Train", Artist: "John Coltrane", Quantity: 1,
				UnitPrice: decimal.NewFromFloat(24.99), LineTotal: decimal.NewFromFloat(24.99)},
		},
		decimal.NewFromFloat(44.99), decimal.NewFromFloat(4.50),
		decimal.NewFromFloat(5.99), decimal.NewFromFloat(3.60), "USD", testNow)
	require.NoError(t, err)
	entity.ShippingAddress = []byte(`{"city":"Oslo"}`)
	entity.ShippingMethod = "standard"

	require.NoError(t, repo.Insert(ctx, entity))

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, entity.Number, got.Number)
	assert.Equal(t, domorder.StatusPending, got.Status)
	assert.False(t, got.StockReleased)
	assert.True(t, got.Total.Equal(entity.Total), got.Total.String())
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "p1", got.Lines[0].ProductID)
	assert.Equal(t, "p2", got.Lines[1].ProductID)
	assert.JSONEq(t, `{"city":"Oslo"}`, string(got.ShippingAddress))
}

func TestOrderInsertDuplicateNumberConflicts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewOrderRepository(store)

	lines := []domorder.Line{{ProductID: "p1", Quantity: 1,
		UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(10)}}

	first, err := domorder.New("o1", "ORD-20250615-0001", "u1", lines,
		decimal.NewFromInt(10), decimal.Zero, decimal.Zero, decimal.Zero, "USD", testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, first))

	second, err := domorder.New("o2", "ORD-20250615-0001", "u2", lines,
		decimal.NewFromInt(10), decimal.Zero, decimal.Zero, decimal.Zero, "USD", testNow)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, second), domorder.ErrConflict)
}

func TestOrderUpdateStatusAndTimestamps(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	repo := NewOrderRepository(store)

	entity, err := domorder.New("o1", "ORD-20250615-0001", "u1",
		[]domorder.Line{{ProductID: "p1", Quantity: 1,
			UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(10)}},
		decimal.NewFromInt(10), decimal.Zero, decimal.Zero, decimal.Zero, "USD", testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, entity))

	require.NoError(t, entity.MarkProcessing(testNow))
	require.NoError(t, entity.MarkShipped(testNow.Add(time.Hour)))
	entity.StockReleased = true
	require.NoError(t, repo.Update(ctx, entity))

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusShipped, got.Status)
	assert.True(t, got.StockReleased)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, got.ShippedAt.Equal(testNow.Add(time.Hour)))
	assert.Nil(t, got.DeliveredAt)
}

func TestNumberSequence(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	seq := NewNumberSequence(store)

	for want := 1; want <= 3; want++ {
		got, err := seq.Next(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// A new day starts over.
	got, err := seq.Next(ctx, testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestPaymentRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	orders := NewOrderRepository(store)
	repo := NewPaymentRepository(store)

	entity, err := domorder.New("o1", "ORD-20250615-0001", "u1",
		[]domorder.Line{{ProductID: "p1", Quantity: 1,
			UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(10)}},
		decimal.NewFromInt(10), decimal.Zero, decimal.Zero, decimal.Zero, "USD", testNow)
	require.NoError(t, err)
	require.NoError(t, orders.Insert(ctx, entity))

	p, err := dompayment.New("pay-1", "o1", "pi_1", decimal.NewFromInt(10), "USD", testNow)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, p))

	byIntent, err := repo.FindByIntent(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "pay-1", byIntent.ID)

	require.NoError(t, p.MarkSucceeded("visa", "4242", testNow))
	require.NoError(t, repo.Update(ctx, p))

	byOrder, err := repo.FindByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, dompayment.StatusSucceeded, byOrder.Status)
	assert.Equal(t, "4242", byOrder.CardLast4)
	require.NotNil(t, byOrder.PaidAt)

	_, err = repo.FindByOrder(ctx, "ghost")
	assert.ErrorIs(t, err, dompayment.ErrNotFound)
}
