package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domcart "github.com/waxline/recordshop/internal/domain/cart"
	domcatalog "github.com/waxline/recordshop/internal/domain/catalog"
	domcoupon "github.com/waxline/recordshop/internal/domain/coupon"
	"github.com/waxline/recordshop/internal/infrastructure/id"
	"github.com/waxline/recordshop/internal/infrastructure/memory"
	"github.com/waxline/recordshop/internal/pkg/clock"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

const guestTTL = 72 * time.Hour

func newService(t *testing.T) (*Service, *memory.CouponRepository) {
	t.Helper()

	sale := decimal.NewFromFloat(19.99)
	catalog := memory.NewCatalogRepository(
		&domcatalog.Product{ID: "p1", Title: "Kind of Blue", ListPrice: decimal.NewFromFloat(27.99), SalePrice: &sale},
		&domcatalog.Product{ID: "p2", Title: "Blue Train", ListPrice: decimal.NewFromFloat(24.99)},
	)

	coupons := memory.NewCouponRepository()
	minOrder := decimal.NewFromInt(15)
	require.NoError(t, coupons.Save(context.Background(), &domcoupon.Coupon{
		Code:           "WELCOME10",
		Type:           domcoupon.TypePercentage,
		Value:          decimal.NewFromInt(10),
		MinOrderAmount: &minOrder,
		Active:         true,
	}))

	svc := NewService(memory.NewCartRepository(), catalog, coupons,
		id.NewUUIDGenerator(), &clock.Fixed{Instant: testNow}, guestTTL)
	return svc, coupons
}

func TestGetReturnsEmptyCartWhenNoneExists(t *testing.T) {
	svc, _ := newService(t)

	view, err := svc.Get(context.Background(), domcart.Owner{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, view.Cart.IsEmpty())
	assert.True(t, view.Total.IsZero())
}

func TestGetRequiresOwner(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background(), domcart.Owner{})
	assert.ErrorIs(t, err, domcart.ErrNoOwner)
}

func TestAddItemCapturesEffectivePrice(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := domcart.Owner{UserID: "u1"}

	// p1 is on sale; the sale price is captured on the line.
	view, err := svc.AddItem(ctx, owner, "p1", 2)
	require.NoError(t, err)
	require.Len(t, view.Cart.Lines, 1)
	assert.True(t, view.Cart.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(19.99)))
	assert.True(t, view.Subtotal.Equal(decimal.NewFromFloat(39.98)), view.Subtotal.String())
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.AddItem(context.Background(), domcart.Owner{UserID: "u1"}, "missing", 1)
	assert.ErrorIs(t, err, domcatalog.ErrNotFound)
}

func TestGuestCartGetsExpiry(t *testing.T) {
	svc, _ := newService(t)

	view, err := svc.AddItem(context.Background(), domcart.Owner{SessionID: "s1"}, "p2", 1)
	require.NoError(t, err)
	require.NotNil(t, view.Cart.ExpiresAt)
	assert.Equal(t, testNow.Add(guestTTL), *view.Cart.ExpiresAt)
}

func TestUserCartNeverExpires(t *testing.T) {
	svc, _ := newService(t)

	view, err := svc.AddItem(context.Background(), domcart.Owner{UserID: "u1"}, "p2", 1)
	require.NoError(t, err)
	assert.Nil(t, view.Cart.ExpiresAt)
}

func TestApplyCoupon(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := domcart.Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "p2", 1)
	require.NoError(t, err)

	view, err := svc.ApplyCoupon(ctx, owner, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", view.Cart.CouponCode)
	// 10% of 24.99 rounded half-up.
	assert.True(t, view.Discount.Equal(decimal.NewFromFloat(2.50)), view.Discount.String())
	assert.True(t, view.Total.Equal(decimal.NewFromFloat(22.49)), view.Total.String())
}

func TestApplyCouponBelowMinimum(t *testing.T) {
	svc, _ := newService(t)

	// An empty cart cannot meet the 15.00 order minimum.
	_, err := svc.ApplyCoupon(context.Background(), domcart.Owner{UserID: "u1"}, "WELCOME10")
	assert.ErrorIs(t, err, domcoupon.ErrMinimumNotMet)
}

func TestApplyCouponUnknownCode(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.ApplyCoupon(context.Background(), domcart.Owner{UserID: "u1"}, "NOPE")
	assert.ErrorIs(t, err, domcoupon.ErrNotFound)
}

func TestRemoveCoupon(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := domcart.Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "p2", 1)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, owner, "WELCOME10")
	require.NoError(t, err)

	view, err := svc.RemoveCoupon(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Cart.CouponCode)
	assert.True(t, view.Discount.IsZero())
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := domcart.Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, "p2", 1)
	require.NoError(t, err)

	view, err := svc.UpdateItem(ctx, owner, "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Cart.Lines[0].Quantity)

	view, err = svc.RemoveItem(ctx, owner, "p2")
	require.NoError(t, err)
	require.Len(t, view.Cart.Lines, 1)

	_, err = svc.RemoveItem(ctx, owner, "p2")
	assert.ErrorIs(t, err, domcart.ErrLineNotFound)
}

func TestClear(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := domcart.Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "p1", 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, owner))

	view, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.True(t, view.Cart.IsEmpty())
}

func TestViewRecomputesDiscountFromCurrentCoupon(t *testing.T) {
	svc, coupons := newService(t)
	ctx := context.Background()
	owner := domcart.Owner{UserID: "u1"}

	_, err := svc.AddItem(ctx, owner, "p2", 1)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, owner, "WELCOME10")
	require.NoError(t, err)

	// Deactivating the coupon after it was applied drops the discount on the
	// next read; the attached code is rejected for real at checkout.
	cp, err := coupons.FindByCode(ctx, "WELCOME10")
	require.NoError(t, err)
	cp.Active = false
	require.NoError(t, coupons.Save(ctx, cp))

	view, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", view.Cart.CouponCode)
	assert.True(t, view.Discount.IsZero())
	assert.True(t, view.Total.Equal(view.Subtotal))
}
