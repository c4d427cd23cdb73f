package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func percentCoupon(value int64) *Coupon {
	return &Coupon{
		Code:   "PCT",
		Type:   TypePercentage,
		Value:  decimal.NewFromInt(value),
		Active: true,
	}
}

func TestIsValidWindow(t *testing.T) {
	from := testNow.Add(-time.Hour)
	until := testNow.Add(time.Hour)

	c := percentCoupon(10)
	c.ValidFrom = &from
	c.ValidUntil = &until

	assert.True(t, c.IsValid(testNow))
	assert.False(t, c.IsValid(testNow.Add(-2*time.Hour)))
	assert.False(t, c.IsValid(testNow.Add(2*time.Hour)))

	c.Active = false
	assert.False(t, c.IsValid(testNow))
}

func TestIsValidUsageLimit(t *testing.T) {
	limit := 2
	c := percentCoupon(10)
	c.UsageLimit = &limit

	c.UsageCount = 1
	assert.True(t, c.IsValid(testNow))

	c.UsageCount = 2
	assert.False(t, c.IsValid(testNow))
}

func TestPercentageDiscountRounding(t *testing.T) {
	c := percentCoupon(10)

	// 10% of 33.33 is 3.333, rounded half-up to 3.33.
	got := c.Discount(decimal.NewFromFloat(33.33), testNow)
	assert.True(t, got.Equal(decimal.NewFromFloat(3.33)), got.String())

	// 10% of 33.35 is 3.335, rounded half-up to 3.34.
	got = c.Discount(decimal.NewFromFloat(33.35), testNow)
	assert.True(t, got.Equal(decimal.NewFromFloat(3.34)), got.String())
}

func TestDiscountCap(t *testing.T) {
	maxDiscount := decimal.NewFromInt(5)
	c := percentCoupon(50)
	c.MaxDiscountAmount = &maxDiscount

	got := c.Discount(decimal.NewFromInt(100), testNow)
	assert.True(t, got.Equal(maxDiscount), got.String())
}

func TestFixedDiscountClampedToOrderAmount(t *testing.T) {
	c := &Coupon{
		Code:   "FIXED",
		Type:   TypeFixed,
		Value:  decimal.NewFromInt(20),
		Active: true,
	}

	got := c.Discount(decimal.NewFromInt(12), testNow)
	assert.True(t, got.Equal(decimal.NewFromInt(12)), got.String())
}

func TestDiscountBelowMinimumIsZero(t *testing.T) {
	min := decimal.NewFromInt(50)
	c := percentCoupon(10)
	c.MinOrderAmount = &min

	got := c.Discount(decimal.NewFromInt(30), testNow)
	assert.True(t, got.IsZero())
}

func TestValidateFor(t *testing.T) {
	min := decimal.NewFromInt(15)
	limit := 1

	tests := []struct {
		name   string
		mutate func(*Coupon)
		amount decimal.Decimal
		want   error
	}{
		{
			name:   "ok",
			mutate: func(c *Coupon) {},
			amount: decimal.NewFromInt(20),
			want:   nil,
		},
		{
			name:   "below minimum",
			mutate: func(c *Coupon) { c.MinOrderAmount = &min },
			amount: decimal.NewFromInt(10),
			want:   ErrMinimumNotMet,
		},
		{
			name:   "inactive",
			mutate: func(c *Coupon) { c.Active = false },
			amount: decimal.NewFromInt(20),
			want:   ErrInvalid,
		},
		{
			name: "usage exhausted",
			mutate: func(c *Coupon) {
				c.UsageLimit = &limit
				c.UsageCount = 1
			},
			amount: decimal.NewFromInt(20),
			want:   ErrUsageExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := percentCoupon(10)
			tt.mutate(c)
			err := c.ValidateFor(tt.amount, testNow)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
