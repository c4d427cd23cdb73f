package coupon

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("coupon: not found")
	ErrInvalid       = errors.New("coupon: not valid")
	ErrMinimumNotMet = errors.New("coupon: order below minimum amount")
	ErrUsageExceeded = errors.New("coupon: usage limit reached")
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

// Coupon is a discount code with an optional validity window, usage limit,
// order minimum and discount cap.
type Coupon struct {
	Code              string
	Type              Type
	Value             decimal.Decimal
	MinOrderAmount    *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	UsageLimit        *int
	UsageCount        int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	Active            bool
}

// IsValid reports whether the coupon can be redeemed at the given instant:
// active, inside its validity window and under its usage limit.
func (c *Coupon) IsValid(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false
	}
	return true
}

// CanApplyTo reports whether the coupon is valid and the order amount meets
// the minimum, when one is set.
func (c *Coupon) CanApplyTo(orderAmount decimal.Decimal, now time.Time) bool {
	if !c.IsValid(now) {
		return false
	}
	if c.MinOrderAmount != nil && orderAmount.LessThan(*c.MinOrderAmount) {
		return false
	}
	return true
}

// Discount computes the discount for orderAmount: zero when the coupon does
// not apply, otherwise the type-specific base discount clamped to the cap and
// to the order amount, rounded half-up to two decimals.
func (c *Coupon) Discount(orderAmount decimal.Decimal, now time.Time) decimal.Decimal {
	if !c.CanApplyTo(orderAmount, now) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		discount = orderAmount.Mul(c.Value).Div(decimal.NewFromInt(100))
	case TypeFixed:
		discount = c.Value
	default:
		return decimal.Zero
	}

	if c.MaxDiscountAmount != nil && discount.GreaterThan(*c.MaxDiscountAmount) {
		discount = *c.MaxDiscountAmount
	}
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount.Round(2)
}

// ValidateFor returns a sentinel error describing why the coupon cannot be
// applied to orderAmount, or nil when it can.
func (c *Coupon) ValidateFor(orderAmount decimal.Decimal, now time.Time) error {
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return ErrUsageExceeded
	}
	if !c.IsValid(now) {
		return ErrInvalid
	}
	if c.MinOrderAmount != nil && orderAmount.LessThan(*c.MinOrderAmount) {
		return ErrMinimumNotMet
	}
	return nil
}
