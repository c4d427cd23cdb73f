package coupon

import "context"

// Repository is the persistence port for coupons.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Save(ctx context.Context, c *Coupon) error

	// Redeem atomically increments the usage count, failing with
	// ErrUsageExceeded once the usage limit is reached. Concurrent
	// redemptions must never overrun the limit.
	Redeem(ctx context.Context, code string) error

	// Unredeem compensates a Redeem whose checkout attempt failed after the
	// increment, floored at zero.
	Unredeem(ctx context.Context, code string) error
}
