package memory

import (
	"context"
	"sync"

	domain "github.com/waxline/recordshop/internal/domain/coupon"
)

type CouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]*domain.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{coupons: make(map[string]*domain.Coupon)}
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCoupon(c), nil
}

func (r *CouponRepository) Save(ctx context.Context, c *domain.Coupon) error {
	_ = ctx
	if c == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.coupons[c.Code] = cloneCoupon(c)
	return nil
}

// Redeem increments usage under the write lock, so two redemptions racing for
// the last use of a limited coupon cannot both pass the guard.
func (r *CouponRepository) Redeem(ctx context.Context, code string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[code]
	if !ok {
		return domain.ErrNotFound
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return domain.ErrUsageExceeded
	}
	c.UsageCount++
	return nil
}

func (r *CouponRepository) Unredeem(ctx context.Context, code string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[code]
	if !ok {
		return domain.ErrNotFound
	}
	if c.UsageCount > 0 {
		c.UsageCount--
	}
	return nil
}

func cloneCoupon(c *domain.Coupon) *domain.Coupon {
	if c == nil {
		return nil
	}
	clone := *c
	if c.UsageLimit != nil {
		v := *c.UsageLimit
		clone.UsageLimit = &v
	}
	if c.MinOrderAmount != nil {
		v := *c.MinOrderAmount
		clone.MinOrderAmount = &v
	}
	if c.MaxDiscountAmount != nil {
		v := *c.MaxDiscountAmount
		clone.MaxDiscountAmount = &v
	}
	if c.ValidFrom != nil {
		t := *c.ValidFrom
		clone.ValidFrom = &t
	}
	if c.ValidUntil != nil {
		t := *c.ValidUntil
		clone.ValidUntil = &t
	}
	return &clone
}
