package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	domcart "github.com/waxline/recordshop/internal/domain/cart"
	domcatalog "github.com/waxline/recordshop/internal/domain/catalog"
	domcoupon "github.com/waxline/recordshop/internal/domain/coupon"
	"github.com/waxline/recordshop/internal/infrastructure/id"
	"github.com/waxline/recordshop/internal/pkg/clock"
	"github.com/waxline/recordshop/internal/pkg/logging"
	"go.uber.org/zap"
)

// View is the cart plus its computed totals. Discount is always recomputed
// from the attached coupon code; a coupon that has since expired contributes
// zero here and is rejected outright at checkout.
type View struct {
	Cart     *domcart.Cart
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Service implements the shopping-cart operations. It owns no checkout logic;
// conversion to an order belongs to the checkout workflow.
type Service struct {
	carts       domcart.Repository
	catalog     domcatalog.Repository
	coupons     domcoupon.Repository
	idGenerator id.Generator
	clock       clock.Clock
	guestTTL    time.Duration
}

func NewService(carts domcart.Repository, catalog domcatalog.Repository, coupons domcoupon.Repository,
	idGen id.Generator, clk clock.Clock, guestTTL time.Duration,
) *Service {
	return &Service{
		carts:       carts,
		catalog:     catalog,
		coupons:     coupons,
		idGenerator: idGen,
		clock:       clk,
		guestTTL:    guestTTL,
	}
}

// Get returns the owner's cart with totals. A missing cart reads as an empty
// one rather than an error.
func (s *Service) Get(ctx context.Context, owner domcart.Owner) (*View, error) {
	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

func (s *Service) AddItem(ctx context.Context, owner domcart.Owner, productID string, qty int) (*View, error) {
	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := c.AddItem(productID, qty, product.EffectivePrice(), s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}

	logging.FromContext(ctx).Info("cart_item_added",
		zap.String("cart_id", c.ID),
		zap.String("product_id", productID),
		zap.Int("quantity", qty),
	)
	return s.view(ctx, c)
}

func (s *Service) UpdateItem(ctx context.Context, owner domcart.Owner, productID string, qty int) (*View, error) {
	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateItem(productID, qty, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return s.view(ctx, c)
}

func (s *Service) RemoveItem(ctx context.Context, owner domcart.Owner, productID string) (*View, error) {
	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(productID, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return s.view(ctx, c)
}

func (s *Service) Clear(ctx context.Context, owner domcart.Owner) error {
	c, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	c.Clear(s.clock.Now())
	if err := s.carts.Save(ctx, c); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}

// ApplyCoupon validates the code against the current subtotal and attaches it.
// Usage is only consumed at order-commit time, never here.
func (s *Service) ApplyCoupon(ctx context.Context, owner domcart.Owner, code string) (*View, error) {
	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	cp, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := cp.ValidateFor(c.Subtotal(), s.clock.Now()); err != nil {
		return nil, err
	}

	c.ApplyCoupon(code, s.clock.Now())
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}

	logging.FromContext(ctx).Info("cart_coupon_applied",
		zap.String("cart_id", c.ID),
		zap.String("coupon_code", code),
	)
	return s.view(ctx, c)
}

func (s *Service) RemoveCoupon(ctx context.Context, owner domcart.Owner) (*View, error) {
	c, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	c.RemoveCoupon(s.clock.Now())
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return s.view(ctx, c)
}

// load fetches the owner's cart, creating an empty one when none exists.
// Guest carts receive an expiry on creation.
func (s *Service) load(ctx context.Context, owner domcart.Owner) (*domcart.Cart, error) {
	if !owner.Valid() {
		return nil, domcart.ErrNoOwner
	}

	c, err := s.carts.FindByOwner(ctx, owner)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domcart.ErrNotFound) {
		return nil, fmt.Errorf("cart: load: %w", err)
	}

	now := s.clock.Now()
	c, err = domcart.New(s.idGenerator.NewID(), owner.UserID, owner.SessionID, now)
	if err != nil {
		return nil, err
	}
	if owner.SessionID != "" {
		expires := now.Add(s.guestTTL)
		c.ExpiresAt = &expires
	}
	return c, nil
}

func (s *Service) view(ctx context.Context, c *domcart.Cart) (*View, error) {
	subtotal := c.Subtotal()
	discount := decimal.Zero

	if c.CouponCode != "" {
		cp, err := s.coupons.FindByCode(ctx, c.CouponCode)
		switch {
		case err == nil:
			discount = cp.Discount(subtotal, s.clock.Now())
		case errors.Is(err, domcoupon.ErrNotFound):
			// Coupon deleted since it was applied; render without discount.
		default:
			return nil, fmt.Errorf("cart: coupon lookup: %w", err)
		}
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return &View{Cart: c, Subtotal: subtotal, Discount: discount, Total: total}, nil
}
