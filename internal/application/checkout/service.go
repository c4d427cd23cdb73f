package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	apppayment "github.com/waxline/recordshop/internal/application/payment"
	domcart "github.com/waxline/recordshop/internal/domain/cart"
	domcatalog "github.com/waxline/recordshop/internal/domain/catalog"
	domcoupon "github.com/waxline/recordshop/internal/domain/coupon"
	dominv "github.com/waxline/recordshop/internal/domain/inventory"
	domorder "github.com/waxline/recordshop/internal/domain/order"
	domoutbox "github.com/waxline/recordshop/internal/domain/outbox"
	"github.com/waxline/recordshop/internal/infrastructure/id"
	"github.com/waxline/recordshop/internal/observability"
	"github.com/waxline/recordshop/internal/pkg/clock"
	"github.com/waxline/recordshop/internal/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var (
	ErrUnknownShippingMethod   = errors.New("checkout: unknown shipping method")
	ErrShippingAddressRequired = errors.New("checkout: shipping address is required")
)

// numberRetries bounds the retry loop for order-number conflicts. The daily
// sequence is atomic, so a conflict only happens if numbers were seeded by
// hand; one re-allocation is normally enough.
const numberRetries = 3

// Config carries the pricing knobs of the workflow.
type Config struct {
	Currency          string
	OrderNumberPrefix string
	TaxRate           decimal.Decimal
	ShippingMethods   map[string]decimal.Decimal
}

// Service orchestrates cart-to-order conversion and the order's lifecycle
// transitions. Reservation, coupon redemption and order insert form an
// all-or-nothing sequence: each completed step registers a compensation that
// runs, LIFO, when a later step fails.
type Service struct {
	carts     domcart.Repository
	catalog   domcatalog.Repository
	coupons   domcoupon.Repository
	ledger    dominv.Repository
	orders    domorder.Repository
	sequence  domorder.NumberSequence
	payments  *apppayment.Service
	publisher domoutbox.Publisher

	idGenerator id.Generator
	clock       clock.Clock
	metrics     *observability.Metrics
	cfg         Config
}

func NewService(
	carts domcart.Repository,
	catalog domcatalog.Repository,
	coupons domcoupon.Repository,
	ledger dominv.Repository,
	orders domorder.Repository,
	sequence domorder.NumberSequence,
	payments *apppayment.Service,
	publisher domoutbox.Publisher,
	idGen id.Generator,
	clk clock.Clock,
	metrics *observability.Metrics,
	cfg Config,
) *Service {
	if metrics == nil {
		metrics = observability.NewNop()
	}
	return &Service{
		carts:       carts,
		catalog:     catalog,
		coupons:     coupons,
		ledger:      ledger,
		orders:      orders,
		sequence:    sequence,
		payments:    payments,
		publisher:   publisher,
		idGenerator: idGen,
		clock:       clk,
		metrics:     metrics,
		cfg:         cfg,
	}
}

// CreateOrderInput is the checkout request. Addresses are opaque JSON payloads
// captured verbatim onto the order.
type CreateOrderInput struct {
	Owner           domcart.Owner
	ShippingAddress json.RawMessage
	BillingAddress  json.RawMessage
	ShippingMethod  string
	CustomerNotes   string
}

// CreateOrder converts the owner's cart into a pending order.
//
// The sequence is the critical transaction of the system: every reservation
// made for this attempt is released if any later step fails, so a failed
// checkout leaves the ledger and the cart exactly as they were.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (_ *domorder.Order, err error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout"))

	ctx, span := otel.Tracer("recordshop.checkout").Start(ctx, "Checkout.CreateOrder")
	start := s.clock.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		s.metrics.CheckoutRequests.WithLabelValues(outcome).Inc()
		s.metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	}()

	if len(input.ShippingAddress) == 0 {
		return nil, ErrShippingAddressRequired
	}
	shippingPrice, ok := s.cfg.ShippingMethods[input.ShippingMethod]
	if !ok {
		return nil, ErrUnknownShippingMethod
	}

	c, err := s.carts.FindByOwner(ctx, input.Owner)
	if errors.Is(err, domcart.ErrNotFound) {
		return nil, domcart.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: load cart: %w", err)
	}
	if c.IsEmpty() {
		return nil, domcart.ErrEmpty
	}

	// Compensations for completed steps, run LIFO on failure.
	var compensations []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(compensations) - 1; i >= 0; i-- {
			compensations[i]()
		}
	}()

	// Reserve stock for every line, all or nothing.
	for _, line := range c.Lines {
		if rerr := s.ledger.Reserve(ctx, line.ProductID, line.Quantity); rerr != nil {
			var stockErr *dominv.InsufficientStockError
			if errors.As(rerr, &stockErr) {
				s.metrics.ReservationFailures.Inc()
				logger.Info("checkout_insufficient_stock",
					zap.String("product_id", stockErr.ProductID),
					zap.Int("requested", stockErr.Requested),
					zap.Int("available", stockErr.Available),
				)
			}
			return nil, rerr
		}
		productID, qty := line.ProductID, line.Quantity
		compensations = append(compensations, func() {
			if relErr := s.ledger.Release(context.WithoutCancel(ctx), productID, qty); relErr != nil {
				logger.Error("checkout_release_failed",
					zap.String("product_id", productID),
					zap.Error(relErr),
				)
			}
		})
	}

	now := s.clock.Now()
	subtotal := c.Subtotal()
	discount := decimal.Zero

	// Re-validate the coupon against the fresh subtotal; it may have expired
	// or dropped below its minimum since it was applied to the cart.
	if c.CouponCode != "" {
		cp, cerr := s.coupons.FindByCode(ctx, c.CouponCode)
		if cerr != nil {
			return nil, cerr
		}
		if verr := cp.ValidateFor(subtotal, now); verr != nil {
			return nil, verr
		}
		discount = cp.Discount(subtotal, now)

		if rerr := s.coupons.Redeem(ctx, c.CouponCode); rerr != nil {
			return nil, rerr
		}
		code := c.CouponCode
		compensations = append(compensations, func() {
			if uerr := s.coupons.Unredeem(context.WithoutCancel(ctx), code); uerr != nil {
				logger.Error("checkout_coupon_unredeem_failed",
					zap.String("coupon_code", code),
					zap.Error(uerr),
				)
			}
		})
	}

	tax := subtotal.Mul(s.cfg.TaxRate).Round(2)

	lines, err := s.snapshotLines(ctx, c)
	if err != nil {
		return nil, err
	}

	entity, err := s.insertWithFreshNumber(ctx, input, c, lines, subtotal, discount, shippingPrice, tax, now)
	if err != nil {
		return nil, err
	}

	if cerr := s.carts.Delete(ctx, input.Owner); cerr != nil {
		// The order is committed; a stale cart is an annoyance, not a reason
		// to fail the checkout.
		logger.Warn("checkout_cart_clear_failed", zap.String("order_id", entity.ID), zap.Error(cerr))
	}

	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, domorder.NewOrderCreatedEvent(entity)); perr != nil {
			logger.Warn("order_created_publish_failed", zap.String("order_id", entity.ID), zap.Error(perr))
		}
	}

	span.SetAttributes(
		attribute.String("order.id", entity.ID),
		attribute.String("order.number", entity.Number),
	)
	logger.Info("checkout_succeeded",
		zap.String("order_id", entity.ID),
		zap.String("order_number", entity.Number),
		zap.String("total", entity.Total.String()),
	)
	return entity, nil
}

// snapshotLines denormalizes the current catalog data onto order lines so the
// order renders correctly even after products change or disappear.
func (s *Service) snapshotLines(ctx context.Context, c *domcart.Cart) ([]domorder.Line, error) {
	lines := make([]domorder.Line, 0, len(c.Lines))
	for _, line := range c.Lines {
		product, err := s.catalog.Get(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("checkout: snapshot product %s: %w", line.ProductID, err)
		}
		lines = append(lines, domorder.Line{
			ProductID:  line.ProductID,
			Title:      product.Title,
			Artist:     product.Artist,
			Format:     product.Format,
			CoverImage: product.CoverImage,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			LineTotal:  line.Total(),
		})
	}
	return lines, nil
}

// insertWithFreshNumber allocates an order number from the atomic daily
// sequence and inserts the order, re-allocating on a number conflict.
func (s *Service) insertWithFreshNumber(ctx context.Context, input CreateOrderInput, c *domcart.Cart,
	lines []domorder.Line, subtotal, discount, shipping, tax decimal.Decimal, now time.Time,
) (*domorder.Order, error) {
	for attempt := 0; attempt < numberRetries; attempt++ {
		seq, err := s.sequence.Next(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("checkout: order number: %w", err)
		}
		number := domorder.FormatNumber(s.cfg.OrderNumberPrefix, now, seq)

		entity, err := domorder.New(s.idGenerator.NewID(), number, c.UserID, lines,
			subtotal, discount, shipping, tax, s.cfg.Currency, now)
		if err != nil {
			return nil, err
		}
		entity.CouponCode = c.CouponCode
		entity.ShippingAddress = input.ShippingAddress
		entity.BillingAddress = input.BillingAddress
		entity.ShippingMethod = input.ShippingMethod
		entity.CustomerNotes = input.CustomerNotes

		err = s.orders.Insert(ctx, entity)
		if err == nil {
			return entity, nil
		}
		if !errors.Is(err, domorder.ErrConflict) {
			return nil, fmt.Errorf("checkout: insert order: %w", err)
		}
	}
	return nil, fmt.Errorf("checkout: insert order: %w", domorder.ErrConflict)
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, orderID string) (*domorder.Order, error) {
	return s.orders.Get(ctx, orderID)
}

// Cancel releases the order's reservations and cancels it. When a captured
// payment exists the charge is refunded instead of orphaned, and the order
// lands in refunded rather than cancelled.
func (s *Service) Cancel(ctx context.Context, orderID string) (*domorder.Order, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout"))

	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !entity.CanBeCancelled() {
		return nil, domorder.ErrInvalidStateTransition
	}

	// Refund before touching the ledger: a declined refund leaves the order
	// cancellable and its holds intact, so the retry releases exactly once.
	refunded := false
	if s.payments != nil {
		refunded, err = s.payments.RefundOrder(ctx, entity.ID)
		if err != nil {
			return nil, err
		}
	}

	// A failed-payment callback may have returned the holds already.
	if !entity.StockReleased {
		s.releaseLines(ctx, entity, logger)
		entity.StockReleased = true
	}

	now := s.clock.Now()
	if refunded {
		if err := entity.MarkRefunded(now); err != nil {
			return nil, err
		}
	} else {
		if err := entity.MarkCancelled(now); err != nil {
			return nil, err
		}
	}
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("checkout: update order: %w", err)
	}

	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, domorder.NewOrderCancelledEvent(entity, refunded)); perr != nil {
			logger.Warn("order_cancelled_publish_failed", zap.String("order_id", entity.ID), zap.Error(perr))
		}
	}

	logger.Info("order_cancelled",
		zap.String("order_id", entity.ID),
		zap.Bool("refunded", refunded),
	)
	return entity, nil
}

// Ship converts the order's reservations into permanent deductions and moves
// it to shipped.
func (s *Service) Ship(ctx context.Context, orderID string) (*domorder.Order, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "checkout"))

	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := entity.MarkShipped(s.clock.Now()); err != nil {
		return nil, err
	}

	// Convert the holds into permanent deductions, all or nothing: a failed
	// line puts the deductions already made back as reservations, so the
	// order stays in processing and a retry deducts each line exactly once.
	var deducted []domorder.Line
	for _, line := range entity.Lines {
		if derr := s.ledger.Deduct(ctx, line.ProductID, line.Quantity); derr != nil {
			s.restoreDeductions(ctx, deducted, logger)
			return nil, fmt.Errorf("checkout: deduct %s: %w", line.ProductID, derr)
		}
		deducted = append(deducted, line)
	}

	if err := s.orders.Update(ctx, entity); err != nil {
		s.restoreDeductions(ctx, deducted, logger)
		return nil, fmt.Errorf("checkout: update order: %w", err)
	}

	for _, line := range entity.Lines {
		s.publishLowStock(ctx, line.ProductID)
	}

	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, domorder.NewOrderShippedEvent(entity)); perr != nil {
			logger.Warn("order_shipped_publish_failed", zap.String("order_id", entity.ID), zap.Error(perr))
		}
	}
	return entity, nil
}

// Deliver marks a shipped order delivered.
func (s *Service) Deliver(ctx context.Context, orderID string) (*domorder.Order, error) {
	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := entity.MarkDelivered(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("checkout: update order: %w", err)
	}
	return entity, nil
}

// UpdateStatus is the admin entry point for lifecycle transitions.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status domorder.Status) (*domorder.Order, error) {
	switch status {
	case domorder.StatusProcessing:
		entity, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := entity.MarkProcessing(s.clock.Now()); err != nil {
			return nil, err
		}
		if err := s.orders.Update(ctx, entity); err != nil {
			return nil, fmt.Errorf("checkout: update order: %w", err)
		}
		return entity, nil
	case domorder.StatusShipped:
		return s.Ship(ctx, orderID)
	case domorder.StatusDelivered:
		return s.Deliver(ctx, orderID)
	case domorder.StatusCancelled:
		return s.Cancel(ctx, orderID)
	default:
		return nil, domorder.ErrInvalidStateTransition
	}
}

func (s *Service) releaseLines(ctx context.Context, entity *domorder.Order, logger *zap.Logger) {
	for _, line := range entity.Lines {
		if err := s.ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
			logger.Error("order_release_failed",
				zap.String("order_id", entity.ID),
				zap.String("product_id", line.ProductID),
				zap.Error(err),
			)
		}
	}
}

// restoreDeductions undoes completed deductions in reverse order, re-adding
// the stock and re-establishing the reservation it came from.
func (s *Service) restoreDeductions(ctx context.Context, lines []domorder.Line, logger *zap.Logger) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if err := s.ledger.AddStock(ctx, line.ProductID, line.Quantity); err != nil {
			logger.Error("order_deduct_restore_failed",
				zap.String("product_id", line.ProductID),
				zap.Error(err),
			)
			continue
		}
		if err := s.ledger.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
			logger.Error("order_hold_restore_failed",
				zap.String("product_id", line.ProductID),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) publishLowStock(ctx context.Context, productID string) {
	if s.publisher == nil {
		return
	}
	rec, err := s.ledger.Get(ctx, productID)
	if err != nil || !rec.LowStock() {
		return
	}
	_ = s.publisher.Publish(ctx, dominv.NewLowStockEvent(rec))
}
