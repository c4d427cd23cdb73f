package payment

import (
	"context"
	"errors"
	"fmt"

	dominv "github.com/waxline/recordshop/internal/domain/inventory"
	domorder "github.com/waxline/recordshop/internal/domain/order"
	domoutbox "github.com/waxline/recordshop/internal/domain/outbox"
	domain "github.com/waxline/recordshop/internal/domain/payment"
	"github.com/waxline/recordshop/internal/infrastructure/id"
	"github.com/waxline/recordshop/internal/observability"
	"github.com/waxline/recordshop/internal/pkg/clock"
	"github.com/waxline/recordshop/internal/pkg/logging"
	"go.uber.org/zap"
)

// Outcome is the processor's verdict delivered through the webhook.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

var ErrUnknownOutcome = errors.New("payment: unknown webhook outcome")

// IntentResult is returned to the frontend to complete the card flow.
type IntentResult struct {
	PaymentID       string
	PaymentIntentID string
	ClientSecret    string
}

// ConfirmInput is the payload of a processor confirmation callback. Only the
// display-safe card fields ever reach this service.
type ConfirmInput struct {
	IntentID  string
	Outcome   Outcome
	CardBrand string
	CardLast4 string
	Reason    string
}

// Service is the gateway adapter between the order workflow and the card
// processor. Confirmation handling is idempotent: callbacks for a payment
// already in a terminal status are treated as replays and change nothing.
type Service struct {
	payments  domain.Repository
	orders    domorder.Repository
	ledger    dominv.Repository
	processor domain.Processor
	publisher domoutbox.Publisher

	idGenerator id.Generator
	clock       clock.Clock
	metrics     *observability.Metrics
}

func NewService(
	payments domain.Repository,
	orders domorder.Repository,
	ledger dominv.Repository,
	processor domain.Processor,
	publisher domoutbox.Publisher,
	idGen id.Generator,
	clk clock.Clock,
	metrics *observability.Metrics,
) *Service {
	if metrics == nil {
		metrics = observability.NewNop()
	}
	return &Service{
		payments:    payments,
		orders:      orders,
		ledger:      ledger,
		processor:   processor,
		publisher:   publisher,
		idGenerator: idGen,
		clock:       clk,
		metrics:     metrics,
	}
}

// CreateIntent opens a processor-side payment intent for the order total.
// Nothing else mutates: an intent-creation failure leaves order, ledger and
// payments untouched, and the checkout reservations stay in place for retry.
func (s *Service) CreateIntent(ctx context.Context, orderID string) (*IntentResult, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "payment"))

	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if entity.Status != domorder.StatusPending {
		return nil, domain.ErrOrderNotPayable
	}
	if !entity.Total.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	intent, err := s.processor.CreateIntent(ctx, entity.ID, entity.Total, entity.Currency)
	if err != nil {
		logger.Error("payment_intent_failed", zap.String("order_id", entity.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: create intent: %w", domain.ErrProcessor, err)
	}

	p, err := domain.New(s.idGenerator.NewID(), entity.ID, intent.ID, entity.Total, entity.Currency, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.payments.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("payment: insert: %w", err)
	}

	logger.Info("payment_intent_created",
		zap.String("order_id", entity.ID),
		zap.String("payment_id", p.ID),
		zap.String("intent_id", intent.ID),
	)
	return &IntentResult{
		PaymentID:       p.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// Confirm applies a processor callback. A success advances the order to
// processing; a confirmed failure releases the order's reservations, the
// compensating transaction for a checkout whose payment never landed.
func (s *Service) Confirm(ctx context.Context, input ConfirmInput) (*domain.Payment, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "payment"))

	p, err := s.payments.FindByIntent(ctx, input.IntentID)
	if err != nil {
		s.metrics.PaymentWebhooks.WithLabelValues("unknown_intent").Inc()
		return nil, err
	}

	// Replayed or out-of-order callback for a settled payment: no-op.
	if p.IsTerminal() {
		s.metrics.PaymentWebhooks.WithLabelValues("replay").Inc()
		logger.Info("payment_webhook_replay",
			zap.String("payment_id", p.ID),
			zap.String("status", string(p.Status)),
		)
		return p, nil
	}

	now := s.clock.Now()
	switch input.Outcome {
	case OutcomeSucceeded:
		if err := p.MarkSucceeded(input.CardBrand, input.CardLast4, now); err != nil {
			return nil, err
		}

		entity, err := s.orders.Get(ctx, p.OrderID)
		if err != nil {
			return nil, err
		}
		// An interrupted earlier callback may have advanced the order without
		// settling the payment; the retried callback converges instead of
		// tripping over the state machine.
		if entity.Status != domorder.StatusProcessing {
			if err := entity.MarkProcessing(now); err != nil {
				return nil, err
			}
			if err := s.orders.Update(ctx, entity); err != nil {
				return nil, fmt.Errorf("payment: update order: %w", err)
			}
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("payment: update: %w", err)
		}

		s.metrics.PaymentWebhooks.WithLabelValues("succeeded").Inc()
		if s.publisher != nil {
			_ = s.publisher.Publish(ctx, domain.NewPaymentSucceededEvent(p))
		}
		logger.Info("payment_succeeded",
			zap.String("payment_id", p.ID),
			zap.String("order_id", p.OrderID),
		)
		return p, nil

	case OutcomeFailed:
		if err := p.MarkFailed(now); err != nil {
			return nil, err
		}
		if err := s.payments.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("payment: update: %w", err)
		}

		// The stock layer succeeded at checkout but the charge did not:
		// give the held units back.
		s.releaseOrderReservations(ctx, p.OrderID, logger)

		s.metrics.PaymentWebhooks.WithLabelValues("failed").Inc()
		if s.publisher != nil {
			_ = s.publisher.Publish(ctx, domain.NewPaymentFailedEvent(p, input.Reason))
		}
		logger.Warn("payment_failed",
			zap.String("payment_id", p.ID),
			zap.String("order_id", p.OrderID),
			zap.String("reason", input.Reason),
		)
		return p, nil

	default:
		return nil, ErrUnknownOutcome
	}
}

// Refund reverses a captured charge on admin request and moves the order to
// refunded.
func (s *Service) Refund(ctx context.Context, paymentID string) (*domain.Payment, error) {
	p, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusSucceeded {
		return nil, domain.ErrNotRefundable
	}

	if err := s.processor.Refund(ctx, p.IntentID, p.Amount); err != nil {
		return nil, fmt.Errorf("%w: refund: %w", domain.ErrProcessor, err)
	}

	now := s.clock.Now()
	if err := p.MarkRefunded(now); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("payment: update: %w", err)
	}

	entity, err := s.orders.Get(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if err := entity.MarkRefunded(now); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("payment: update order: %w", err)
	}

	logging.FromContext(ctx).Info("payment_refunded",
		zap.String("payment_id", p.ID),
		zap.String("order_id", p.OrderID),
	)
	return p, nil
}

// RefundOrder refunds the order's captured payment, if any, without touching
// the order itself. The cancellation workflow owns the order transition. It
// reports whether a refund was actually performed.
func (s *Service) RefundOrder(ctx context.Context, orderID string) (bool, error) {
	p, err := s.payments.FindByOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if p.Status != domain.StatusSucceeded {
		return false, nil
	}

	if err := s.processor.Refund(ctx, p.IntentID, p.Amount); err != nil {
		return false, fmt.Errorf("%w: refund: %w", domain.ErrProcessor, err)
	}
	if err := p.MarkRefunded(s.clock.Now()); err != nil {
		return false, err
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return false, fmt.Errorf("payment: update: %w", err)
	}
	return true, nil
}

// FindByOrder exposes the order's latest payment attempt to the API layer.
func (s *Service) FindByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	return s.payments.FindByOrder(ctx, orderID)
}

func (s *Service) releaseOrderReservations(ctx context.Context, orderID string, logger *zap.Logger) {
	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		logger.Error("payment_release_lookup_failed", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	if entity.StockReleased {
		return
	}
	for _, line := range entity.Lines {
		if err := s.ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
			logger.Error("payment_release_failed",
				zap.String("order_id", orderID),
				zap.String("product_id", line.ProductID),
				zap.Error(err),
			)
		}
	}

	// Record the release on the order so a later cancellation does not hand
	// the same units back a second time.
	entity.StockReleased = true
	if err := s.orders.Update(ctx, entity); err != nil {
		logger.Error("payment_release_record_failed", zap.String("order_id", orderID), zap.Error(err))
	}
}
