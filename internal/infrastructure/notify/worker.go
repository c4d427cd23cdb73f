package notify

import (
	"context"

	dominv "github.com/waxline/recordshop/internal/domain/inventory"
	domorder "github.com/waxline/recordshop/internal/domain/order"
	domoutbox "github.com/waxline/recordshop/internal/domain/outbox"
	dompayment "github.com/waxline/recordshop/internal/domain/payment"
	"github.com/waxline/recordshop/internal/pkg/logging"
	"go.uber.org/zap"
)

// Worker is the notification collaborator's seam. It subscribes to the events
// the workflow publishes and, in this deployment, records them in the log;
// a real deployment would hand them to the email service.
type Worker struct {
	subscriber domoutbox.Subscriber
}

func New(subscriber domoutbox.Subscriber) *Worker {
	return &Worker{subscriber: subscriber}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), w.handleOrderCreated)
	w.subscriber.Subscribe(domorder.OrderShippedEvent{}.EventName(), w.handleOrderShipped)
	w.subscriber.Subscribe(domorder.OrderCancelledEvent{}.EventName(), w.handleOrderCancelled)
	w.subscriber.Subscribe(dompayment.PaymentFailedEvent{}.EventName(), w.handlePaymentFailed)
	w.subscriber.Subscribe(dominv.LowStockEvent{}.EventName(), w.handleLowStock)
}

func (w *Worker) handleOrderCreated(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCreatedEvent)
	if !ok {
		return nil
	}
	logging.FromContext(ctx).Info("notify_order_created",
		zap.String("order_id", evt.OrderID),
		zap.String("order_number", evt.Number),
		zap.String("total", evt.Total.String()),
	)
	return nil
}

func (w *Worker) handleOrderShipped(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderShippedEvent)
	if !ok {
		return nil
	}
	logging.FromContext(ctx).Info("notify_order_shipped",
		zap.String("order_id", evt.OrderID),
		zap.String("order_number", evt.Number),
	)
	return nil
}

func (w *Worker) handleOrderCancelled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.OrderCancelledEvent)
	if !ok {
		return nil
	}
	logging.FromContext(ctx).Info("notify_order_cancelled",
		zap.String("order_id", evt.OrderID),
		zap.Bool("refunded", evt.Refunded),
	)
	return nil
}

func (w *Worker) handlePaymentFailed(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dompayment.PaymentFailedEvent)
	if !ok {
		return nil
	}
	logging.FromContext(ctx).Warn("notify_payment_failed",
		zap.String("payment_id", evt.PaymentID),
		zap.String("order_id", evt.OrderID),
		zap.String("reason", evt.Reason),
	)
	return nil
}

func (w *Worker) handleLowStock(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominv.LowStockEvent)
	if !ok {
		return nil
	}
	logging.FromContext(ctx).Warn("notify_low_stock",
		zap.String("product_id", evt.ProductID),
		zap.Int("quantity", evt.Quantity),
		zap.Int("threshold", evt.Threshold),
	)
	return nil
}
