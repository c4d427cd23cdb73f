package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSucceededEvent is emitted after a confirmation callback marks a
// payment captured and the order advanced to processing.
type PaymentSucceededEvent struct {
	PaymentID  string
	OrderID    string
	Amount     decimal.Decimal
	Currency   string
	OccurredAt time.Time
}

func (PaymentSucceededEvent) EventName() string { return "payment.succeeded" }

func NewPaymentSucceededEvent(p *Payment) PaymentSucceededEvent {
	return PaymentSucceededEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		Amount:     p.Amount,
		Currency:   p.Currency,
		OccurredAt: time.Now().UTC(),
	}
}

// PaymentFailedEvent is emitted after a confirmed decline, once the order's
// reservations have been released.
type PaymentFailedEvent struct {
	PaymentID  string
	OrderID    string
	Reason     string
	OccurredAt time.Time
}

func (PaymentFailedEvent) EventName() string { return "payment.failed" }

func NewPaymentFailedEvent(p *Payment, reason string) PaymentFailedEvent {
	return PaymentFailedEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
