package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted after a checkout commits. Notification delivery
// is a collaborator's responsibility; the workflow only publishes.
type OrderCreatedEvent struct {
	OrderID    string
	Number     string
	UserID     string
	Total      decimal.Decimal
	Currency   string
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		Number:     o.Number,
		UserID:     o.UserID,
		Total:      o.Total,
		Currency:   o.Currency,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderShippedEvent is emitted once stock has been deducted and the order left
// the warehouse.
type OrderShippedEvent struct {
	OrderID    string
	Number     string
	OccurredAt time.Time
}

func (OrderShippedEvent) EventName() string { return "order.shipped" }

func NewOrderShippedEvent(o *Order) OrderShippedEvent {
	return OrderShippedEvent{OrderID: o.ID, Number: o.Number, OccurredAt: time.Now().UTC()}
}

// OrderCancelledEvent is emitted after reservations have been released and, if
// a charge was captured, a refund requested.
type OrderCancelledEvent struct {
	OrderID    string
	Number     string
	Refunded   bool
	OccurredAt time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order, refunded bool) OrderCancelledEvent {
	return OrderCancelledEvent{OrderID: o.ID, Number: o.Number, Refunded: refunded, OccurredAt: time.Now().UTC()}
}
