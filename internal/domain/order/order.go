package order

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: already exists")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrNoLines                = errors.New("order: at least one line is required")
	ErrNegativeAmount         = errors.New("order: amounts must be zero or greater")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Line is an immutable snapshot of a cart line taken at order-creation time.
// Title, artist, format and cover are denormalized so historical orders render
// correctly even after the product is edited or deleted.
type Line struct {
	ProductID  string
	Title      string
	Artist     string
	Format     string
	CoverImage string
	Quantity   int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

// Order is the immutable monetary snapshot of a checkout. Addresses are
// stored as the JSON payloads captured at order time, never re-read from the
// customer's address book.
type Order struct {
	ID     string
	Number string
	UserID string

	Lines []Line

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	Currency       string
	CouponCode     string

	ShippingAddress json.RawMessage
	BillingAddress  json.RawMessage
	ShippingMethod  string
	CustomerNotes   string

	Status Status
	// StockReleased marks that the order's reservations were already returned
	// to the ledger, so a later cancellation must not release them again.
	StockReleased bool

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

// New builds a pending order, deriving Total from the snapshot amounts:
// max(0, subtotal - discount) + shipping + tax.
func New(id, number, userID string, lines []Line, subtotal, discount, shipping, tax decimal.Decimal, currency string, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if subtotal.IsNegative() || discount.IsNegative() || shipping.IsNegative() || tax.IsNegative() {
		return nil, ErrNegativeAmount
	}

	discounted := subtotal.Sub(discount)
	if discounted.IsNegative() {
		discounted = decimal.Zero
	}

	return &Order{
		ID:             id,
		Number:         number,
		UserID:         userID,
		Lines:          lines,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingAmount: shipping,
		TaxAmount:      tax,
		Total:          discounted.Add(shipping).Add(tax),
		Currency:       currency,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanBeCancelled reports whether a customer cancellation is still allowed.
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusProcessing
}

// IsTerminal reports whether no further transitions are possible.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// MarkProcessing advances pending → processing after a successful payment.
func (o *Order) MarkProcessing(now time.Time) error {
	return o.transition(now, func(s orderState) (orderState, error) { return s.OnPaymentSucceeded(o) })
}

// MarkShipped advances processing → shipped and stamps ShippedAt. The caller
// is responsible for converting reservations into deductions first.
func (o *Order) MarkShipped(now time.Time) error {
	if err := o.transition(now, func(s orderState) (orderState, error) { return s.OnShip(o) }); err != nil {
		return err
	}
	t := now
	o.ShippedAt = &t
	return nil
}

// MarkDelivered advances shipped → delivered and stamps DeliveredAt.
func (o *Order) MarkDelivered(now time.Time) error {
	if err := o.transition(now, func(s orderState) (orderState, error) { return s.OnDeliver(o) }); err != nil {
		return err
	}
	t := now
	o.DeliveredAt = &t
	return nil
}

// MarkCancelled moves pending|processing → cancelled and stamps CancelledAt.
func (o *Order) MarkCancelled(now time.Time) error {
	if err := o.transition(now, func(s orderState) (orderState, error) { return s.OnCancel(o) }); err != nil {
		return err
	}
	t := now
	o.CancelledAt = &t
	return nil
}

// MarkRefunded moves any non-terminal state → refunded. A cancellation whose
// captured payment is refunded also lands here.
func (o *Order) MarkRefunded(now time.Time) error {
	return o.transition(now, func(s orderState) (orderState, error) { return s.OnRefund(o) })
}

func (o *Order) transition(now time.Time, apply func(orderState) (orderState, error)) error {
	next, err := apply(stateFor(o.Status))
	if err != nil {
		return err
	}
	o.Status = next.Status()
	o.UpdatedAt = now
	return nil
}

// Clone returns a deep copy so repository callers cannot alias stored state.
func (o *Order) Clone() *Order {
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	clone.ShippingAddress = append(json.RawMessage(nil), o.ShippingAddress...)
	clone.BillingAddress = append(json.RawMessage(nil), o.BillingAddress...)
	for _, p := range []**time.Time{&clone.ShippedAt, &clone.DeliveredAt, &clone.CancelledAt} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return &clone
}
