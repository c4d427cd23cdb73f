package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("payment: not found")
	ErrInvalidAmount          = errors.New("payment: amount must be greater than zero")
	ErrOrderNotPayable        = errors.New("payment: order is not payable")
	ErrNotRefundable          = errors.New("payment: only a succeeded payment can be refunded")
	ErrInvalidStateTransition = errors.New("payment: invalid state transition")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
	StatusCancelled  Status = "cancelled"
)

// Payment records one payment attempt against an order. Only the processor
// reference and the display-safe card brand/last4 are ever stored; raw card
// data never reaches this service.
type Payment struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Status    Status
	IntentID  string
	CardBrand string
	CardLast4 string
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, orderID, intentID string, amount decimal.Decimal, currency string, now time.Time) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return &Payment{
		ID:        id,
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusPending,
		IntentID:  intentID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsTerminal reports whether the payment has reached a final status.
// Confirmation callbacks for a terminal payment must be treated as replays.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

// MarkSucceeded records a confirmed capture and stamps PaidAt.
func (p *Payment) MarkSucceeded(brand, last4 string, now time.Time) error {
	if p.IsTerminal() {
		return ErrInvalidStateTransition
	}
	p.Status = StatusSucceeded
	p.CardBrand = brand
	p.CardLast4 = last4
	t := now
	p.PaidAt = &t
	p.UpdatedAt = now
	return nil
}

// MarkFailed records a confirmed decline.
func (p *Payment) MarkFailed(now time.Time) error {
	if p.IsTerminal() {
		return ErrInvalidStateTransition
	}
	p.Status = StatusFailed
	p.UpdatedAt = now
	return nil
}

// MarkRefunded is only reachable from succeeded.
func (p *Payment) MarkRefunded(now time.Time) error {
	if p.Status != StatusSucceeded {
		return ErrNotRefundable
	}
	p.Status = StatusRefunded
	p.UpdatedAt = now
	return nil
}

// Clone returns a copy so repository callers cannot alias stored state.
func (p *Payment) Clone() *Payment {
	clone := *p
	if p.PaidAt != nil {
		t := *p.PaidAt
		clone.PaidAt = &t
	}
	return &clone
}
