package inventory

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("inventory: product not found")
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
)

// InsufficientStockError reports a reservation or deduction that could not be
// satisfied. It names the product and both sides of the shortfall so callers
// can surface an actionable message.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Record tracks on-hand and reserved quantity for a single product.
// Reserved stock reduces availability without reducing the on-hand count;
// a deduction at fulfillment time makes the decrease permanent.
type Record struct {
	ProductID         string
	Quantity          int
	ReservedQuantity  int
	LowStockThreshold int
	UpdatedAt         time.Time
}

func NewRecord(productID string, quantity, lowStockThreshold int) (*Record, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Record{
		ProductID:         productID,
		Quantity:          quantity,
		LowStockThreshold: lowStockThreshold,
		UpdatedAt:         time.Now().UTC(),
	}, nil
}

// Available is the quantity still open to new reservations.
func (r *Record) Available() int {
	if r.Quantity <= r.ReservedQuantity {
		return 0
	}
	return r.Quantity - r.ReservedQuantity
}

// InStock reports whether any on-hand stock exists. This is the display rule:
// fully-reserved stock still shows as in stock. Orderability is judged against
// Available instead.
func (r *Record) InStock() bool { return r.Quantity > 0 }

// LowStock reports whether on-hand stock sits at or below the alert threshold.
func (r *Record) LowStock() bool {
	return r.Quantity > 0 && r.Quantity <= r.LowStockThreshold
}

// Reserve places a hold on qty units. It fails without mutating state when
// fewer than qty units are available.
func (r *Record) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.Available() < qty {
		return &InsufficientStockError{ProductID: r.ProductID, Requested: qty, Available: r.Available()}
	}
	r.ReservedQuantity += qty
	r.touch()
	return nil
}

// Release returns qty units of reservation. Over-release is clamped at zero
// rather than rejected, mirroring the permissive ledger policy.
func (r *Record) Release(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	r.ReservedQuantity -= qty
	if r.ReservedQuantity < 0 {
		r.ReservedQuantity = 0
	}
	r.touch()
	return nil
}

// Deduct converts a reservation into a permanent stock decrease. It checks
// on-hand quantity, not availability: the units being deducted are typically
// the caller's own reservation.
func (r *Record) Deduct(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.Quantity < qty {
		return &InsufficientStockError{ProductID: r.ProductID, Requested: qty, Available: r.Quantity}
	}
	r.Quantity -= qty
	r.ReservedQuantity -= qty
	if r.ReservedQuantity < 0 {
		r.ReservedQuantity = 0
	}
	r.touch()
	return nil
}

// AddStock increases on-hand quantity. No upper bound.
func (r *Record) AddStock(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	r.Quantity += qty
	r.touch()
	return nil
}

// SetStock replaces the on-hand quantity outright (admin correction).
func (r *Record) SetStock(qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	r.Quantity = qty
	r.touch()
	return nil
}

func (r *Record) touch() {
	r.UpdatedAt = time.Now().UTC()
}
