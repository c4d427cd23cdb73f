package cart

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("cart: not found")
	ErrEmpty           = errors.New("cart: empty")
	ErrLineNotFound    = errors.New("cart: line not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be between 1 and 99")
	ErrNoOwner         = errors.New("cart: user id or session id required")
)

// MaxLineQuantity caps the quantity of a single line. The storefront enforces
// it in the UI; the server enforces it again here.
const MaxLineQuantity = 99

// Line is one product in the cart. UnitPrice is captured when the product is
// first added and never re-derived from the live catalog, so totals stay
// stable while the customer shops.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	AddedAt   time.Time
}

func (l *Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a mutable collection of lines owned by either a registered user or
// an anonymous session, never both. Guest carts expire.
type Cart struct {
	ID         string
	UserID     string
	SessionID  string
	Lines      []*Line
	CouponCode string
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func New(id, userID, sessionID string, now time.Time) (*Cart, error) {
	if userID == "" && sessionID == "" {
		return nil, ErrNoOwner
	}
	if userID != "" && sessionID != "" {
		return nil, ErrNoOwner
	}
	return &Cart{
		ID:        id,
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Expired reports whether a guest cart has outlived its lifetime.
func (c *Cart) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// AddItem merges qty into an existing line for the product, keeping its
// originally captured unit price, or appends a new line priced at unitPrice.
// The merged quantity is capped at MaxLineQuantity.
func (c *Cart) AddItem(productID string, qty int, unitPrice decimal.Decimal, now time.Time) error {
	if qty <= 0 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if line := c.line(productID); line != nil {
		line.Quantity += qty
		if line.Quantity > MaxLineQuantity {
			line.Quantity = MaxLineQuantity
		}
		c.touch(now)
		return nil
	}
	c.Lines = append(c.Lines, &Line{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
		AddedAt:   now,
	})
	c.touch(now)
	return nil
}

// UpdateItem sets the quantity of an existing line. Zero removes the line.
func (c *Cart) UpdateItem(productID string, qty int, now time.Time) error {
	if qty < 0 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	line := c.line(productID)
	if line == nil {
		return ErrLineNotFound
	}
	if qty == 0 {
		c.removeLine(productID)
	} else {
		line.Quantity = qty
	}
	c.touch(now)
	return nil
}

func (c *Cart) RemoveItem(productID string, now time.Time) error {
	if c.line(productID) == nil {
		return ErrLineNotFound
	}
	c.removeLine(productID)
	c.touch(now)
	return nil
}

// Clear drops all lines and any applied coupon.
func (c *Cart) Clear(now time.Time) {
	c.Lines = nil
	c.CouponCode = ""
	c.touch(now)
}

// ApplyCoupon attaches a coupon code. Re-applying the same code is a no-op at
// the cart level; the discount is always recomputed from the stored code.
func (c *Cart) ApplyCoupon(code string, now time.Time) {
	c.CouponCode = code
	c.touch(now)
}

func (c *Cart) RemoveCoupon(now time.Time) {
	c.CouponCode = ""
	c.touch(now)
}

// Subtotal is the sum of line totals before any discount.
func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range c.Lines {
		subtotal = subtotal.Add(line.Total())
	}
	return subtotal
}

func (c *Cart) line(productID string) *Line {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l
		}
	}
	return nil
}

func (c *Cart) removeLine(productID string) {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
}

func (c *Cart) touch(now time.Time) { c.UpdatedAt = now }

// Clone returns a deep copy so repository callers cannot alias stored state.
func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Lines = make([]*Line, len(c.Lines))
	for i, l := range c.Lines {
		lc := *l
		clone.Lines[i] = &lc
	}
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		clone.ExpiresAt = &t
	}
	return &clone
}
