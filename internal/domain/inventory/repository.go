package inventory

import "context"

// Repository is the persistence port for the ledger. The mutating operations
// are atomic per product record: implementations serialize concurrent callers
// (mutex, row lock or conditional update) so that two checkouts racing for the
// last unit cannot both reserve it.
type Repository interface {
	Get(ctx context.Context, productID string) (*Record, error)
	Save(ctx context.Context, record *Record) error

	// Reserve holds qty units iff available >= qty, otherwise it returns an
	// *InsufficientStockError and leaves the record untouched.
	Reserve(ctx context.Context, productID string, qty int) error
	// Release returns qty units of reservation, clamped at zero.
	Release(ctx context.Context, productID string, qty int) error
	// Deduct permanently removes qty units of on-hand stock and consumes the
	// matching reservation.
	Deduct(ctx context.Context, productID string, qty int) error
	AddStock(ctx context.Context, productID string, qty int) error
	SetStock(ctx context.Context, productID string, qty int) error
}
