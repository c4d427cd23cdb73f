package order

import "context"

type Repository interface {
	// Insert persists a new order. A duplicate id or order number yields
	// ErrConflict so callers can re-allocate the number and retry.
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
}
