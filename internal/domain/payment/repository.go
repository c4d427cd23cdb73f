package payment

import "context"

type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	// FindByIntent resolves the payment referenced by a processor webhook.
	FindByIntent(ctx context.Context, intentID string) (*Payment, error)
	// FindByOrder returns the most recent payment attempt for the order, or
	// ErrNotFound when none exists.
	FindByOrder(ctx context.Context, orderID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
}
