package catalog

import "context"

type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
}
