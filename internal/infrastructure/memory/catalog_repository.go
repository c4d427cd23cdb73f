package memory

import (
	"context"
	"sync"

	domain "github.com/waxline/recordshop/internal/domain/catalog"
)

// CatalogRepository is a read-only product source seeded at startup. The real
// catalog lives in another service; the fulfillment core only needs lookups.
type CatalogRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewCatalogRepository(seed ...*domain.Product) *CatalogRepository {
	r := &CatalogRepository{products: make(map[string]*domain.Product)}
	for _, p := range seed {
		clone := *p
		r.products[p.ID] = &clone
	}
	return r
}

func (r *CatalogRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *CatalogRepository) Put(p *domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	r.products[p.ID] = &clone
}
