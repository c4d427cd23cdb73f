package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/waxline/recordshop/internal/domain/cart"
)

// CartRepository keeps carts in memory keyed by owner. Expired guest carts
// are dropped on read, matching the TTL behavior of the redis-backed store.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
	now   func() time.Time
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string]*domain.Cart),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *CartRepository) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[owner.Key()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if c.Expired(r.now()) {
		delete(r.carts, owner.Key())
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil {
		return nil
	}

	owner := domain.Owner{UserID: c.UserID, SessionID: c.SessionID}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[owner.Key()] = c.Clone()
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, owner domain.Owner) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, owner.Key())
	return nil
}
