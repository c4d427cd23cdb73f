package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/waxline/recordshop/internal/domain/order"
)

type OrderRepository struct {
	mu      sync.RWMutex
	orders  map[string]*domain.Order
	numbers map[string]string // order number -> order id
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:  make(map[string]*domain.Order),
		numbers: make(map[string]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.numbers[o.Number]; exists {
		return domain.ErrConflict
	}

	r.orders[o.ID] = o.Clone()
	r.numbers[o.Number] = o.ID
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; !exists {
		return domain.ErrNotFound
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

// NumberSequence allocates daily order-number sequences with a mutex-guarded
// counter per calendar day, so concurrent checkouts never collide.
type NumberSequence struct {
	mu   sync.Mutex
	next map[string]int
}

func NewNumberSequence() *NumberSequence {
	return &NumberSequence{next: make(map[string]int)}
}

func (s *NumberSequence) Next(ctx context.Context, day time.Time) (int, error) {
	_ = ctx

	key := day.UTC().Format("20060102")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.next[key]++
	return s.next[key], nil
}
