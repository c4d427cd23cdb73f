package memory

import (
	"context"
	"sync"

	domain "github.com/waxline/recordshop/internal/domain/inventory"
)

// InventoryRepository keeps ledger records in memory. All mutating operations
// run under one lock, which serializes concurrent reservations per product.
type InventoryRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		records: make(map[string]*domain.Record),
	}
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*domain.Record, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (r *InventoryRepository) Save(ctx context.Context, record *domain.Record) error {
	_ = ctx
	if record == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ProductID] = cloneRecord(record)
	return nil
}

func (r *InventoryRepository) Reserve(ctx context.Context, productID string, qty int) error {
	return r.mutate(ctx, productID, func(rec *domain.Record) error { return rec.Reserve(qty) })
}

func (r *InventoryRepository) Release(ctx context.Context, productID string, qty int) error {
	return r.mutate(ctx, productID, func(rec *domain.Record) error { return rec.Release(qty) })
}

func (r *InventoryRepository) Deduct(ctx context.Context, productID string, qty int) error {
	return r.mutate(ctx, productID, func(rec *domain.Record) error { return rec.Deduct(qty) })
}

func (r *InventoryRepository) AddStock(ctx context.Context, productID string, qty int) error {
	return r.mutate(ctx, productID, func(rec *domain.Record) error { return rec.AddStock(qty) })
}

func (r *InventoryRepository) SetStock(ctx context.Context, productID string, qty int) error {
	return r.mutate(ctx, productID, func(rec *domain.Record) error { return rec.SetStock(qty) })
}

// mutate applies op to the stored record under the write lock. The domain
// entity carries the business rules; this adapter only supplies atomicity.
func (r *InventoryRepository) mutate(ctx context.Context, productID string, op func(*domain.Record) error) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if err := op(record); err != nil {
		return err
	}
	return nil
}

func cloneRecord(record *domain.Record) *domain.Record {
	if record == nil {
		return nil
	}
	clone := *record
	return &clone
}
