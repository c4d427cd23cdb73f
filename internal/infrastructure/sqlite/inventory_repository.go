package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/waxline/recordshop/internal/domain/inventory"
)

// InventoryRepository implements the ledger on SQLite. The mutating operations
// are single conditional UPDATE statements, so the database serializes
// concurrent reservations without an explicit row lock.
type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(s *Store) *InventoryRepository {
	return &InventoryRepository{db: s.db}
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT product_id, quantity, reserved_quantity, low_stock_threshold, updated_at
		 FROM inventory WHERE product_id = ?`, productID)

	var rec domain.Record
	var updatedAt string
	err := row.Scan(&rec.ProductID, &rec.Quantity, &rec.ReservedQuantity, &rec.LowStockThreshold, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: inventory get: %w", err)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &rec, nil
}

func (r *InventoryRepository) Save(ctx context.Context, record *domain.Record) error {
	if record == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory (product_id, quantity, reserved_quantity, low_stock_threshold, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
		   quantity = excluded.quantity,
		   reserved_quantity = excluded.reserved_quantity,
		   low_stock_threshold = excluded.low_stock_threshold,
		   updated_at = excluded.updated_at`,
		record.ProductID, record.Quantity, record.ReservedQuantity, record.LowStockThreshold,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: inventory save: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Reserve(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory
		 SET reserved_quantity = reserved_quantity + ?, updated_at = ?
		 WHERE product_id = ? AND quantity - reserved_quantity >= ?`,
		qty, now(), productID, qty)
	if err != nil {
		return fmt.Errorf("sqlite: inventory reserve: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 1 {
		return nil
	}

	// Nothing updated: either the product is unknown or stock ran short.
	rec, getErr := r.Get(ctx, productID)
	if getErr != nil {
		return getErr
	}
	return &domain.InsufficientStockError{ProductID: productID, Requested: qty, Available: rec.Available()}
}

func (r *InventoryRepository) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory
		 SET reserved_quantity = max(0, reserved_quantity - ?), updated_at = ?
		 WHERE product_id = ?`,
		qty, now(), productID)
	if err != nil {
		return fmt.Errorf("sqlite: inventory release: %w", err)
	}
	return requireRow(res)
}

func (r *InventoryRepository) Deduct(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory
		 SET quantity = quantity - ?, reserved_quantity = max(0, reserved_quantity - ?), updated_at = ?
		 WHERE product_id = ? AND quantity >= ?`,
		qty, qty, now(), productID, qty)
	if err != nil {
		return fmt.Errorf("sqlite: inventory deduct: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 1 {
		return nil
	}

	rec, getErr := r.Get(ctx, productID)
	if getErr != nil {
		return getErr
	}
	return &domain.InsufficientStockError{ProductID: productID, Requested: qty, Available: rec.Quantity}
}

func (r *InventoryRepository) AddStock(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory SET quantity = quantity + ?, updated_at = ? WHERE product_id = ?`,
		qty, now(), productID)
	if err != nil {
		return fmt.Errorf("sqlite: inventory add stock: %w", err)
	}
	return requireRow(res)
}

func (r *InventoryRepository) SetStock(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return domain.ErrInvalidQuantity
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory SET quantity = ?, updated_at = ? WHERE product_id = ?`,
		qty, now(), productID)
	if err != nil {
		return fmt.Errorf("sqlite: inventory set stock: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }
