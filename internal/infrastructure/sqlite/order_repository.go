package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	domain "github.com/waxline/recordshop/internal/domain/order"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{db: s.db}
}

// Insert writes the order and its lines in one transaction. A duplicate order
// number trips the UNIQUE constraint and surfaces as domain.ErrConflict so the
// checkout can re-allocate and retry.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("sqlite: order id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, number, user_id, subtotal, discount_amount, shipping_amount,
		   tax_amount, total, currency, coupon_code, shipping_address, billing_address,
		   shipping_method, customer_notes, status, stock_released, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Number, o.UserID,
		o.Subtotal.String(), o.DiscountAmount.String(), o.ShippingAmount.String(),
		o.TaxAmount.String(), o.Total.String(), o.Currency, o.CouponCode,
		string(o.ShippingAddress), string(o.BillingAddress),
		o.ShippingMethod, o.CustomerNotes, string(o.Status), boolToInt(o.StockReleased),
		o.CreatedAt.Format(time.RFC3339Nano), o.UpdatedAt.Format(time.RFC3339Nano))
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("sqlite: order insert: %w", err)
	}

	for i, line := range o.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, position, product_id, title, artist, format,
			   cover_image, quantity, unit_price, line_total)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, line.ProductID, line.Title, line.Artist, line.Format,
			line.CoverImage, line.Quantity, line.UnitPrice.String(), line.LineTotal.String())
		if err != nil {
			return fmt.Errorf("sqlite: order line insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, number, user_id, subtotal, discount_amount, shipping_amount, tax_amount,
		   total, currency, coupon_code, shipping_address, billing_address, shipping_method,
		   customer_notes, status, stock_released, created_at, updated_at,
		   shipped_at, delivered_at, cancelled_at
		 FROM orders WHERE id = ?`, id)

	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, title, artist, format, cover_image, quantity, unit_price, line_total
		 FROM order_lines WHERE order_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.Line
		var unitPrice, lineTotal string
		if err := rows.Scan(&line.ProductID, &line.Title, &line.Artist, &line.Format,
			&line.CoverImage, &line.Quantity, &unitPrice, &lineTotal); err != nil {
			return nil, fmt.Errorf("sqlite: order line scan: %w", err)
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("sqlite: order line unit price: %w", err)
		}
		if line.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, fmt.Errorf("sqlite: order line total: %w", err)
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: order lines: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("sqlite: order id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, stock_released = ?, updated_at = ?,
		   shipped_at = ?, delivered_at = ?, cancelled_at = ?
		 WHERE id = ?`,
		string(o.Status), boolToInt(o.StockReleased), o.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(o.ShippedAt), nullableTime(o.DeliveredAt), nullableTime(o.CancelledAt),
		o.ID)
	if err != nil {
		return fmt.Errorf("sqlite: order update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// NumberSequence allocates per-day sequence values with a conditional upsert;
// RETURNING hands back the incremented value atomically.
type NumberSequence struct {
	db *sql.DB
}

func NewNumberSequence(s *Store) *NumberSequence {
	return &NumberSequence{db: s.db}
}

func (s *NumberSequence) Next(ctx context.Context, day time.Time) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO order_sequences (day, next) VALUES (?, 1)
		 ON CONFLICT(day) DO UPDATE SET next = next + 1
		 RETURNING next`,
		day.UTC().Format("20060102")).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("sqlite: order sequence: %w", err)
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var subtotal, discount, shipping, tax, total string
	var shippingAddr, billingAddr string
	var status, createdAt, updatedAt string
	var stockReleased int
	var shippedAt, deliveredAt, cancelledAt sql.NullString

	err := row.Scan(&o.ID, &o.Number, &o.UserID, &subtotal, &discount, &shipping, &tax,
		&total, &o.Currency, &o.CouponCode, &shippingAddr, &billingAddr, &o.ShippingMethod,
		&o.CustomerNotes, &status, &stockReleased, &createdAt, &updatedAt,
		&shippedAt, &deliveredAt, &cancelledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: order scan: %w", err)
	}

	for dst, src := range map[*decimal.Decimal]string{
		&o.Subtotal: subtotal, &o.DiscountAmount: discount, &o.ShippingAmount: shipping,
		&o.TaxAmount: tax, &o.Total: total,
	} {
		d, derr := decimal.NewFromString(src)
		if derr != nil {
			return nil, fmt.Errorf("sqlite: order amount: %w", derr)
		}
		*dst = d
	}

	o.ShippingAddress = json.RawMessage(shippingAddr)
	o.BillingAddress = json.RawMessage(billingAddr)
	o.Status = domain.Status(status)
	o.StockReleased = stockReleased != 0
	o.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	o.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	o.ShippedAt = parseNullableTime(shippedAt)
	o.DeliveredAt = parseNullableTime(deliveredAt)
	o.CancelledAt = parseNullableTime(cancelledAt)
	return &o, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
