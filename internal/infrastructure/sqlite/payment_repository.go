package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	domain "github.com/waxline/recordshop/internal/domain/payment"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(s *Store) *PaymentRepository {
	return &PaymentRepository{db: s.db}
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("sqlite: payment id is required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, amount, currency, status, intent_id,
		   card_brand, card_last4, paid_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OrderID, p.Amount.String(), p.Currency, string(p.Status), p.IntentID,
		p.CardBrand, p.CardLast4, nullableTime(p.PaidAt),
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite: payment insert: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return r.findOne(ctx, `WHERE id = ?`, id)
}

func (r *PaymentRepository) FindByIntent(ctx context.Context, intentID string) (*domain.Payment, error) {
	return r.findOne(ctx, `WHERE intent_id = ?`, intentID)
}

func (r *PaymentRepository) FindByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.findOne(ctx, `WHERE order_id = ? ORDER BY created_at DESC LIMIT 1`, orderID)
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("sqlite: payment id is required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, card_brand = ?, card_last4 = ?, paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(p.Status), p.CardBrand, p.CardLast4, nullableTime(p.PaidAt),
		p.UpdatedAt.Format(time.RFC3339Nano), p.ID)
	if err != nil {
		return fmt.Errorf("sqlite: payment update: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) findOne(ctx context.Context, where string, args ...any) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, amount, currency, status, intent_id, card_brand, card_last4,
		   paid_at, created_at, updated_at
		 FROM payments `+where, args...)

	var p domain.Payment
	var amount, status, createdAt, updatedAt string
	var paidAt sql.NullString

	err := row.Scan(&p.ID, &p.OrderID, &amount, &p.Currency, &status, &p.IntentID,
		&p.CardBrand, &p.CardLast4, &paidAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: payment scan: %w", err)
	}

	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("sqlite: payment amount: %w", err)
	}
	p.Status = domain.Status(status)
	p.PaidAt = parseNullableTime(paidAt)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &p, nil
}
