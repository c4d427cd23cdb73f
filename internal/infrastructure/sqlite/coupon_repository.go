package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	domain "github.com/waxline/recordshop/internal/domain/coupon"
)

type CouponRepository struct {
	db *sql.DB
}

func NewCouponRepository(s *Store) *CouponRepository {
	return &CouponRepository{db: s.db}
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT code, type, value, min_order_amount, max_discount_amount, usage_limit,
		   usage_count, valid_from, valid_until, active
		 FROM coupons WHERE code = ?`, code)

	var c domain.Coupon
	var value string
	var minOrder, maxDiscount, validFrom, validUntil sql.NullString
	var usageLimit sql.NullInt64
	var active int

	err := row.Scan(&c.Code, (*string)(&c.Type), &value, &minOrder, &maxDiscount,
		&usageLimit, &c.UsageCount, &validFrom, &validUntil, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: coupon scan: %w", err)
	}

	if c.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("sqlite: coupon value: %w", err)
	}
	if c.MinOrderAmount, err = parseNullableDecimal(minOrder); err != nil {
		return nil, fmt.Errorf("sqlite: coupon min order: %w", err)
	}
	if c.MaxDiscountAmount, err = parseNullableDecimal(maxDiscount); err != nil {
		return nil, fmt.Errorf("sqlite: coupon max discount: %w", err)
	}
	if usageLimit.Valid {
		v := int(usageLimit.Int64)
		c.UsageLimit = &v
	}
	c.ValidFrom = parseNullableTime(validFrom)
	c.ValidUntil = parseNullableTime(validUntil)
	c.Active = active != 0
	return &c, nil
}

func (r *CouponRepository) Save(ctx context.Context, c *domain.Coupon) error {
	if c == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO coupons (code, type, value, min_order_amount, max_discount_amount,
		   usage_limit, usage_count, valid_from, valid_until, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   type = excluded.type, value = excluded.value,
		   min_order_amount = excluded.min_order_amount,
		   max_discount_amount = excluded.max_discount_amount,
		   usage_limit = excluded.usage_limit, usage_count = excluded.usage_count,
		   valid_from = excluded.valid_from, valid_until = excluded.valid_until,
		   active = excluded.active`,
		c.Code, string(c.Type), c.Value.String(),
		nullableDecimal(c.MinOrderAmount), nullableDecimal(c.MaxDiscountAmount),
		nullableInt(c.UsageLimit), c.UsageCount,
		nullableTime(c.ValidFrom), nullableTime(c.ValidUntil), boolToInt(c.Active))
	if err != nil {
		return fmt.Errorf("sqlite: coupon save: %w", err)
	}
	return nil
}

// Redeem is a conditional update: zero rows affected means the usage limit is
// already exhausted (or the code is unknown), so concurrent redemptions can
// never overrun the limit.
func (r *CouponRepository) Redeem(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1
		 WHERE code = ? AND (usage_limit IS NULL OR usage_count < usage_limit)`,
		code)
	if err != nil {
		return fmt.Errorf("sqlite: coupon redeem: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 1 {
		return nil
	}

	if _, err := r.FindByCode(ctx, code); err != nil {
		return err
	}
	return domain.ErrUsageExceeded
}

func (r *CouponRepository) Unredeem(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE coupons SET usage_count = max(0, usage_count - 1) WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("sqlite: coupon unredeem: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func parseNullableDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
