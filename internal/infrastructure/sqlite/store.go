// Package sqlite provides durable implementations of the inventory, order,
// coupon and payment repositories on a single SQLite database.
//
// WAL mode is enabled on Open so readers never block writers: webhook
// confirmations write while storefront requests read. The pure-Go driver
// (modernc.org/sqlite) avoids CGO, keeping the binary easy to build anywhere.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS inventory (
    product_id          TEXT PRIMARY KEY,
    quantity            INTEGER NOT NULL CHECK (quantity >= 0),
    reserved_quantity   INTEGER NOT NULL DEFAULT 0 CHECK (reserved_quantity >= 0),
    low_stock_threshold INTEGER NOT NULL DEFAULT 0,
    updated_at          TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id               TEXT PRIMARY KEY,
    number           TEXT NOT NULL UNIQUE,
    user_id          TEXT NOT NULL DEFAULT '',
    subtotal         TEXT NOT NULL,
    discount_amount  TEXT NOT NULL,
    shipping_amount  TEXT NOT NULL,
    tax_amount       TEXT NOT NULL,
    total            TEXT NOT NULL,
    currency         TEXT NOT NULL,
    coupon_code      TEXT NOT NULL DEFAULT '',
    shipping_address TEXT NOT NULL DEFAULT '{}',
    billing_address  TEXT NOT NULL DEFAULT '{}',
    shipping_method  TEXT NOT NULL DEFAULT '',
    customer_notes   TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    stock_released   INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL,
    shipped_at       TEXT,
    delivered_at     TEXT,
    cancelled_at     TEXT
);

CREATE TABLE IF NOT EXISTS order_lines (
    order_id    TEXT    NOT NULL REFERENCES orders(id),
    position    INTEGER NOT NULL,
    product_id  TEXT    NOT NULL,
    title       TEXT    NOT NULL DEFAULT '',
    artist      TEXT    NOT NULL DEFAULT '',
    format      TEXT    NOT NULL DEFAULT '',
    cover_image TEXT    NOT NULL DEFAULT '',
    quantity    INTEGER NOT NULL,
    unit_price  TEXT    NOT NULL,
    line_total  TEXT    NOT NULL,
    PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS coupons (
    code                TEXT PRIMARY KEY,
    type                TEXT NOT NULL,
    value               TEXT NOT NULL,
    min_order_amount    TEXT,
    max_discount_amount TEXT,
    usage_limit         INTEGER,
    usage_count         INTEGER NOT NULL DEFAULT 0,
    valid_from          TEXT,
    valid_until         TEXT,
    active              INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS payments (
    id         TEXT PRIMARY KEY,
    order_id   TEXT NOT NULL REFERENCES orders(id),
    amount     TEXT NOT NULL,
    currency   TEXT NOT NULL,
    status     TEXT NOT NULL,
    intent_id  TEXT NOT NULL UNIQUE,
    card_brand TEXT NOT NULL DEFAULT '',
    card_last4 TEXT NOT NULL DEFAULT '',
    paid_at    TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments(order_id, created_at);

-- One row per calendar day; the conditional upsert makes order-number
-- allocation collision-free under concurrent checkouts.
CREATE TABLE IF NOT EXISTS order_sequences (
    day  TEXT PRIMARY KEY,
    next INTEGER NOT NULL
);
`

// Store owns the database handle shared by the repositories in this package.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema. busy_timeout makes writers wait for locks instead of failing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
