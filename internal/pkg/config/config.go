package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store selects the persistence backend for orders, inventory and coupons.
type Store string

const (
	StoreMemory Store = "memory"
	StoreSQLite Store = "sqlite"
)

// CartStore selects the cart persistence backend.
type CartStore string

const (
	CartStoreMemory CartStore = "memory"
	CartStoreRedis  CartStore = "redis"
)

// Config carries every runtime knob of the service. Values come from the
// environment, optionally seeded from a .env file.
type Config struct {
	ServiceName string
	Env         string
	Addr        string

	Store      Store
	SQLitePath string

	CartStore    CartStore
	RedisAddr    string
	GuestCartTTL time.Duration

	Currency          string
	OrderNumberPrefix string
	TaxRate           decimal.Decimal
	ShippingMethods   map[string]decimal.Decimal
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getenvDefault("SERVICE_NAME", "recordshop"),
		Env:         getenvDefault("ENV", "dev"),
		Addr:        getenvDefault("ADDR", ":8080"),

		Store:      Store(getenvDefault("STORE", string(StoreMemory))),
		SQLitePath: getenvDefault("SQLITE_PATH", "./data/recordshop.db"),

		CartStore: CartStore(getenvDefault("CART_STORE", string(CartStoreMemory))),
		RedisAddr: getenvDefault("REDIS_ADDR", "localhost:6379"),

		Currency:          getenvDefault("CURRENCY", "USD"),
		OrderNumberPrefix: getenvDefault("ORDER_NUMBER_PREFIX", "ORD"),
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	default:
		return nil, fmt.Errorf("config: unknown STORE %q", cfg.Store)
	}
	switch cfg.CartStore {
	case CartStoreMemory, CartStoreRedis:
	default:
		return nil, fmt.Errorf("config: unknown CART_STORE %q", cfg.CartStore)
	}

	ttlHours, err := strconv.Atoi(getenvDefault("GUEST_CART_TTL_HOURS", "72"))
	if err != nil || ttlHours <= 0 {
		return nil, fmt.Errorf("config: invalid GUEST_CART_TTL_HOURS")
	}
	cfg.GuestCartTTL = time.Duration(ttlHours) * time.Hour

	cfg.TaxRate, err = decimal.NewFromString(getenvDefault("TAX_RATE", "0.08"))
	if err != nil || cfg.TaxRate.IsNegative() {
		return nil, fmt.Errorf("config: invalid TAX_RATE")
	}

	standard, err := decimal.NewFromString(getenvDefault("SHIPPING_STANDARD_PRICE", "5.99"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid SHIPPING_STANDARD_PRICE")
	}
	express, err := decimal.NewFromString(getenvDefault("SHIPPING_EXPRESS_PRICE", "14.99"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid SHIPPING_EXPRESS_PRICE")
	}
	cfg.ShippingMethods = map[string]decimal.Decimal{
		"standard": standard,
		"express":  express,
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
