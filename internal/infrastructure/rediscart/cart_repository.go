package rediscart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domain "github.com/waxline/recordshop/internal/domain/cart"
)

// CartRepository stores carts as JSON blobs in redis. Guest carts get a TTL
// matching their expiry, so redis enforces the lifetime natively; user carts
// are stored without expiry.
type CartRepository struct {
	client  *redis.Client
	keyBase string
	ttl     time.Duration
}

func New(addr string, guestTTL time.Duration) *CartRepository {
	return &CartRepository{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		keyBase: "recordshop:cart",
		ttl:     guestTTL,
	}
}

func (r *CartRepository) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	raw, err := r.client.Get(ctx, r.key(owner)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rediscart: get: %w", err)
	}

	var c domain.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("rediscart: decode: %w", err)
	}
	return &c, nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("rediscart: encode: %w", err)
	}

	owner := domain.Owner{UserID: c.UserID, SessionID: c.SessionID}
	var ttl time.Duration
	if c.SessionID != "" {
		ttl = r.ttl
	}
	if err := r.client.Set(ctx, r.key(owner), raw, ttl).Err(); err != nil {
		return fmt.Errorf("rediscart: set: %w", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, owner domain.Owner) error {
	if err := r.client.Del(ctx, r.key(owner)).Err(); err != nil {
		return fmt.Errorf("rediscart: del: %w", err)
	}
	return nil
}

func (r *CartRepository) key(owner domain.Owner) string {
	return fmt.Sprintf("%s:%s", r.keyBase, owner.Key())
}
