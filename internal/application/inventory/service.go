package inventory

import (
	"context"
	"fmt"

	domain "github.com/waxline/recordshop/internal/domain/inventory"
	domoutbox "github.com/waxline/recordshop/internal/domain/outbox"
	"github.com/waxline/recordshop/internal/pkg/logging"
	"go.uber.org/zap"
)

// Service exposes the back-office stock operations. Reservation traffic goes
// straight through the repository from the checkout workflow; this service
// only covers admin corrections and replenishment.
type Service struct {
	ledger    domain.Repository
	publisher domoutbox.Publisher
}

func NewService(ledger domain.Repository, publisher domoutbox.Publisher) *Service {
	return &Service{ledger: ledger, publisher: publisher}
}

func (s *Service) Get(ctx context.Context, productID string) (*domain.Record, error) {
	return s.ledger.Get(ctx, productID)
}

// SetStock replaces the on-hand quantity (admin correction).
func (s *Service) SetStock(ctx context.Context, productID string, qty int) (*domain.Record, error) {
	if err := s.ledger.SetStock(ctx, productID, qty); err != nil {
		return nil, err
	}
	return s.afterMutation(ctx, productID, "stock_set")
}

// AddStock replenishes on-hand quantity.
func (s *Service) AddStock(ctx context.Context, productID string, qty int) (*domain.Record, error) {
	if err := s.ledger.AddStock(ctx, productID, qty); err != nil {
		return nil, err
	}
	return s.afterMutation(ctx, productID, "stock_added")
}

func (s *Service) afterMutation(ctx context.Context, productID, event string) (*domain.Record, error) {
	rec, err := s.ledger.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("inventory: reload: %w", err)
	}

	logging.FromContext(ctx).Info(event,
		zap.String("product_id", productID),
		zap.Int("quantity", rec.Quantity),
		zap.Int("reserved", rec.ReservedQuantity),
	)

	if s.publisher != nil && rec.LowStock() {
		_ = s.publisher.Publish(ctx, domain.NewLowStockEvent(rec))
	}
	return rec, nil
}
