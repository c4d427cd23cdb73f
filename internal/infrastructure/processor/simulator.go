package processor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domain "github.com/waxline/recordshop/internal/domain/payment"
)

// Simulator stands in for the card processor in local and test environments.
// Intent creation always succeeds for a positive amount; captures are driven
// through the webhook endpoint, so the simulator never decides the outcome of
// a charge. Refund requests fail at the configured rate to exercise the
// compensation paths.
type Simulator struct {
	mu             sync.Mutex
	random         *rand.Rand
	refundFailRate float64
	intents        map[string]decimal.Decimal
}

func NewSimulator() *Simulator {
	return &Simulator{
		random:  rand.New(rand.NewSource(time.Now().UnixNano())),
		intents: make(map[string]decimal.Decimal),
	}
}

// WithRefundFailRate makes Refund fail with the given probability.
func (s *Simulator) WithRefundFailRate(rate float64) *Simulator {
	s.refundFailRate = rate
	return s
}

func (s *Simulator) CreateIntent(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*domain.Intent, error) {
	_ = ctx
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive amount", domain.ErrProcessor)
	}
	_ = currency

	s.mu.Lock()
	defer s.mu.Unlock()

	intentID := "pi_" + uuid.NewString()
	s.intents[intentID] = amount
	return &domain.Intent{
		ID:           intentID,
		ClientSecret: intentID + "_secret_" + uuid.NewString()[:8],
	}, nil
}

func (s *Simulator) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	captured, ok := s.intents[intentID]
	if !ok {
		return fmt.Errorf("%w: unknown intent %s", domain.ErrProcessor, intentID)
	}
	if amount.GreaterThan(captured) {
		return fmt.Errorf("%w: refund exceeds captured amount", domain.ErrProcessor)
	}
	if s.refundFailRate > 0 && s.random.Float64() < s.refundFailRate {
		return fmt.Errorf("%w: refund declined", domain.ErrProcessor)
	}
	return nil
}
