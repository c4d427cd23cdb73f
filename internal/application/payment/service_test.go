package payment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dominv "github.com/waxline/recordshop/internal/domain/inventory"
	domorder "github.com/waxline/recordshop/internal/domain/order"
	domain "github.com/waxline/recordshop/internal/domain/payment"
	"github.com/waxline/recordshop/internal/infrastructure/id"
	"github.com/waxline/recordshop/internal/infrastructure/memory"
	"github.com/waxline/recordshop/internal/infrastructure/processor"
	"github.com/waxline/recordshop/internal/pkg/clock"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	payments *memory.PaymentRepository
	orders   *memory.OrderRepository
	ledger   *memory.InventoryRepository
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		payments: memory.NewPaymentRepository(),
		orders:   memory.NewOrderRepository(),
		ledger:   memory.NewInventoryRepository(),
	}
	f.svc = NewService(f.payments, f.orders, f.ledger, processor.NewSimulator(),
		nil, id.NewUUIDGenerator(), &clock.Fixed{Instant: testNow}, nil)
	return f
}

// seedOrder inserts a pending order for two units of p1 and places the
// matching reservation, the state a checkout leaves behind.
func (f *fixture) seedOrder(t *testing.T) *domorder.Order {
	t.Helper()
	ctx := context.Background()

	entity, err := domorder.New("o1", "ORD-20250615-0001", "u1",
		[]domorder.Line{{
			ProductID: "p1",
			Title:     "Kind of Blue",
			Quantity:  2,
			UnitPrice: decimal.NewFromFloat(10.00),
			LineTotal: decimal.NewFromFloat(20.00),
		}},
		decimal.NewFromFloat(20.00), decimal.Zero,
		decimal.NewFromFloat(5.99), decimal.NewFromFloat(1.60), "USD", testNow)
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(ctx, entity))

	rec, err := dominv.NewRecord("p1", 10, 0)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Save(ctx, rec))
	require.NoError(t, f.ledger.Reserve(ctx, "p1", 2))
	return entity
}

func (f *fixture) createIntent(t *testing.T, orderID string) *IntentResult {
	t.Helper()
	result, err := f.svc.CreateIntent(context.Background(), orderID)
	require.NoError(t, err)
	return result
}

func TestCreateIntent(t *testing.T) {
	f := newFixture(t)
	entity := f.seedOrder(t)

	result := f.createIntent(t, entity.ID)
	assert.NotEmpty(t, result.PaymentID)
	assert.NotEmpty(t, result.PaymentIntentID)
	assert.NotEmpty(t, result.ClientSecret)

	p, err := f.svc.FindByOrder(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.True(t, p.Amount.Equal(entity.Total), p.Amount.String())
	assert.Equal(t, "USD", p.Currency)
}

func TestCreateIntentOrderNotPayable(t *testing.T) {
	f := newFixture(t)
	entity := f.seedOrder(t)

	require.NoError(t, entity.MarkProcessing(testNow))
	require.NoError(t, f.orders.Update(context.Background(), entity))

	_, err := f.svc.CreateIntent(context.Background(), entity.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotPayable)
}

func TestCreateIntentUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateIntent(context.Background(), "missing")
	assert.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestConfirmSucceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entity := f.seedOrder(t)
	result := f.createIntent(t, entity.ID)

	p, err := f.svc.Confirm(ctx, ConfirmInput{
		IntentID:  result.PaymentIntentID,
		Outcome:   OutcomeSucceeded,
		CardBrand: "visa",
		CardLast4: "4242",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, p.Status)
	assert.Equal(t, "visa", p.CardBrand)
	require.NotNil(t, p.PaidAt)

	updated, err := f.orders.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusProcessing, updated.Status)

	// A successful payment leaves the reservation in place for fulfillment.
	rec, err := f.ledger.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ReservedQuantity)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entity := f.seedOrder(t)
	result := f.createIntent(t, entity.ID)

	input := ConfirmInput{
		IntentID:  result.PaymentIntentID,
		Outcome:   OutcomeSucceeded,
		CardBrand: "visa",
		CardLast4: "4242",
	}
	_, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)

	// The replayed callback changes nothing and reports no error.
	p, err := f.svc.Confirm(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, p.Status)

	updated, err := f.orders.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusProcessing, updated.Status)

	// A contradictory replay is ignored the same way.
	input.Outcome = OutcomeFailed
	p, err = f.svc.Confirm(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, p.Status)
}

func TestConfirmSucceededToleratesAdvancedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entity := f.seedOrder(t)
	result := f.createIntent(t, entity.ID)

	// An interrupted earlier callback can advance the order and stop before
	// settling the payment; the retried callback must still converge.
	require.NoError(t, entity.MarkProcessing(testNow))
	require.NoError(t, f.orders.Update(ctx, entity))

	p, err := f.svc.Confirm(ctx, ConfirmInput{
		IntentID:  result.PaymentIntentID,
		Outcome:   OutcomeSucceeded,
		CardBrand: "visa",
		CardLast4: "4242",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSucceeded, p.Status)

	stored, err := f.orders.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusProcessing, stored.Status)
}

func TestConfirmFailureReleasesReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entity := f.seedOrder(t)
	result := f.createIntent(t, entity.ID)

	p, err := f.svc.Confirm(ctx, ConfirmInput{
		IntentID: result.PaymentIntentID,
		Outcome:  OutcomeFailed,
		Reason:   "card_declined",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.Status)

	rec, err := f.ledger.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ReservedQuantity)
	assert.Equal(t, 10, rec.Quantity)

	// The order stays pending so the customer can retry payment, and it
	// remembers that its holds are gone.
	updated, err := f.orders.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, updated.Status)
	assert.True(t, updated.StockReleased)
}

func TestConfirmUnknownOutcome(t *testing.T) {
	f := newFixture(t)
	entity := f.seedOrder(t)
	result := f.createIntent(t, entity.ID)

	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		IntentID: result.PaymentIntentID,
		Outcome:  Outcome("chargeback"),
	})
	assert.ErrorIs(t, err, ErrUnknownOutcome)
}

func TestConfirmUnknownIntent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		IntentID: "pi_unknown",
		Outcome:  OutcomeSucceeded,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entity := f.seedOrder(t)
	result := f.createIntent(t, entity.ID)

	_, err := f.svc.Confirm(ctx, ConfirmInput{
		IntentID:  result.PaymentIntentID,
		Outcome:   OutcomeSucceeded,
		CardBrand: "visa",
		CardLast4: "4242",
	})
	require.NoError(t, err)

	p, err := f.svc.Refund(ctx, result.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, p.Status)

	updated, err := f.orders.Get(ctx, entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusRefunded, updated.Status)
}

func TestRefundRequiresSucceededPayment(t *testing.T) {
	f := newFixture(t)
	entity := f.seedOrder(t)
	result := f.createIntent(t, entity.ID)

	_, err := f.svc.Refund(context.Background(), result.PaymentID)
	assert.ErrorIs(t, err, domain.ErrNotRefundable)
}

func TestRefundOrderWithoutPayment(t *testing.T) {
	f := newFixture(t)
	entity := f.seedOrder(t)

	refunded, err := f.svc.RefundOrder(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.False(t, refunded)
}
