package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrProcessor wraps failures reported by the card processor so the API can
// distinguish "retry payment" from "fix your input".
var ErrProcessor = errors.New("payment: processor failure")

// Intent is the processor-side handle for a payment attempt. ClientSecret is
// handed to the frontend to complete the card flow.
type Intent struct {
	ID           string
	ClientSecret string
}

// Processor is the port to the external card processor.
type Processor interface {
	CreateIntent(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*Intent, error)
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) error
}
