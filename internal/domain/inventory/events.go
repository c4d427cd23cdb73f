package inventory

import "time"

// LowStockEvent is emitted after a deduction or stock correction leaves
// on-hand quantity at or below the alert threshold.
type LowStockEvent struct {
	ProductID  string
	Quantity   int
	Threshold  int
	OccurredAt time.Time
}

func (LowStockEvent) EventName() string { return "inventory.low_stock" }

func NewLowStockEvent(r *Record) LowStockEvent {
	return LowStockEvent{
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		Threshold:  r.LowStockThreshold,
		OccurredAt: time.Now().UTC(),
	}
}
