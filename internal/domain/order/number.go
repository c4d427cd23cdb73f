package order

import (
	"context"
	"fmt"
	"time"
)

// NumberSequence allocates the per-day sequence component of order numbers.
// Next must be collision-free under concurrent callers: an atomic counter or a
// conditional update, never count-then-insert.
type NumberSequence interface {
	Next(ctx context.Context, day time.Time) (int, error)
}

// FormatNumber renders a human-readable order number: PREFIX-YYYYMMDD-NNNN,
// with the sequence zero-padded to four digits.
func FormatNumber(prefix string, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.UTC().Format("20060102"), seq)
}
