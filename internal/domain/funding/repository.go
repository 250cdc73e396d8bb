package funding

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines persistence operations on fundings
type Repository interface {
	Create(ctx context.Context, f *Funding) error

	Get(ctx context.Context, id string) (*Funding, error)

	// ListBySubscription returns all published fundings targeting a subscription
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Funding, error)
}

// HistoryRepository maintains the running consumption counters. Increment is
// an atomic read-or-create-then-add on the (funding, month) key so that
// concurrent billing runs on different companies cannot lose updates.
type HistoryRepository interface {
	// Increment adds hours and amount to the counter and returns its new state
	Increment(ctx context.Context, fundingID string, monthKey *string, hours, amount decimal.Decimal) (*History, error)

	Get(ctx context.Context, fundingID string, monthKey *string) (*History, error)
}
