package serviceevent

import (
	"context"
	"time"
)

// UnbilledFilter selects completed events not yet consumed by billing. An
// event belongs to the period whose bounds contain its start time; one that
// runs past PeriodEnd still bills in this period.
type UnbilledFilter struct {
	CustomerID  string // optional, empty matches all customers
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// BilledMark links an event to the bill line that billed it
type BilledMark struct {
	EventID    string
	BillLineID string
}

// Repository defines the persistence operations the billing engine needs on
// service events. Events are created by scheduling, outside this core.
type Repository interface {
	Create(ctx context.Context, event *ServiceEvent) error

	Get(ctx context.Context, id string) (*ServiceEvent, error)

	// ListUnbilled returns events with billed=false inside the period,
	// ordered by start time. Re-running a billing batch is idempotent
	// because billed events never come back from this query.
	ListUnbilled(ctx context.Context, filter UnbilledFilter) ([]*ServiceEvent, error)

	// MarkBilled bulk-sets the billed flag and the billing line reference
	MarkBilled(ctx context.Context, marks []BilledMark) error

	// MarkUnbilled reopens events referenced by a credit note
	MarkUnbilled(ctx context.Context, ids []string) error
}
