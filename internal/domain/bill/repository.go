package bill

import (
	"context"
	"time"
)

// ListFilter selects bills for read surfaces and exports
type ListFilter struct {
	CustomerID  string // optional
	PayerID     string // optional
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Repository defines the persistence operations for bills
type Repository interface {
	// CreateWithLines persists a bill together with its subscription and
	// billing item lines
	CreateWithLines(ctx context.Context, b *Bill) error

	Get(ctx context.Context, id string) (*Bill, error)

	List(ctx context.Context, filter ListFilter) ([]*Bill, error)
}

// SequenceRepository is the gap-free number source. Peek is a read-or-create:
// first use of a (company, prefix) pair creates the record at 1; later peeks
// return the stored next value without mutating it. Callers increment locally
// while assembling a batch and Commit the final value in one terminal write.
// The read-then-commit pair is only safe when batches for the same company
// and month never run concurrently; that discipline belongs to the caller.
type SequenceRepository interface {
	Peek(ctx context.Context, companyID, prefix string) (int64, error)

	Commit(ctx context.Context, companyID, prefix string, next int64) error
}
