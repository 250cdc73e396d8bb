package creditnote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/types"
)

// CreditNote reverses all or part of a bill and reopens the referenced events
// for billing. It stays editable until any of those events is billed again.
type CreditNote struct {
	ID            string                 `json:"id"`
	Number        string                 `json:"number"`
	BillID        string                 `json:"bill_id"`
	CustomerID    string                 `json:"customer_id"`
	EventIDs      []string               `json:"event_ids"`
	InclTaxAmount decimal.Decimal        `json:"incl_tax_amount"`
	Date          time.Time              `json:"date"`
	EditStatus    types.CreditNoteStatus `json:"edit_status"`
	types.BaseModel
}

// Repository defines persistence operations for credit notes
type Repository interface {
	Create(ctx context.Context, cn *CreditNote) error

	Get(ctx context.Context, id string) (*CreditNote, error)

	// ListEditableByEvents returns editable credit notes referencing any of
	// the given events
	ListEditableByEvents(ctx context.Context, eventIDs []string) ([]*CreditNote, error)

	// Lock bulk-marks credit notes non-editable
	Lock(ctx context.Context, ids []string) error
}
