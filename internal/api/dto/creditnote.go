package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/creditnote"
	"github.com/curaflow/curaflow/internal/types"
	"github.com/curaflow/curaflow/internal/validator"
)

// CreateCreditNoteRequest reverses all or part of a bill, reopening the
// referenced events for billing
type CreateCreditNoteRequest struct {
	BillID        string          `json:"bill_id" validate:"required"`
	EventIDs      []string        `json:"event_ids" validate:"required,min=1"`
	InclTaxAmount decimal.Decimal `json:"incl_tax_amount"`
	Date          time.Time       `json:"date" validate:"required"`
}

func (r *CreateCreditNoteRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CreditNoteResponse is the read shape of a credit note
type CreditNoteResponse struct {
	ID            string                 `json:"id"`
	Number        string                 `json:"number"`
	BillID        string                 `json:"bill_id"`
	CustomerID    string                 `json:"customer_id"`
	EventIDs      []string               `json:"event_ids"`
	InclTaxAmount decimal.Decimal        `json:"incl_tax_amount"`
	Date          time.Time              `json:"date"`
	EditStatus    types.CreditNoteStatus `json:"edit_status"`
}

func NewCreditNoteResponse(cn *creditnote.CreditNote) *CreditNoteResponse {
	return &CreditNoteResponse{
		ID:            cn.ID,
		Number:        cn.Number,
		BillID:        cn.BillID,
		CustomerID:    cn.CustomerID,
		EventIDs:      cn.EventIDs,
		InclTaxAmount: cn.InclTaxAmount,
		Date:          cn.Date,
		EditStatus:    cn.EditStatus,
	}
}
