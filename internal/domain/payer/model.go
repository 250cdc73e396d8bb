package payer

import (
	"context"

	"github.com/curaflow/curaflow/internal/types"
)

// Payer is a third-party funder billed for its share of service cost. Payers
// flagged ExternalBilling assign their own invoice numbers; the engine leaves
// their bills unnumbered and tags them third-party.
type Payer struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ExternalBilling bool   `json:"external_billing"`
	types.BaseModel
}

// Repository defines persistence operations on payers
type Repository interface {
	Get(ctx context.Context, id string) (*Payer, error)

	Create(ctx context.Context, p *Payer) error
}
