package company

import (
	"context"

	"github.com/curaflow/curaflow/internal/types"
)

// Company is the agency's legal identity. The billing engine reads it for the
// bill number short code and passes the header fields through untouched.
type Company struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
	LegalName string `json:"legal_name"`
	VATNumber string `json:"vat_number"`
	Address   string `json:"address"`
	types.BaseModel
}

// Repository defines the read operations the billing engine needs on companies
type Repository interface {
	Get(ctx context.Context, id string) (*Company, error)

	Create(ctx context.Context, c *Company) error
}
