package bill

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/types"
)

// Bill is an invoice issued to either the customer or one third-party payer.
// Once created it is never mutated; corrections go through credit notes.
type Bill struct {
	ID     string  `json:"id"`
	Number *string `json:"number,omitempty"`
	// PayerID is nil for bills addressed to the customer
	PayerID      *string             `json:"payer_id,omitempty"`
	CustomerID   string              `json:"customer_id"`
	BillDate     time.Time           `json:"bill_date"`
	PeriodStart  time.Time           `json:"period_start"`
	PeriodEnd    time.Time           `json:"period_end"`
	TotalInclTax decimal.Decimal     `json:"total_incl_tax"`
	Lines        []*SubscriptionLine `json:"lines,omitempty"`
	Items        []*BillingItemLine  `json:"items,omitempty"`
	Origin       types.BillOrigin    `json:"origin"`
	Type         types.BillType      `json:"type"`
	types.BaseModel
}

// SubscriptionLine aggregates one subscription's events on a bill
type SubscriptionLine struct {
	ID               string          `json:"id"`
	BillID           string          `json:"bill_id"`
	SubscriptionID   string          `json:"subscription_id"`
	EventIDs         []string        `json:"event_ids"`
	Hours            decimal.Decimal `json:"hours"`
	EventCount       int             `json:"event_count"`
	UnitPriceInclTax decimal.Decimal `json:"unit_price_incl_tax"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	Discount         decimal.Decimal `json:"discount"`
	Surcharge        decimal.Decimal `json:"surcharge"`
	TotalExclTax     decimal.Decimal `json:"total_excl_tax"`
	TotalInclTax     decimal.Decimal `json:"total_incl_tax"`
}

// BillingItemLine is an ad-hoc priced line outside any subscription
type BillingItemLine struct {
	ID               string          `json:"id"`
	BillID           string          `json:"bill_id"`
	Name             string          `json:"name"`
	UnitPriceInclTax decimal.Decimal `json:"unit_price_incl_tax"`
	Count            int             `json:"count"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	TotalInclTax     decimal.Decimal `json:"total_incl_tax"`
}

func (b *Bill) Validate() error {
	if b.CustomerID == "" {
		return ierr.NewError("customer_id is required").
			WithHint("A bill must belong to a customer").
			Mark(ierr.ErrValidation)
	}

	if b.TotalInclTax.IsNegative() {
		return ierr.NewError("total_incl_tax must be non negative").
			WithHint("Bill totals cannot be negative").
			Mark(ierr.ErrValidation)
	}

	if b.PeriodEnd.Before(b.PeriodStart) {
		return ierr.NewError("period_end must be after period_start").
			WithHint("Invalid billing period").
			Mark(ierr.ErrValidation)
	}

	for _, line := range b.Lines {
		if line.SubscriptionID == "" {
			return ierr.NewError("line subscription_id is required").
				WithHint("Every subscription line must reference a subscription").
				Mark(ierr.ErrValidation)
		}
		if line.TotalInclTax.IsNegative() {
			return ierr.NewError("line total_incl_tax must be non negative").
				WithReportableDetails(map[string]any{
					"subscription_id": line.SubscriptionID,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}
