package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/bill"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/types"
	"github.com/curaflow/curaflow/internal/validator"
)

// CreateBillBatchRequest is the batch write surface: draft bills already
// grouped per customer into a customer bucket and zero or more payer buckets.
type CreateBillBatchRequest struct {
	PeriodStart time.Time             `json:"period_start" validate:"required"`
	PeriodEnd   time.Time             `json:"period_end" validate:"required"`
	BillDate    time.Time             `json:"bill_date"`
	Customers   []*CustomerDraftBills `json:"customers" validate:"required,min=1,dive"`
}

// CustomerDraftBills groups one customer's draft bills for the period
type CustomerDraftBills struct {
	CustomerID   string       `json:"customer_id" validate:"required"`
	CustomerBill *DraftBill   `json:"customer_bill,omitempty"`
	PayerBills   []*DraftBill `json:"payer_bills,omitempty" validate:"dive"`
}

// DraftBill is an unpersisted computed bill awaiting creation
type DraftBill struct {
	// PayerID is set on third-party buckets only
	PayerID *string                  `json:"payer_id,omitempty"`
	Lines   []*DraftSubscriptionLine `json:"lines,omitempty" validate:"dive"`
	Items   []*DraftBillingItem      `json:"items,omitempty" validate:"dive"`
}

// DraftSubscriptionLine carries one subscription's events and pricing inside
// a draft bill
type DraftSubscriptionLine struct {
	SubscriptionID   string              `json:"subscription_id" validate:"required"`
	Nature           types.BillingNature `json:"nature" validate:"required"`
	UnitPriceInclTax decimal.Decimal     `json:"unit_price_incl_tax"`
	VATRate          decimal.Decimal     `json:"vat_rate"`
	Discount         decimal.Decimal     `json:"discount"`
	// FundingID is set on payer buckets: the funding that produced the split
	FundingID *string `json:"funding_id,omitempty"`
	// FixedAmount is the per-period lump sum for fixed-amount fundings
	FixedAmount decimal.Decimal    `json:"fixed_amount"`
	Events      []*DraftEventShare `json:"events,omitempty" validate:"dive"`
}

// DraftEventShare is one event's contribution to a draft line: the hours and
// base amount charged to this bucket for this event
type DraftEventShare struct {
	Event         *serviceevent.ServiceEvent `json:"event" validate:"required"`
	Hours         decimal.Decimal            `json:"hours"`
	InclTaxAmount decimal.Decimal            `json:"incl_tax_amount"`
}

// DraftBillingItem is an ad-hoc priced line attached to a draft bill
type DraftBillingItem struct {
	Name             string          `json:"name" validate:"required"`
	UnitPriceInclTax decimal.Decimal `json:"unit_price_incl_tax"`
	Count            int             `json:"count" validate:"required,min=1"`
	VATRate          decimal.Decimal `json:"vat_rate"`
}

func (r *CreateBillBatchRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.PeriodEnd.Before(r.PeriodStart) {
		return ierr.NewError("period_end must be after period_start").
			WithHint("Invalid billing period").
			Mark(ierr.ErrValidation)
	}

	for _, c := range r.Customers {
		if c.CustomerBill == nil && len(c.PayerBills) == 0 {
			return ierr.NewError("empty draft for customer").
				WithHint("Each customer entry must carry at least one draft bill").
				WithReportableDetails(map[string]any{"customer_id": c.CustomerID}).
				Mark(ierr.ErrValidation)
		}
		for _, pb := range c.PayerBills {
			if pb.PayerID == nil || *pb.PayerID == "" {
				return ierr.NewError("payer bill without payer_id").
					WithHint("Third-party draft bills must name their payer").
					WithReportableDetails(map[string]any{"customer_id": c.CustomerID}).
					Mark(ierr.ErrValidation)
			}
		}

		drafts := c.PayerBills
		if c.CustomerBill != nil {
			drafts = append([]*DraftBill{c.CustomerBill}, drafts...)
		}
		for _, d := range drafts {
			if err := d.validateRates(c.CustomerID); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateRates rejects negative VAT rates before they reach line pricing,
// where the rate appears in a divisor
func (d *DraftBill) validateRates(customerID string) error {
	for _, line := range d.Lines {
		if line.VATRate.IsNegative() {
			return ierr.NewError("vat_rate must be non negative").
				WithHint("Draft lines cannot carry a negative VAT rate").
				WithReportableDetails(map[string]any{
					"customer_id":     customerID,
					"subscription_id": line.SubscriptionID,
					"vat_rate":        line.VATRate.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	}
	for _, item := range d.Items {
		if item.VATRate.IsNegative() {
			return ierr.NewError("vat_rate must be non negative").
				WithHint("Billing items cannot carry a negative VAT rate").
				WithReportableDetails(map[string]any{
					"customer_id": customerID,
					"item":        item.Name,
					"vat_rate":    item.VATRate.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// EventIDs returns the ids of every event referenced by the draft
func (d *DraftBill) EventIDs() []string {
	var ids []string
	for _, line := range d.Lines {
		for _, share := range line.Events {
			ids = append(ids, share.Event.ID)
		}
	}
	return ids
}

// PrepareDraftBillsRequest selects the unbilled events to turn into drafts
type PrepareDraftBillsRequest struct {
	CustomerID  string    `json:"customer_id"` // optional, empty for all customers
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
}

func (r *PrepareDraftBillsRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.PeriodEnd.Before(r.PeriodStart) {
		return ierr.NewError("period_end must be after period_start").
			WithHint("Invalid billing period").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateManualBillRequest is the ad-hoc write surface: a single bill built
// from a flat list of priced billing items, bypassing the allocator.
type CreateManualBillRequest struct {
	CustomerID string              `json:"customer_id" validate:"required"`
	BillDate   time.Time           `json:"bill_date" validate:"required"`
	Items      []*DraftBillingItem `json:"items" validate:"required,min=1,dive"`
}

func (r *CreateManualBillRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	for _, item := range r.Items {
		if item.VATRate.IsNegative() {
			return ierr.NewError("vat_rate must be non negative").
				WithHint("Billing items cannot carry a negative VAT rate").
				WithReportableDetails(map[string]any{"item": item.Name}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// BillResponse is the read shape of a bill
type BillResponse struct {
	ID           string           `json:"id"`
	Number       *string          `json:"number,omitempty"`
	CustomerID   string           `json:"customer_id"`
	PayerID      *string          `json:"payer_id,omitempty"`
	BillDate     time.Time        `json:"bill_date"`
	TotalInclTax decimal.Decimal  `json:"total_incl_tax"`
	Origin       types.BillOrigin `json:"origin"`
	Type         types.BillType   `json:"type"`
}

func NewBillResponse(b *bill.Bill) *BillResponse {
	return &BillResponse{
		ID:           b.ID,
		Number:       b.Number,
		CustomerID:   b.CustomerID,
		PayerID:      b.PayerID,
		BillDate:     b.BillDate,
		TotalInclTax: b.TotalInclTax,
		Origin:       b.Origin,
		Type:         b.Type,
	}
}

// CreateBillBatchResponse reports the bills created by one batch
type CreateBillBatchResponse struct {
	Bills []*BillResponse `json:"bills"`
	Count int             `json:"count"`
}

// ListBillsRequest selects bills for the read and export surfaces
type ListBillsRequest struct {
	CustomerID  string    `form:"customer_id" json:"customer_id"` // optional
	PayerID     string    `form:"payer_id" json:"payer_id"`       // optional
	PeriodStart time.Time `form:"period_start" json:"period_start" validate:"required" time_format:"2006-01-02"`
	PeriodEnd   time.Time `form:"period_end" json:"period_end" validate:"required" time_format:"2006-01-02"`
}

func (r *ListBillsRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.PeriodEnd.Before(r.PeriodStart) {
		return ierr.NewError("period_end must be after period_start").
			WithHint("Invalid billing period").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ListBillsResponse is the read shape of a bill listing
type ListBillsResponse struct {
	Bills []*BillResponse `json:"bills"`
	Count int             `json:"count"`
}
