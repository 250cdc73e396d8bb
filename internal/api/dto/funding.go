package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/types"
	"github.com/curaflow/curaflow/internal/validator"
)

// CreateFundingRequest creates or versions a funding for a customer's
// subscription. The request is rejected when the candidate overlaps another
// active funding on the same subscription.
type CreateFundingRequest struct {
	ID              string                   `json:"id"` // set on updates, empty on creation
	CustomerID      string                   `json:"customer_id" validate:"required"`
	SubscriptionID  string                   `json:"subscription_id" validate:"required"`
	PayerID         string                   `json:"payer_id" validate:"required"`
	Nature          types.BillingNature      `json:"nature" validate:"required"`
	Frequency       types.FundingFrequency   `json:"frequency" validate:"required"`
	FolderNumber    string                   `json:"folder_number"`
	ShortfallPolicy types.ShortfallPolicy    `json:"shortfall_policy"`
	Versions        []*FundingVersionRequest `json:"versions" validate:"required,min=1,dive"`
}

// FundingVersionRequest is one time-bounded funding configuration
type FundingVersionRequest struct {
	StartDate             time.Time       `json:"start_date" validate:"required"`
	EndDate               *time.Time      `json:"end_date,omitempty"`
	CareDays              []time.Weekday  `json:"care_days" validate:"required,min=1"`
	HourlyRate            decimal.Decimal `json:"hourly_rate"`
	Amount                decimal.Decimal `json:"amount"`
	CustomerParticipation decimal.Decimal `json:"customer_participation"`
	CareHours             decimal.Decimal `json:"care_hours"`
}

func (r *CreateFundingRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Nature.Validate(); err != nil {
		return err
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	return r.ShortfallPolicy.Validate()
}

// ToFunding converts the request to a domain funding
func (r *CreateFundingRequest) ToFunding(ctx context.Context) *funding.Funding {
	f := &funding.Funding{
		ID:              r.ID,
		CustomerID:      r.CustomerID,
		SubscriptionID:  r.SubscriptionID,
		PayerID:         r.PayerID,
		Nature:          r.Nature,
		Frequency:       r.Frequency,
		FolderNumber:    r.FolderNumber,
		ShortfallPolicy: r.ShortfallPolicy,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if f.ID == "" {
		f.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FUNDING)
	}
	if f.ShortfallPolicy == "" {
		f.ShortfallPolicy = types.ShortfallPolicyAbsorb
	}
	for _, v := range r.Versions {
		f.Versions = append(f.Versions, &funding.Version{
			StartDate:             v.StartDate,
			EndDate:               v.EndDate,
			CareDays:              types.CareDays(v.CareDays),
			HourlyRate:            v.HourlyRate,
			Amount:                v.Amount,
			CustomerParticipation: v.CustomerParticipation,
			CareHours:             v.CareHours,
		})
	}
	return f
}

// FundingResponse is the read shape of a funding
type FundingResponse struct {
	ID              string                 `json:"id"`
	CustomerID      string                 `json:"customer_id"`
	SubscriptionID  string                 `json:"subscription_id"`
	PayerID         string                 `json:"payer_id"`
	Nature          types.BillingNature    `json:"nature"`
	Frequency       types.FundingFrequency `json:"frequency"`
	FolderNumber    string                 `json:"folder_number"`
	ShortfallPolicy types.ShortfallPolicy  `json:"shortfall_policy"`
	Versions        []*funding.Version     `json:"versions"`
}

func NewFundingResponse(f *funding.Funding) *FundingResponse {
	return &FundingResponse{
		ID:              f.ID,
		CustomerID:      f.CustomerID,
		SubscriptionID:  f.SubscriptionID,
		PayerID:         f.PayerID,
		Nature:          f.Nature,
		Frequency:       f.Frequency,
		FolderNumber:    f.FolderNumber,
		ShortfallPolicy: f.ShortfallPolicy,
		Versions:        f.Versions,
	}
}
