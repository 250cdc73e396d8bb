package funding

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/types"
)

// Funding is a third-party payer's commitment to cover part of the cost of a
// customer's subscription. Its configuration over time is a list of ordered
// versions; consumption counters are mutated only at billing time.
type Funding struct {
	ID             string                 `json:"id"`
	CustomerID     string                 `json:"customer_id"`
	SubscriptionID string                 `json:"subscription_id"`
	PayerID        string                 `json:"payer_id"`
	Nature         types.BillingNature    `json:"nature"`
	Frequency      types.FundingFrequency `json:"frequency"`
	FolderNumber   string                 `json:"folder_number"`
	// ShortfallPolicy controls whether a fixed-amount funding that underfunds
	// real cost leaves the difference with the agency or the customer.
	ShortfallPolicy types.ShortfallPolicy `json:"shortfall_policy"`
	Versions        []*Version            `json:"versions"`
	types.BaseModel
}

// Version is one time-bounded configuration of a funding
type Version struct {
	StartDate time.Time      `json:"start_date"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
	CareDays  types.CareDays `json:"care_days"`
	// HourlyRate is the payer's reference rate for hourly fundings
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	// Amount is the per-period commitment for fixed-amount fundings
	Amount decimal.Decimal `json:"amount"`
	// CustomerParticipation is the percentage of the rate the payer does not
	// cover and the customer keeps paying
	CustomerParticipation decimal.Decimal `json:"customer_participation"`
	// CareHours is the plan's hour allowance per period for hourly fundings;
	// zero means uncapped
	CareHours decimal.Decimal `json:"care_hours"`
}

// PayerHourlyShare is the amount the payer covers per hour of care
func (v *Version) PayerHourlyShare() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return v.HourlyRate.Mul(hundred.Sub(v.CustomerParticipation)).Div(hundred)
}

// Covers reports whether the version is in force on the given date and
// includes its weekday in the care days
func (v *Version) Covers(date time.Time) bool {
	day := date.UTC().Truncate(24 * time.Hour)
	if v.StartDate.After(date) {
		return false
	}
	if v.EndDate != nil && v.EndDate.Before(day) {
		return false
	}
	return v.CareDays.Contains(date.Weekday())
}

// LatestVersion returns the most recent version by start date
func (f *Funding) LatestVersion() *Version {
	var latest *Version
	for _, v := range f.Versions {
		if latest == nil || v.StartDate.After(latest.StartDate) {
			latest = v
		}
	}
	return latest
}

// VersionAsOf returns the last version started on or before the given date
func (f *Funding) VersionAsOf(date time.Time) *Version {
	var match *Version
	for _, v := range f.Versions {
		if v.StartDate.After(date) {
			continue
		}
		if match == nil || v.StartDate.After(match.StartDate) {
			match = v
		}
	}
	return match
}

// MonthlyHours reports whether consumption is tracked per calendar month
func (f *Funding) MonthlyHours() bool {
	return f.Nature == types.BillingNatureHourly && f.Frequency == types.FundingFrequencyMonthly
}

// History is a running consumption counter for a funding. Hourly-monthly
// fundings get one counter per calendar month (MonthKey set); everything else
// accumulates on a single lifetime counter.
type History struct {
	ID        string          `json:"id"`
	FundingID string          `json:"funding_id"`
	MonthKey  *string         `json:"month_key,omitempty"`
	Hours     decimal.Decimal `json:"hours"`
	Amount    decimal.Decimal `json:"amount"`
	types.BaseModel
}
