package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/types"
)

// Subscription is a customer's enrollment in a service. It is owned by the
// customer record and read only to the billing engine; pricing changes are
// expressed as new versions, never as rewrites.
type Subscription struct {
	ID          string              `json:"id"`
	CustomerID  string              `json:"customer_id"`
	ServiceName string              `json:"service_name"`
	Nature      types.BillingNature `json:"nature"`
	Versions    []*Version          `json:"versions"`
	types.BaseModel
}

// Version is one time-bounded pricing configuration of a subscription
type Version struct {
	UnitPriceInclTax decimal.Decimal `json:"unit_price_incl_tax"`
	VATRate          decimal.Decimal `json:"vat_rate"`
	WeeklyVolume     decimal.Decimal `json:"weekly_volume"`
	// Discount is a flat per-period reduction applied to the customer's line
	Discount  decimal.Decimal `json:"discount"`
	StartDate time.Time       `json:"start_date"`
}

// VersionAsOf returns the last version whose start date is on or before the
// given date, or nil when the subscription did not exist yet.
func (s *Subscription) VersionAsOf(date time.Time) *Version {
	var match *Version
	for _, v := range s.Versions {
		if v.StartDate.After(date) {
			continue
		}
		if match == nil || v.StartDate.After(match.StartDate) {
			match = v
		}
	}
	return match
}

// LatestVersion returns the most recent version by start date
func (s *Subscription) LatestVersion() *Version {
	var latest *Version
	for _, v := range s.Versions {
		if latest == nil || v.StartDate.After(latest.StartDate) {
			latest = v
		}
	}
	return latest
}
