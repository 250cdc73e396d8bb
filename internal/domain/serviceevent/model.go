package serviceevent

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/types"
)

// SurchargeRule is a named percentage uplift attached to an event. When the
// bounding window is nil the percentage applies to the whole event; otherwise
// only to the overlap between the event and the window.
type SurchargeRule struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	StartsAt   *time.Time      `json:"starts_at,omitempty"`
	EndsAt     *time.Time      `json:"ends_at,omitempty"`
}

// ServiceEvent is one scheduled unit of care. It is created by scheduling and
// consumed exactly once by billing: the billed flag is set irreversibly unless
// a credit note reopens the event.
type ServiceEvent struct {
	ID             string              `json:"id"`
	CustomerID     string              `json:"customer_id"`
	SubscriptionID string              `json:"subscription_id"`
	WorkerID       string              `json:"worker_id"`
	StartsAt       time.Time           `json:"starts_at"`
	EndsAt         time.Time           `json:"ends_at"`
	Nature         types.BillingNature `json:"nature"`
	Surcharges     []SurchargeRule     `json:"surcharges,omitempty"`
	Billed         bool                `json:"billed"`
	BillLineID     *string             `json:"bill_line_id,omitempty"`
	types.BaseModel
}

// Hours returns the event duration in hours as an exact decimal
func (e *ServiceEvent) Hours() decimal.Decimal {
	return types.HoursBetween(e.StartsAt, e.EndsAt)
}

// Weekday returns the care day the event falls on
func (e *ServiceEvent) Weekday() time.Weekday {
	return e.StartsAt.Weekday()
}
