package service

import (
	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/api/dto"
	"github.com/curaflow/curaflow/internal/types"
)

// SurchargeCalculator computes the extra amount owed on a subscription line
// from the time-based percentage surcharge rules of its events.
type SurchargeCalculator interface {
	Compute(line *dto.DraftSubscriptionLine) decimal.Decimal
}

type surchargeCalculator struct{}

func NewSurchargeCalculator() SurchargeCalculator {
	return &surchargeCalculator{}
}

var oneHundred = decimal.NewFromInt(100)

// Compute returns the total surcharge for the line. An unbounded rule applies
// its percentage to the event's whole duration; a bounded rule only to the
// overlap between the event and the rule's window. Rules are additive even
// when their windows overlap each other: that mirrors contractual surcharge
// stacking, not a physical exclusivity rule. All arithmetic is exact decimal;
// the result feeds invoice totals that must reconcile to the penny.
func (c *surchargeCalculator) Compute(line *dto.DraftSubscriptionLine) decimal.Decimal {
	total := decimal.Zero

	for _, share := range line.Events {
		event := share.Event
		for _, rule := range event.Surcharges {
			var hours decimal.Decimal
			if rule.StartsAt == nil || rule.EndsAt == nil {
				hours = event.Hours()
			} else {
				hours = types.OverlapHours(event.StartsAt, event.EndsAt, *rule.StartsAt, *rule.EndsAt)
			}
			if hours.IsZero() || rule.Percentage.IsZero() {
				continue
			}

			total = total.Add(line.UnitPriceInclTax.Mul(hours).Mul(rule.Percentage).Div(oneHundred))
		}
	}

	return total
}
