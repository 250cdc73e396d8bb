package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/curaflow/curaflow/internal/api/dto"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
)

func surchargeLine(unitPrice string, events ...*serviceevent.ServiceEvent) *dto.DraftSubscriptionLine {
	line := &dto.DraftSubscriptionLine{
		SubscriptionID:   "subs_1",
		UnitPriceInclTax: decimal.RequireFromString(unitPrice),
	}
	for _, e := range events {
		line.Events = append(line.Events, &dto.DraftEventShare{Event: e, Hours: e.Hours()})
	}
	return line
}

func TestComputeSurchargeUnbounded(t *testing.T) {
	calc := NewSurchargeCalculator()
	start := time.Date(2026, 1, 4, 10, 0, 0, 0, time.UTC) // a Sunday

	event := &serviceevent.ServiceEvent{
		ID:       "evt_1",
		StartsAt: start,
		EndsAt:   start.Add(2 * time.Hour),
		Surcharges: []serviceevent.SurchargeRule{
			{Name: "sunday", Percentage: decimal.RequireFromString("25")},
		},
	}

	// 20.00 * 2h * 25% = 10.00
	total := calc.Compute(surchargeLine("20", event))
	assert.True(t, total.Equal(decimal.RequireFromString("10")), total.String())
}

func TestComputeSurchargeBoundedWindow(t *testing.T) {
	calc := NewSurchargeCalculator()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	event := &serviceevent.ServiceEvent{
		ID:       "evt_1",
		StartsAt: start,
		EndsAt:   end,
		Surcharges: []serviceevent.SurchargeRule{
			{
				Name:       "evening",
				Percentage: decimal.RequireFromString("25"),
				StartsAt:   lo.ToPtr(end.Add(-30 * time.Minute)),
				EndsAt:     lo.ToPtr(end),
			},
		},
	}

	// 20.00 * 0.5h * 25% = 2.50
	total := calc.Compute(surchargeLine("20", event))
	assert.True(t, total.Equal(decimal.RequireFromString("2.5")), total.String())
}

func TestComputeSurchargeAdditivity(t *testing.T) {
	calc := NewSurchargeCalculator()
	start := time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	// disjoint bounded windows fully inside the event sum exactly
	event := &serviceevent.ServiceEvent{
		ID:       "evt_1",
		StartsAt: start,
		EndsAt:   end,
		Surcharges: []serviceevent.SurchargeRule{
			{
				Name:       "evening",
				Percentage: decimal.RequireFromString("20"),
				StartsAt:   lo.ToPtr(start),
				EndsAt:     lo.ToPtr(start.Add(time.Hour)),
			},
			{
				Name:       "night",
				Percentage: decimal.RequireFromString("50"),
				StartsAt:   lo.ToPtr(start.Add(3 * time.Hour)),
				EndsAt:     lo.ToPtr(end),
			},
		},
	}

	// 10.00*1h*20% + 10.00*1h*50% = 2.00 + 5.00
	total := calc.Compute(surchargeLine("10", event))
	assert.True(t, total.Equal(decimal.RequireFromString("7")), total.String())
}

func TestComputeSurchargeOverlappingRulesStack(t *testing.T) {
	calc := NewSurchargeCalculator()
	start := time.Date(2026, 1, 4, 20, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	// additive-always: both rules charge their full overlap even where the
	// windows coincide
	event := &serviceevent.ServiceEvent{
		ID:       "evt_1",
		StartsAt: start,
		EndsAt:   end,
		Surcharges: []serviceevent.SurchargeRule{
			{Name: "sunday", Percentage: decimal.RequireFromString("25")},
			{
				Name:       "night",
				Percentage: decimal.RequireFromString("10"),
				StartsAt:   lo.ToPtr(start.Add(time.Hour)),
				EndsAt:     lo.ToPtr(end),
			},
		},
	}

	// 20.00*2h*25% + 20.00*1h*10% = 10.00 + 2.00
	total := calc.Compute(surchargeLine("20", event))
	assert.True(t, total.Equal(decimal.RequireFromString("12")), total.String())
}

func TestComputeSurchargeNoRules(t *testing.T) {
	calc := NewSurchargeCalculator()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	event := &serviceevent.ServiceEvent{
		ID:       "evt_1",
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
	}

	assert.True(t, calc.Compute(surchargeLine("20", event)).IsZero())
}

func TestComputeSurchargeDisjointWindow(t *testing.T) {
	calc := NewSurchargeCalculator()
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	event := &serviceevent.ServiceEvent{
		ID:       "evt_1",
		StartsAt: start,
		EndsAt:   end,
		Surcharges: []serviceevent.SurchargeRule{
			{
				Name:       "evening",
				Percentage: decimal.RequireFromString("25"),
				StartsAt:   lo.ToPtr(end.Add(6 * time.Hour)),
				EndsAt:     lo.ToPtr(end.Add(8 * time.Hour)),
			},
		},
	}

	assert.True(t, calc.Compute(surchargeLine("20", event)).IsZero())
}
