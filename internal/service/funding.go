package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/api/dto"
	"github.com/curaflow/curaflow/internal/domain/customer"
	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	"github.com/curaflow/curaflow/internal/domain/subscription"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/types"
)

// FundingService enforces the funding non-overlap invariant, splits event
// costs between customer and payers, and maintains consumption counters.
type FundingService interface {
	// CheckSubscriptionFunding returns a conflict error when the candidate's
	// latest version overlaps another active funding on the same subscription
	CheckSubscriptionFunding(ctx context.Context, customerID string, candidate *funding.Funding) error

	// CreateFunding validates the non-overlap invariant and persists the funding
	CreateFunding(ctx context.Context, req *dto.CreateFundingRequest) (*dto.FundingResponse, error)

	// AllocateEvents partitions a billing period's events on a subscription
	// between the customer and at most one matching funding per event
	AllocateEvents(ctx context.Context, cust *customer.Customer, sub *subscription.Subscription, events []*serviceevent.ServiceEvent) (*AllocationResult, error)

	// RecordConsumption increments the consumption counter of a funding for
	// the shares billed to its payer. Idempotence is guaranteed upstream by
	// the event billed flag: billed events never re-enter a batch.
	RecordConsumption(ctx context.Context, fundingID string, shares []*dto.DraftEventShare, fixedAmount decimal.Decimal) error
}

// EventAllocation is the split of one event's cost
type EventAllocation struct {
	Event   *serviceevent.ServiceEvent
	Funding *funding.Funding // nil when the event bills entirely to the customer
	Version *funding.Version
	Hours   decimal.Decimal
	// PayerAmount and CustomerAmount are the hourly split; both stay zero for
	// events consumed by a fixed-amount funding (see FixedAllocation)
	PayerAmount    decimal.Decimal
	CustomerAmount decimal.Decimal
}

// FixedAllocation is the per-period lump share of one fixed-amount funding
type FixedAllocation struct {
	Funding  *funding.Funding
	Version  *funding.Version
	EventIDs []string
	Hours    decimal.Decimal
	// PayerAmount is the fixed per-period commitment
	PayerAmount decimal.Decimal
	// CustomerShortfall is the uncovered cost billed to the customer only
	// under the bill_customer shortfall policy
	CustomerShortfall decimal.Decimal
}

// AllocationResult is the outcome of allocating one subscription's events
type AllocationResult struct {
	Events []*EventAllocation
	Fixed  []*FixedAllocation
}

type fundingService struct {
	ServiceParams
}

func NewFundingService(params ServiceParams) FundingService {
	return &fundingService{ServiceParams: params}
}

func (s *fundingService) CheckSubscriptionFunding(ctx context.Context, customerID string, candidate *funding.Funding) error {
	cust, err := s.CustomerRepo.Get(ctx, customerID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Customer not found").
			WithReportableDetails(map[string]any{"customer_id": customerID}).
			Mark(ierr.ErrNotFound)
	}

	candidateVersion := candidate.LatestVersion()
	if candidateVersion == nil {
		return ierr.NewError("funding has no version").
			WithHint("A funding needs at least one version").
			Mark(ierr.ErrValidation)
	}

	for _, other := range cust.FundingsForSubscription(candidate.SubscriptionID) {
		if other.ID == candidate.ID {
			continue
		}
		otherVersion := other.LatestVersion()
		if otherVersion == nil {
			continue
		}

		if !types.RangesOverlap(candidateVersion.StartDate, candidateVersion.EndDate, otherVersion.StartDate, otherVersion.EndDate) {
			continue
		}
		if !candidateVersion.CareDays.Intersects(otherVersion.CareDays) {
			continue
		}

		return ierr.NewError("funding overlaps an existing funding").
			WithHint("Two active fundings may not claim the same subscription, care day and period").
			WithReportableDetails(map[string]any{
				"subscription_id":     candidate.SubscriptionID,
				"conflicting_funding": other.ID,
			}).
			Mark(ierr.ErrConflict)
	}

	return nil
}

func (s *fundingService) CreateFunding(ctx context.Context, req *dto.CreateFundingRequest) (*dto.FundingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	f := req.ToFunding(ctx)
	if err := s.CheckSubscriptionFunding(ctx, req.CustomerID, f); err != nil {
		return nil, err
	}

	if err := s.FundingRepo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.Logger.Infow("created funding",
		"funding_id", f.ID,
		"customer_id", f.CustomerID,
		"subscription_id", f.SubscriptionID,
		"payer_id", f.PayerID)

	return dto.NewFundingResponse(f), nil
}

func (s *fundingService) AllocateEvents(ctx context.Context, cust *customer.Customer, sub *subscription.Subscription, events []*serviceevent.ServiceEvent) (*AllocationResult, error) {
	fundings := cust.FundingsForSubscription(sub.ID)
	result := &AllocationResult{}
	fixedByFunding := make(map[string]*FixedAllocation)

	for _, event := range events {
		subVersion := sub.VersionAsOf(event.StartsAt)
		if subVersion == nil {
			return nil, ierr.NewError("event predates its subscription").
				WithHint("No subscription version is in force on the event date").
				WithReportableDetails(map[string]any{
					"event_id":        event.ID,
					"subscription_id": sub.ID,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		matched, version := matchFunding(fundings, event)
		alloc := &EventAllocation{
			Event:   event,
			Funding: matched,
			Version: version,
			Hours:   event.Hours(),
		}

		switch {
		case matched == nil:
			// no funding in force on this care day: all to the customer
			alloc.CustomerAmount = eventCost(event, sub, subVersion)

		case matched.Nature == types.BillingNatureHourly:
			payerHourly := version.PayerHourlyShare()
			customerHourly := subVersion.UnitPriceInclTax.Sub(payerHourly)
			if customerHourly.IsNegative() {
				customerHourly = decimal.Zero
			}
			alloc.PayerAmount = alloc.Hours.Mul(payerHourly)
			alloc.CustomerAmount = alloc.Hours.Mul(customerHourly)

		default: // fixed-amount funding: accumulated per period below
			fa, ok := fixedByFunding[matched.ID]
			if !ok {
				fa = &FixedAllocation{
					Funding:     matched,
					Version:     version,
					PayerAmount: version.Amount,
				}
				fixedByFunding[matched.ID] = fa
				result.Fixed = append(result.Fixed, fa)
			}
			fa.EventIDs = append(fa.EventIDs, event.ID)
			fa.Hours = fa.Hours.Add(alloc.Hours)
			fa.CustomerShortfall = fa.CustomerShortfall.Add(eventCost(event, sub, subVersion))
		}

		result.Events = append(result.Events, alloc)
	}

	// For fixed allocations the accumulated real cost becomes the shortfall
	// past the commitment, kept only when the policy bills it to the customer.
	for _, fa := range result.Fixed {
		shortfall := fa.CustomerShortfall.Sub(fa.PayerAmount)
		if shortfall.IsNegative() || fa.Funding.ShortfallPolicy != types.ShortfallPolicyBillCustomer {
			shortfall = decimal.Zero
		}
		fa.CustomerShortfall = shortfall
	}

	return result, nil
}

// matchFunding selects the funding whose version as of the event date covers
// the date and the event's weekday. The non-overlap invariant guarantees at
// most one can match.
func matchFunding(fundings []*funding.Funding, event *serviceevent.ServiceEvent) (*funding.Funding, *funding.Version) {
	for _, f := range fundings {
		v := f.VersionAsOf(event.StartsAt)
		if v != nil && v.Covers(event.StartsAt) {
			return f, v
		}
	}
	return nil, nil
}

// eventCost is an event's full price at the subscription's rate
func eventCost(event *serviceevent.ServiceEvent, sub *subscription.Subscription, v *subscription.Version) decimal.Decimal {
	if sub.Nature == types.BillingNatureFixed {
		return v.UnitPriceInclTax
	}
	return event.Hours().Mul(v.UnitPriceInclTax)
}

func (s *fundingService) RecordConsumption(ctx context.Context, fundingID string, shares []*dto.DraftEventShare, fixedAmount decimal.Decimal) error {
	f, err := s.FundingRepo.Get(ctx, fundingID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Funding not found").
			WithReportableDetails(map[string]any{"funding_id": fundingID}).
			Mark(ierr.ErrNotFound)
	}

	if f.MonthlyHours() {
		// one counter per calendar month the events fall in
		byMonth := lo.GroupBy(shares, func(share *dto.DraftEventShare) string {
			return types.MonthKey(share.Event.StartsAt)
		})
		for monthKey, monthShares := range byMonth {
			hours := decimal.Zero
			amount := decimal.Zero
			for _, share := range monthShares {
				hours = hours.Add(share.Hours)
				amount = amount.Add(share.InclTaxAmount)
			}
			history, err := s.FundingHistoryRepo.Increment(ctx, f.ID, lo.ToPtr(monthKey), hours, amount)
			if err != nil {
				return err
			}
			s.reportCapBreach(f, history)
		}
		return nil
	}

	hours := decimal.Zero
	amount := fixedAmount
	for _, share := range shares {
		hours = hours.Add(share.Hours)
		amount = amount.Add(share.InclTaxAmount)
	}
	history, err := s.FundingHistoryRepo.Increment(ctx, f.ID, nil, hours, amount)
	if err != nil {
		return err
	}
	s.reportCapBreach(f, history)

	return nil
}

// reportCapBreach reports a plan-limit breach without clamping the counter
func (s *fundingService) reportCapBreach(f *funding.Funding, history *funding.History) {
	version := f.LatestVersion()
	if version == nil || version.CareHours.IsZero() {
		return
	}
	if history.Hours.GreaterThan(version.CareHours) {
		s.Logger.Warnw("funding plan limit exceeded",
			"funding_id", f.ID,
			"month_key", lo.FromPtr(history.MonthKey),
			"consumed_hours", history.Hours.String(),
			"plan_hours", version.CareHours.String())
	}
}
