package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/curaflow/curaflow/internal/api/dto"
	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	"github.com/curaflow/curaflow/internal/domain/subscription"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/testutil"
	"github.com/curaflow/curaflow/internal/types"
)

type FundingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service FundingService
}

func TestFundingService(t *testing.T) {
	suite.Run(t, new(FundingServiceSuite))
}

func (s *FundingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewFundingService(newTestParams(&s.BaseServiceTestSuite))
}

var (
	jan1 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// 2026-01-05 is a Monday
	monday  = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC)
)

func (s *FundingServiceSuite) seedFundedCustomer() (*subscription.Subscription, string) {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := hourlyFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday, time.Wednesday}, "15", "0", jan1, nil)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})
	return sub, f.ID
}

func (s *FundingServiceSuite) TestCheckSubscriptionFundingNoExisting() {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, nil)

	candidate := hourlyFunding("fund_new", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday}, "15", "0", jan1, nil)

	s.NoError(s.service.CheckSubscriptionFunding(ctx, "cust_1", candidate))
}

func (s *FundingServiceSuite) TestCheckSubscriptionFundingConflict() {
	ctx := s.GetContext()
	s.seedFundedCustomer()

	// identical care days, overlapping open-ended ranges
	candidate := hourlyFunding("fund_new", "cust_1", "subs_1", "payer_2",
		types.CareDays{time.Monday}, "12", "0", jan1.AddDate(0, 3, 0), nil)

	err := s.service.CheckSubscriptionFunding(ctx, "cust_1", candidate)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *FundingServiceSuite) TestCheckSubscriptionFundingDisjointCareDays() {
	ctx := s.GetContext()
	s.seedFundedCustomer()

	candidate := hourlyFunding("fund_new", "cust_1", "subs_1", "payer_2",
		types.CareDays{time.Tuesday, time.Thursday}, "12", "0", jan1, nil)

	s.NoError(s.service.CheckSubscriptionFunding(ctx, "cust_1", candidate))
}

func (s *FundingServiceSuite) TestCheckSubscriptionFundingDisjointRanges() {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	existing := hourlyFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday}, "15", "0", jan1, lo.ToPtr(jan1.AddDate(0, 3, 0)))
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{existing})

	candidate := hourlyFunding("fund_new", "cust_1", "subs_1", "payer_2",
		types.CareDays{time.Monday}, "12", "0", jan1.AddDate(0, 6, 0), nil)

	s.NoError(s.service.CheckSubscriptionFunding(ctx, "cust_1", candidate))
}

func (s *FundingServiceSuite) TestCheckSubscriptionFundingExcludesSelfOnUpdate() {
	ctx := s.GetContext()
	_, fundingID := s.seedFundedCustomer()

	// updating the funding itself never conflicts with its own record
	candidate := hourlyFunding(fundingID, "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday, time.Wednesday}, "16", "0", jan1, nil)

	s.NoError(s.service.CheckSubscriptionFunding(ctx, "cust_1", candidate))
}

func (s *FundingServiceSuite) TestCheckSubscriptionFundingUnknownCustomer() {
	err := s.service.CheckSubscriptionFunding(s.GetContext(), "cust_missing",
		hourlyFunding("fund_new", "cust_missing", "subs_1", "payer_1",
			types.CareDays{time.Monday}, "15", "0", jan1, nil))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *FundingServiceSuite) TestCreateFundingRejectsConflictBeforePersisting() {
	ctx := s.GetContext()
	s.seedFundedCustomer()

	req := &dto.CreateFundingRequest{
		CustomerID:     "cust_1",
		SubscriptionID: "subs_1",
		PayerID:        "payer_2",
		Nature:         types.BillingNatureHourly,
		Frequency:      types.FundingFrequencyMonthly,
		Versions: []*dto.FundingVersionRequest{
			{
				StartDate:  jan1,
				CareDays:   []time.Weekday{time.Monday},
				HourlyRate: decimal.RequireFromString("12"),
			},
		},
	}

	_, err := s.service.CreateFunding(ctx, req)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *FundingServiceSuite) TestAllocateEventsHourlySplit() {
	ctx := s.GetContext()
	sub, fundingID := s.seedFundedCustomer()
	cust, err := s.GetStores().CustomerRepo.Get(ctx, "cust_1")
	s.Require().NoError(err)

	event := seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, 2*time.Hour)

	result, err := s.service.AllocateEvents(ctx, cust, sub, []*serviceevent.ServiceEvent{event})
	s.Require().NoError(err)
	s.Require().Len(result.Events, 1)

	alloc := result.Events[0]
	s.Equal(fundingID, alloc.Funding.ID)
	s.True(decEqual(alloc.Hours, "2"))
	s.True(decEqual(alloc.PayerAmount, "30"), alloc.PayerAmount.String())
	s.True(decEqual(alloc.CustomerAmount, "10"), alloc.CustomerAmount.String())
}

func (s *FundingServiceSuite) TestAllocateEventsOutsideCareDays() {
	ctx := s.GetContext()
	sub, _ := s.seedFundedCustomer()
	cust, err := s.GetStores().CustomerRepo.Get(ctx, "cust_1")
	s.Require().NoError(err)

	// Tuesday is not a care day: everything bills to the customer
	event := seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", tuesday, 2*time.Hour)

	result, err := s.service.AllocateEvents(ctx, cust, sub, []*serviceevent.ServiceEvent{event})
	s.Require().NoError(err)
	s.Require().Len(result.Events, 1)

	alloc := result.Events[0]
	s.Nil(alloc.Funding)
	s.True(alloc.PayerAmount.IsZero())
	s.True(decEqual(alloc.CustomerAmount, "40"), alloc.CustomerAmount.String())
}

func (s *FundingServiceSuite) TestAllocateEventsPayerRateAboveUnitPrice() {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := hourlyFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday}, "25", "0", jan1, nil)
	cust := seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})

	event := seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, time.Hour)

	result, err := s.service.AllocateEvents(ctx, cust, sub, []*serviceevent.ServiceEvent{event})
	s.Require().NoError(err)

	// customer share floors at zero when the payer rate exceeds the price
	alloc := result.Events[0]
	s.True(decEqual(alloc.PayerAmount, "25"))
	s.True(alloc.CustomerAmount.IsZero())
}

func (s *FundingServiceSuite) TestAllocateEventsVersionAsOfEventDate() {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := hourlyFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday}, "10", "0", jan1, nil)
	f.Versions = append(f.Versions, &funding.Version{
		StartDate:  time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
		CareDays:   types.CareDays{time.Monday},
		HourlyRate: decimal.RequireFromString("15"),
	})
	cust := seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})

	event := seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, time.Hour)

	result, err := s.service.AllocateEvents(ctx, cust, sub, []*serviceevent.ServiceEvent{event})
	s.Require().NoError(err)

	// the second version is in force on the event date
	s.True(decEqual(result.Events[0].PayerAmount, "15"), result.Events[0].PayerAmount.String())
}

func (s *FundingServiceSuite) TestAllocateEventsFixedShortfallAbsorbed() {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := fixedFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday}, "50", types.ShortfallPolicyAbsorb, jan1)
	cust := seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})

	// 3h at 20.00 = 60.00 real cost against a 50.00 commitment
	event := seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, 3*time.Hour)

	result, err := s.service.AllocateEvents(ctx, cust, sub, []*serviceevent.ServiceEvent{event})
	s.Require().NoError(err)
	s.Require().Len(result.Fixed, 1)

	fixed := result.Fixed[0]
	s.True(decEqual(fixed.PayerAmount, "50"))
	s.True(fixed.CustomerShortfall.IsZero(), "absorb policy keeps the shortfall with the agency")
}

func (s *FundingServiceSuite) TestAllocateEventsFixedShortfallBilledToCustomer() {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := fixedFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday}, "50", types.ShortfallPolicyBillCustomer, jan1)
	cust := seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})

	event := seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, 3*time.Hour)

	result, err := s.service.AllocateEvents(ctx, cust, sub, []*serviceevent.ServiceEvent{event})
	s.Require().NoError(err)
	s.Require().Len(result.Fixed, 1)

	s.True(decEqual(result.Fixed[0].CustomerShortfall, "10"),
		result.Fixed[0].CustomerShortfall.String())
}

func (s *FundingServiceSuite) TestRecordConsumptionMonthlyCounters() {
	ctx := s.GetContext()
	_, fundingID := s.seedFundedCustomer()

	febMonday := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	shares := []*dto.DraftEventShare{
		{
			Event:         &serviceevent.ServiceEvent{ID: "evt_1", StartsAt: monday},
			Hours:         decimal.RequireFromString("2"),
			InclTaxAmount: decimal.RequireFromString("30"),
		},
		{
			Event:         &serviceevent.ServiceEvent{ID: "evt_2", StartsAt: febMonday},
			Hours:         decimal.RequireFromString("1"),
			InclTaxAmount: decimal.RequireFromString("15"),
		},
	}

	s.Require().NoError(s.service.RecordConsumption(ctx, fundingID, shares, decimal.Zero))

	jan, err := s.GetStores().FundingHistoryRepo.Get(ctx, fundingID, lo.ToPtr("202601"))
	s.Require().NoError(err)
	s.True(decEqual(jan.Hours, "2"))
	s.True(decEqual(jan.Amount, "30"))

	feb, err := s.GetStores().FundingHistoryRepo.Get(ctx, fundingID, lo.ToPtr("202602"))
	s.Require().NoError(err)
	s.True(decEqual(feb.Hours, "1"))

	// a later batch accumulates on the same monthly counter
	s.Require().NoError(s.service.RecordConsumption(ctx, fundingID, shares[:1], decimal.Zero))
	jan, err = s.GetStores().FundingHistoryRepo.Get(ctx, fundingID, lo.ToPtr("202601"))
	s.Require().NoError(err)
	s.True(decEqual(jan.Hours, "4"), jan.Hours.String())
	s.True(decEqual(jan.Amount, "60"), jan.Amount.String())
}

func (s *FundingServiceSuite) TestRecordConsumptionLifetimeCounterForFixed() {
	ctx := s.GetContext()
	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := fixedFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday}, "50", types.ShortfallPolicyAbsorb, jan1)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})

	shares := []*dto.DraftEventShare{
		{
			Event: &serviceevent.ServiceEvent{ID: "evt_1", StartsAt: monday},
			Hours: decimal.RequireFromString("3"),
		},
	}

	s.Require().NoError(s.service.RecordConsumption(ctx, "fund_1", shares, decimal.RequireFromString("50")))

	history, err := s.GetStores().FundingHistoryRepo.Get(ctx, "fund_1", nil)
	s.Require().NoError(err)
	s.True(decEqual(history.Hours, "3"))
	s.True(decEqual(history.Amount, "50"), history.Amount.String())
}
