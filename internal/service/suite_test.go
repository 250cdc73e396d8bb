package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/domain/company"
	"github.com/curaflow/curaflow/internal/domain/customer"
	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/domain/payer"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	"github.com/curaflow/curaflow/internal/domain/subscription"
	"github.com/curaflow/curaflow/internal/testutil"
	"github.com/curaflow/curaflow/internal/types"
)

func newTestParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		DB:                 s.GetDB(),
		CompanyRepo:        stores.CompanyRepo,
		CustomerRepo:       stores.CustomerRepo,
		PayerRepo:          stores.PayerRepo,
		EventRepo:          stores.EventRepo,
		FundingRepo:        stores.FundingRepo,
		FundingHistoryRepo: stores.FundingHistoryRepo,
		BillRepo:           stores.BillRepo,
		BillSequenceRepo:   stores.BillSequenceRepo,
		CreditNoteRepo:     stores.CreditNoteRepo,
	}
}

func seedCompany(ctx context.Context, s *testutil.BaseServiceTestSuite) *company.Company {
	comp := &company.Company{
		ID:        types.DefaultCompanyID,
		Name:      "CuraFlow Care",
		ShortCode: "CURA",
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	if err := s.GetStores().CompanyRepo.Create(ctx, comp); err != nil {
		s.T().Fatalf("failed to seed company: %v", err)
	}
	return comp
}

func seedPayer(ctx context.Context, s *testutil.BaseServiceTestSuite, id string, external bool) *payer.Payer {
	p := &payer.Payer{
		ID:              id,
		Name:            "Payer " + id,
		ExternalBilling: external,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := s.GetStores().PayerRepo.Create(ctx, p); err != nil {
		s.T().Fatalf("failed to seed payer: %v", err)
	}
	return p
}

func hourlySubscription(id, customerID, unitPrice, vatRate string, start time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		ID:          id,
		CustomerID:  customerID,
		ServiceName: "home care",
		Nature:      types.BillingNatureHourly,
		Versions: []*subscription.Version{
			{
				UnitPriceInclTax: decimal.RequireFromString(unitPrice),
				VATRate:          decimal.RequireFromString(vatRate),
				StartDate:        start,
			},
		},
	}
}

func hourlyFunding(id, customerID, subscriptionID, payerID string, careDays types.CareDays, rate, participation string, start time.Time, end *time.Time) *funding.Funding {
	return &funding.Funding{
		ID:             id,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		PayerID:        payerID,
		Nature:         types.BillingNatureHourly,
		Frequency:      types.FundingFrequencyMonthly,
		Versions: []*funding.Version{
			{
				StartDate:             start,
				EndDate:               end,
				CareDays:              careDays,
				HourlyRate:            decimal.RequireFromString(rate),
				CustomerParticipation: decimal.RequireFromString(participation),
			},
		},
	}
}

func fixedFunding(id, customerID, subscriptionID, payerID string, careDays types.CareDays, amount string, policy types.ShortfallPolicy, start time.Time) *funding.Funding {
	return &funding.Funding{
		ID:              id,
		CustomerID:      customerID,
		SubscriptionID:  subscriptionID,
		PayerID:         payerID,
		Nature:          types.BillingNatureFixed,
		Frequency:       types.FundingFrequencyOnce,
		ShortfallPolicy: policy,
		Versions: []*funding.Version{
			{
				StartDate: start,
				CareDays:  careDays,
				Amount:    decimal.RequireFromString(amount),
			},
		},
	}
}

func seedCustomer(ctx context.Context, s *testutil.BaseServiceTestSuite, id string, subs []*subscription.Subscription, fundings []*funding.Funding) *customer.Customer {
	cust := &customer.Customer{
		ID:            id,
		Name:          "Customer " + id,
		Subscriptions: subs,
		Fundings:      fundings,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if err := s.GetStores().CustomerRepo.Create(ctx, cust); err != nil {
		s.T().Fatalf("failed to seed customer: %v", err)
	}
	for _, f := range fundings {
		if err := s.GetStores().FundingRepo.Create(ctx, f); err != nil {
			s.T().Fatalf("failed to seed funding: %v", err)
		}
	}
	return cust
}

func seedEvent(ctx context.Context, s *testutil.BaseServiceTestSuite, id, customerID, subscriptionID string, start time.Time, duration time.Duration, surcharges ...serviceevent.SurchargeRule) *serviceevent.ServiceEvent {
	event := &serviceevent.ServiceEvent{
		ID:             id,
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		WorkerID:       "worker_1",
		StartsAt:       start,
		EndsAt:         start.Add(duration),
		Nature:         types.BillingNatureHourly,
		Surcharges:     surcharges,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := s.GetStores().EventRepo.Create(ctx, event); err != nil {
		s.T().Fatalf("failed to seed event: %v", err)
	}
	return event
}

func decEqual(d decimal.Decimal, expected string) bool {
	return d.Equal(decimal.RequireFromString(expected))
}
