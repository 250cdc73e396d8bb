package service

import (
	"bytes"
	"context"
	"strings"
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

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewBillingService(newTestParams(&s.BaseServiceTestSuite))
}

var (
	periodStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
)

// seedWorkedExample sets up one hourly subscription at 20.00/hr with a
// Mon/Wed funding at a 15.00/hr payer rate fully covered by the payer, and a
// 2h Monday event carrying a 25% surcharge on its last 30 minutes.
func (s *BillingServiceSuite) seedWorkedExample() *serviceevent.ServiceEvent {
	ctx := s.GetContext()
	seedCompany(ctx, &s.BaseServiceTestSuite)
	seedPayer(ctx, &s.BaseServiceTestSuite, "payer_1", false)

	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := hourlyFunding("fund_1", "cust_1", "subs_1", "payer_1",
		types.CareDays{time.Monday, time.Wednesday}, "15", "0", jan1, nil)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})

	eventEnd := monday.Add(2 * time.Hour)
	return seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, 2*time.Hour,
		serviceevent.SurchargeRule{
			Name:       "sunday",
			Percentage: decimal.RequireFromString("25"),
			StartsAt:   lo.ToPtr(eventEnd.Add(-30 * time.Minute)),
			EndsAt:     lo.ToPtr(eventEnd),
		})
}

func (s *BillingServiceSuite) prepare() *dto.CreateBillBatchRequest {
	draft, err := s.service.PrepareDraftBills(s.GetContext(), &dto.PrepareDraftBillsRequest{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	s.Require().NoError(err)
	return draft
}

func (s *BillingServiceSuite) TestPrepareDraftBillsSplitsBuckets() {
	s.seedWorkedExample()
	draft := s.prepare()

	s.Require().Len(draft.Customers, 1)
	cd := draft.Customers[0]
	s.Equal("cust_1", cd.CustomerID)

	s.Require().NotNil(cd.CustomerBill)
	s.Require().Len(cd.CustomerBill.Lines, 1)
	customerLine := cd.CustomerBill.Lines[0]
	s.Require().Len(customerLine.Events, 1)
	s.True(decEqual(customerLine.Events[0].InclTaxAmount, "10"),
		customerLine.Events[0].InclTaxAmount.String())

	s.Require().Len(cd.PayerBills, 1)
	payerBill := cd.PayerBills[0]
	s.Equal("payer_1", lo.FromPtr(payerBill.PayerID))
	s.Require().Len(payerBill.Lines, 1)
	s.Equal("fund_1", lo.FromPtr(payerBill.Lines[0].FundingID))
	s.True(decEqual(payerBill.Lines[0].Events[0].InclTaxAmount, "30"))
}

func (s *BillingServiceSuite) TestCreateBillsWorkedExample() {
	s.seedWorkedExample()
	resp, err := s.service.CreateBills(s.GetContext(), s.prepare())
	s.Require().NoError(err)

	s.Equal(2, resp.Count)

	// customer bill first: base 10.00 + surcharge 20.00*0.5h*25% = 12.50
	customerBill := resp.Bills[0]
	s.Nil(customerBill.PayerID)
	s.Equal("FACTCURA012600001", lo.FromPtr(customerBill.Number))
	s.True(decEqual(customerBill.TotalInclTax, "12.5"), customerBill.TotalInclTax.String())

	payerBill := resp.Bills[1]
	s.Equal("payer_1", lo.FromPtr(payerBill.PayerID))
	s.Equal("FACTCURA012600002", lo.FromPtr(payerBill.Number))
	s.True(decEqual(payerBill.TotalInclTax, "30"), payerBill.TotalInclTax.String())

	// 12.50 + 30.00 = 42.50 for the event across both bills
	total := customerBill.TotalInclTax.Add(payerBill.TotalInclTax)
	s.True(decEqual(total, "42.5"))

	// surcharge lives on the customer line only
	full, err := s.service.GetBill(s.GetContext(), customerBill.ID)
	s.Require().NoError(err)
	stored, err := s.GetStores().BillRepo.Get(s.GetContext(), full.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Lines, 1)
	s.True(decEqual(stored.Lines[0].Surcharge, "2.5"), stored.Lines[0].Surcharge.String())
}

func (s *BillingServiceSuite) TestCreateBillsMarksEventsAndCounters() {
	event := s.seedWorkedExample()
	_, err := s.service.CreateBills(s.GetContext(), s.prepare())
	s.Require().NoError(err)

	billed, err := s.GetStores().EventRepo.Get(s.GetContext(), event.ID)
	s.Require().NoError(err)
	s.True(billed.Billed)
	s.NotNil(billed.BillLineID)

	history, err := s.GetStores().FundingHistoryRepo.Get(s.GetContext(), "fund_1", lo.ToPtr("202601"))
	s.Require().NoError(err)
	s.True(decEqual(history.Hours, "2"), history.Hours.String())
	s.True(decEqual(history.Amount, "30"), history.Amount.String())
}

func (s *BillingServiceSuite) TestSecondRunIsNoOp() {
	s.seedWorkedExample()
	_, err := s.service.CreateBills(s.GetContext(), s.prepare())
	s.Require().NoError(err)

	// re-running the draft query finds nothing: billed events never come back
	draft, err := s.service.PrepareDraftBills(s.GetContext(), &dto.PrepareDraftBillsRequest{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	s.Require().NoError(err)
	s.Empty(draft.Customers)
}

func (s *BillingServiceSuite) TestCreateBillsRejectsAlreadyBilledEvents() {
	s.seedWorkedExample()
	draft := s.prepare()
	_, err := s.service.CreateBills(s.GetContext(), draft)
	s.Require().NoError(err)

	// replaying the same batch must fail before touching the sequence
	_, err = s.service.CreateBills(s.GetContext(), draft)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	next, err := s.GetStores().BillSequenceRepo.Peek(s.GetContext(), types.DefaultCompanyID, "0126")
	s.Require().NoError(err)
	s.Equal(int64(3), next)
}

func (s *BillingServiceSuite) TestCreateBillsRejectsNegativeVATRate() {
	s.seedWorkedExample()
	draft := s.prepare()
	draft.Customers[0].CustomerBill.Lines[0].VATRate = decimal.NewFromInt(-100)

	_, err := s.service.CreateBills(s.GetContext(), draft)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// rejected before any bill was persisted or numbered
	listed, err := s.service.ListBills(s.GetContext(), &dto.ListBillsRequest{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	s.Require().NoError(err)
	s.Equal(0, listed.Count)
}

func (s *BillingServiceSuite) TestPrepareDraftBillsIncludesEventCrossingPeriodEnd() {
	ctx := s.GetContext()
	seedCompany(ctx, &s.BaseServiceTestSuite)

	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, nil)

	// starts inside the period, ends after it: still belongs to this period
	lateStart := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
	seedEvent(ctx, &s.BaseServiceTestSuite, "evt_late", "cust_1", "subs_1", lateStart, 2*time.Hour)

	draft := s.prepare()
	s.Require().Len(draft.Customers, 1)
	s.Require().NotNil(draft.Customers[0].CustomerBill)
	s.Require().Len(draft.Customers[0].CustomerBill.Lines, 1)
	s.Require().Len(draft.Customers[0].CustomerBill.Lines[0].Events, 1)
	s.Equal("evt_late", draft.Customers[0].CustomerBill.Lines[0].Events[0].Event.ID)
}

func (s *BillingServiceSuite) TestSequenceIsGapFreeAcrossBatches() {
	ctx := s.GetContext()
	seedCompany(ctx, &s.BaseServiceTestSuite)
	seedPayer(ctx, &s.BaseServiceTestSuite, "payer_1", false)

	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, nil)

	seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, time.Hour)
	resp, err := s.service.CreateBills(ctx, s.prepare())
	s.Require().NoError(err)
	s.Equal("FACTCURA012600001", lo.FromPtr(resp.Bills[0].Number))

	seedEvent(ctx, &s.BaseServiceTestSuite, "evt_2", "cust_1", "subs_1", tuesday, time.Hour)
	resp, err = s.service.CreateBills(ctx, s.prepare())
	s.Require().NoError(err)
	s.Equal("FACTCURA012600002", lo.FromPtr(resp.Bills[0].Number))
}

func (s *BillingServiceSuite) TestExternallyNumberedPayerBills() {
	ctx := s.GetContext()
	seedCompany(ctx, &s.BaseServiceTestSuite)
	seedPayer(ctx, &s.BaseServiceTestSuite, "payer_ext", true)

	sub := hourlySubscription("subs_1", "cust_1", "20", "10", jan1)
	f := hourlyFunding("fund_1", "cust_1", "subs_1", "payer_ext",
		types.CareDays{time.Monday}, "15", "0", jan1, nil)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1",
		[]*subscription.Subscription{sub}, []*funding.Funding{f})
	seedEvent(ctx, &s.BaseServiceTestSuite, "evt_1", "cust_1", "subs_1", monday, 2*time.Hour)

	resp, err := s.service.CreateBills(ctx, s.prepare())
	s.Require().NoError(err)
	s.Equal(2, resp.Count)

	payerBill, ok := lo.Find(resp.Bills, func(b *dto.BillResponse) bool { return b.PayerID != nil })
	s.Require().True(ok)
	s.Nil(payerBill.Number, "externally billed payers keep their own numbering")
	s.Equal(types.BillOriginThirdParty, payerBill.Origin)

	// only the customer bill drew a number
	next, err := s.GetStores().BillSequenceRepo.Peek(ctx, types.DefaultCompanyID, "0126")
	s.Require().NoError(err)
	s.Equal(int64(2), next)
}

func (s *BillingServiceSuite) TestCreateManualBill() {
	ctx := s.GetContext()
	seedCompany(ctx, &s.BaseServiceTestSuite)
	seedCustomer(ctx, &s.BaseServiceTestSuite, "cust_1", nil, nil)

	resp, err := s.service.CreateManualBill(ctx, &dto.CreateManualBillRequest{
		CustomerID: "cust_1",
		BillDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Items: []*dto.DraftBillingItem{
			{Name: "equipment fee", UnitPriceInclTax: decimal.RequireFromString("12.30"), Count: 2},
		},
	})
	s.Require().NoError(err)

	s.Equal("FACTCURA032600001", lo.FromPtr(resp.Number))
	s.Equal(types.BillOriginManual, resp.Origin)
	s.Equal(types.BillTypeManual, resp.Type)
	s.True(decEqual(resp.TotalInclTax, "24.6"), resp.TotalInclTax.String())
}

func (s *BillingServiceSuite) TestCreditNoteReopensEventsAndLocksOnRebill() {
	event := s.seedWorkedExample()
	resp, err := s.service.CreateBills(s.GetContext(), s.prepare())
	s.Require().NoError(err)
	customerBillID := resp.Bills[0].ID

	cnResp, err := s.service.CreateCreditNote(s.GetContext(), &dto.CreateCreditNoteRequest{
		BillID:        customerBillID,
		EventIDs:      []string{event.ID},
		InclTaxAmount: decimal.RequireFromString("12.5"),
		Date:          periodEnd,
	})
	s.Require().NoError(err)
	s.True(strings.HasPrefix(cnResp.Number, "CN_"), cnResp.Number)

	// the event is open for billing again
	reopened, err := s.GetStores().EventRepo.Get(s.GetContext(), event.ID)
	s.Require().NoError(err)
	s.False(reopened.Billed)

	// re-billing the event locks the credit note
	_, err = s.service.CreateBills(s.GetContext(), s.prepare())
	s.Require().NoError(err)

	cn, err := s.GetStores().CreditNoteRepo.Get(s.GetContext(), cnResp.ID)
	s.Require().NoError(err)
	s.Equal(types.CreditNoteStatusLocked, cn.EditStatus)
}

func (s *BillingServiceSuite) TestCreateCreditNoteRejectsForeignEvents() {
	s.seedWorkedExample()
	resp, err := s.service.CreateBills(s.GetContext(), s.prepare())
	s.Require().NoError(err)

	_, err = s.service.CreateCreditNote(s.GetContext(), &dto.CreateCreditNoteRequest{
		BillID:        resp.Bills[0].ID,
		EventIDs:      []string{"evt_unrelated"},
		InclTaxAmount: decimal.RequireFromString("5"),
		Date:          periodEnd,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestListAndExportBills() {
	s.seedWorkedExample()
	_, err := s.service.CreateBills(s.GetContext(), s.prepare())
	s.Require().NoError(err)

	listed, err := s.service.ListBills(s.GetContext(), &dto.ListBillsRequest{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	s.Require().NoError(err)
	s.Equal(2, listed.Count)

	var buf bytes.Buffer
	err = s.service.ExportBillsCSV(s.GetContext(), &dto.ListBillsRequest{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, &buf)
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	s.Len(lines, 3, "header plus one row per subscription line")
	s.Contains(buf.String(), "FACTCURA012600001")
}

func (s *BillingServiceSuite) TestCreateBillsRequiresCompanyScope() {
	s.seedWorkedExample()
	draft := s.prepare()

	_, err := s.service.CreateBills(context.Background(), draft)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
