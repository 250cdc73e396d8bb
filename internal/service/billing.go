package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/curaflow/curaflow/internal/api/dto"
	"github.com/curaflow/curaflow/internal/domain/bill"
	"github.com/curaflow/curaflow/internal/domain/company"
	"github.com/curaflow/curaflow/internal/domain/creditnote"
	"github.com/curaflow/curaflow/internal/domain/serviceevent"
	"github.com/curaflow/curaflow/internal/domain/subscription"
	ierr "github.com/curaflow/curaflow/internal/errors"
	"github.com/curaflow/curaflow/internal/export"
	"github.com/curaflow/curaflow/internal/types"
)

// BillingService is the write surface of the billing engine: it turns drafts
// into bills and credit notes under the batch commit protocol.
type BillingService interface {
	// PrepareDraftBills queries the period's unbilled events, runs the
	// allocator and prices the draft lines. The output feeds CreateBills.
	PrepareDraftBills(ctx context.Context, req *dto.PrepareDraftBillsRequest) (*dto.CreateBillBatchRequest, error)

	// CreateBills persists a batch of draft bills atomically. Commit
	// protocol, in order: persist bills, flag events billed, update funding
	// histories, commit the number sequence, lock credit notes referencing
	// re-billed events. Any inconsistency aborts the whole batch; no partial
	// numbering is ever visible.
	CreateBills(ctx context.Context, req *dto.CreateBillBatchRequest) (*dto.CreateBillBatchResponse, error)

	// CreateManualBill creates one ad-hoc bill from priced billing items,
	// bypassing the allocator
	CreateManualBill(ctx context.Context, req *dto.CreateManualBillRequest) (*dto.BillResponse, error)

	// CreateCreditNote reverses all or part of a bill and reopens its events
	CreateCreditNote(ctx context.Context, req *dto.CreateCreditNoteRequest) (*dto.CreditNoteResponse, error)

	GetBill(ctx context.Context, id string) (*dto.BillResponse, error)

	ListBills(ctx context.Context, req *dto.ListBillsRequest) (*dto.ListBillsResponse, error)

	// ExportBillsCSV streams the selected bills as CSV rows, one per line
	ExportBillsCSV(ctx context.Context, req *dto.ListBillsRequest, w io.Writer) error
}

type billingService struct {
	ServiceParams
	surcharge SurchargeCalculator
	funding   FundingService
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
		surcharge:     NewSurchargeCalculator(),
		funding:       NewFundingService(params),
	}
}

// draftContext carries the per-customer accumulation state while preparing
// drafts: one customer bucket and one bucket per payer.
type draftContext struct {
	payerBills map[string]*dto.DraftBill
}

func (s *billingService) PrepareDraftBills(ctx context.Context, req *dto.PrepareDraftBillsRequest) (*dto.CreateBillBatchRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	events, err := s.EventRepo.ListUnbilled(ctx, serviceevent.UnbilledFilter{
		CustomerID:  req.CustomerID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
	if err != nil {
		return nil, err
	}

	batch := &dto.CreateBillBatchRequest{
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		BillDate:    req.PeriodEnd,
	}

	byCustomer := lo.GroupBy(events, func(e *serviceevent.ServiceEvent) string { return e.CustomerID })
	for _, customerID := range sortedKeys(byCustomer) {
		draft, err := s.prepareCustomerDraft(ctx, customerID, byCustomer[customerID], req.PeriodEnd)
		if err != nil {
			return nil, err
		}
		batch.Customers = append(batch.Customers, draft)
	}

	return batch, nil
}

func (s *billingService) prepareCustomerDraft(ctx context.Context, customerID string, events []*serviceevent.ServiceEvent, periodEnd time.Time) (*dto.CustomerDraftBills, error) {
	cust, err := s.CustomerRepo.Get(ctx, customerID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Customer not found").
			WithReportableDetails(map[string]any{"customer_id": customerID}).
			Mark(ierr.ErrNotFound)
	}

	draft := &dto.CustomerDraftBills{CustomerID: customerID}
	customerBill := &dto.DraftBill{}
	dc := &draftContext{payerBills: make(map[string]*dto.DraftBill)}

	bySubscription := lo.GroupBy(events, func(e *serviceevent.ServiceEvent) string { return e.SubscriptionID })
	for _, subscriptionID := range sortedKeys(bySubscription) {
		sub := cust.Subscription(subscriptionID)
		if sub == nil {
			return nil, ierr.NewError("event references an unknown subscription").
				WithHint("Draft preparation found an event outside the customer's subscriptions").
				WithReportableDetails(map[string]any{
					"customer_id":     customerID,
					"subscription_id": subscriptionID,
				}).
				Mark(ierr.ErrValidation)
		}

		subVersion := sub.VersionAsOf(periodEnd)
		if subVersion == nil {
			subVersion = sub.LatestVersion()
		}

		allocation, err := s.funding.AllocateEvents(ctx, cust, sub, bySubscription[subscriptionID])
		if err != nil {
			return nil, err
		}

		customerLine := &dto.DraftSubscriptionLine{
			SubscriptionID:   sub.ID,
			Nature:           sub.Nature,
			UnitPriceInclTax: subVersion.UnitPriceInclTax,
			VATRate:          subVersion.VATRate,
			Discount:         subVersion.Discount,
		}

		for _, alloc := range allocation.Events {
			customerLine.Events = append(customerLine.Events, &dto.DraftEventShare{
				Event:         alloc.Event,
				Hours:         alloc.Hours,
				InclTaxAmount: alloc.CustomerAmount,
			})

			if alloc.Funding == nil || alloc.PayerAmount.IsZero() {
				continue
			}
			line := dc.payerLine(alloc.Funding.PayerID, alloc.Funding.ID, sub, subVersion)
			line.Events = append(line.Events, &dto.DraftEventShare{
				Event:         alloc.Event,
				Hours:         alloc.Hours,
				InclTaxAmount: alloc.PayerAmount,
			})
		}

		for _, fixed := range allocation.Fixed {
			line := dc.payerLine(fixed.Funding.PayerID, fixed.Funding.ID, sub, subVersion)
			line.FixedAmount = fixed.PayerAmount
			for _, alloc := range allocation.Events {
				if alloc.Funding != nil && alloc.Funding.ID == fixed.Funding.ID {
					line.Events = append(line.Events, &dto.DraftEventShare{
						Event: alloc.Event,
						Hours: alloc.Hours,
					})
				}
			}
			// uncovered cost billed back to the customer under bill_customer
			customerLine.FixedAmount = customerLine.FixedAmount.Add(fixed.CustomerShortfall)
		}

		customerBill.Lines = append(customerBill.Lines, customerLine)
	}

	if len(customerBill.Lines) > 0 {
		draft.CustomerBill = customerBill
	}
	for _, payerID := range sortedKeys(dc.payerBills) {
		draft.PayerBills = append(draft.PayerBills, dc.payerBills[payerID])
	}

	return draft, nil
}

// CreateBills implements the batch commit protocol inside one transaction
func (s *billingService) CreateBills(ctx context.Context, req *dto.CreateBillBatchRequest) (*dto.CreateBillBatchResponse, error) {
	if err := types.ValidateCompanyContext(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Billing requires a company scope").
			Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	comp, err := s.CompanyRepo.Get(ctx, types.GetCompanyID(ctx))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Company not found").
			Mark(ierr.ErrNotFound)
	}

	billDate := req.BillDate
	if billDate.IsZero() {
		billDate = req.PeriodEnd
	}

	var response *dto.CreateBillBatchResponse
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		// every referenced event must resolve and be unbilled before any
		// bill is numbered
		allEventIDs, err := s.validateBatchEvents(ctx, req)
		if err != nil {
			return err
		}

		prefix := types.BillPeriodPrefix(req.PeriodEnd)
		seq, err := s.BillSequenceRepo.Peek(ctx, comp.ID, prefix)
		if err != nil {
			return err
		}
		next := seq

		var bills []*bill.Bill
		var marks []serviceevent.BilledMark
		seen := make(map[string]bool)

		for _, customerDraft := range req.Customers {
			if customerDraft.CustomerBill != nil {
				b, err := s.assembleBill(ctx, customerDraft.CustomerID, customerDraft.CustomerBill, req, billDate, comp, prefix, &next, &marks, seen)
				if err != nil {
					return err
				}
				bills = append(bills, b)
			}
			for _, payerDraft := range customerDraft.PayerBills {
				b, err := s.assembleBill(ctx, customerDraft.CustomerID, payerDraft, req, billDate, comp, prefix, &next, &marks, seen)
				if err != nil {
					return err
				}
				bills = append(bills, b)
			}
		}

		// 1. bills first: an event is never flagged before its bill exists
		for _, b := range bills {
			if err := s.BillRepo.CreateWithLines(ctx, b); err != nil {
				return err
			}
		}

		// 2. flag events with the line that billed them
		if err := s.EventRepo.MarkBilled(ctx, marks); err != nil {
			return err
		}

		// 3. funding consumption counters
		for _, customerDraft := range req.Customers {
			for _, payerDraft := range customerDraft.PayerBills {
				for _, line := range payerDraft.Lines {
					if line.FundingID == nil {
						continue
					}
					if err := s.funding.RecordConsumption(ctx, *line.FundingID, line.Events, line.FixedAmount); err != nil {
						return err
					}
				}
			}
		}

		// 4. terminal sequence commit, never above the persisted bill count
		if next > seq {
			if err := s.BillSequenceRepo.Commit(ctx, comp.ID, prefix, next); err != nil {
				return err
			}
		}

		// 5. credit notes referencing re-billed events stop being editable
		if err := s.lockCreditNotes(ctx, allEventIDs); err != nil {
			return err
		}

		response = &dto.CreateBillBatchResponse{
			Bills: lo.Map(bills, func(b *bill.Bill, _ int) *dto.BillResponse { return dto.NewBillResponse(b) }),
			Count: len(bills),
		}

		s.Logger.Infow("created bill batch",
			"company_id", comp.ID,
			"period_prefix", prefix,
			"bill_count", len(bills),
			"event_count", len(allEventIDs))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return response, nil
}

func (s *billingService) validateBatchEvents(ctx context.Context, req *dto.CreateBillBatchRequest) ([]string, error) {
	var allEventIDs []string
	seen := make(map[string]bool)

	for _, customerDraft := range req.Customers {
		drafts := customerDraft.PayerBills
		if customerDraft.CustomerBill != nil {
			drafts = append([]*dto.DraftBill{customerDraft.CustomerBill}, drafts...)
		}
		for _, d := range drafts {
			for _, id := range d.EventIDs() {
				if seen[id] {
					continue
				}
				seen[id] = true

				event, err := s.EventRepo.Get(ctx, id)
				if err != nil {
					return nil, ierr.WithError(err).
						WithHint("Draft references an event that cannot be resolved").
						WithReportableDetails(map[string]any{"event_id": id}).
						Mark(ierr.ErrValidation)
				}
				if event.Billed {
					return nil, ierr.NewError("event is already billed").
						WithHint("Draft references an event consumed by a previous batch").
						WithReportableDetails(map[string]any{"event_id": id}).
						Mark(ierr.ErrValidation)
				}
				allEventIDs = append(allEventIDs, id)
			}
		}
	}

	return allEventIDs, nil
}

// assembleBill turns one draft bill into a domain bill, drawing a sequence
// number unless the payer numbers its bills externally
func (s *billingService) assembleBill(ctx context.Context, customerID string, draft *dto.DraftBill, req *dto.CreateBillBatchRequest, billDate time.Time, comp *company.Company, prefix string, next *int64, marks *[]serviceevent.BilledMark, seen map[string]bool) (*bill.Bill, error) {
	b := &bill.Bill{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL),
		CustomerID:  customerID,
		PayerID:     draft.PayerID,
		BillDate:    billDate,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Origin:      types.BillOriginService,
		Type:        types.BillTypeAutomatic,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}

	externallyNumbered := false
	if draft.PayerID != nil {
		p, err := s.PayerRepo.Get(ctx, *draft.PayerID)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Draft references an unknown payer").
				WithReportableDetails(map[string]any{"payer_id": *draft.PayerID}).
				Mark(ierr.ErrValidation)
		}
		if p.ExternalBilling {
			externallyNumbered = true
			b.Origin = types.BillOriginThirdParty
		}
	}
	if !externallyNumbered {
		b.Number = lo.ToPtr(s.formatBillNumber(comp.ShortCode, prefix, *next))
		*next++
	}

	total := decimal.Zero
	for _, line := range draft.Lines {
		billLine := s.assembleLine(b, draft, line)
		total = total.Add(billLine.TotalInclTax)
		b.Lines = append(b.Lines, billLine)

		for _, share := range line.Events {
			if seen[share.Event.ID] {
				continue
			}
			seen[share.Event.ID] = true
			*marks = append(*marks, serviceevent.BilledMark{
				EventID:    share.Event.ID,
				BillLineID: billLine.ID,
			})
		}
	}

	for _, item := range draft.Items {
		itemTotal := item.UnitPriceInclTax.Mul(decimal.NewFromInt(int64(item.Count))).Round(2)
		b.Items = append(b.Items, &bill.BillingItemLine{
			ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_ITEM),
			BillID:           b.ID,
			Name:             item.Name,
			UnitPriceInclTax: item.UnitPriceInclTax,
			Count:            item.Count,
			VATRate:          item.VATRate,
			TotalInclTax:     itemTotal,
		})
		total = total.Add(itemTotal)
	}

	b.TotalInclTax = total.Round(2)

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

// assembleLine prices one subscription line. Surcharges bill to the customer
// bucket only: payers cover their flat share of the base rate.
func (s *billingService) assembleLine(b *bill.Bill, draft *dto.DraftBill, line *dto.DraftSubscriptionLine) *bill.SubscriptionLine {
	base := decimal.Zero
	hours := decimal.Zero
	var eventIDs []string
	for _, share := range line.Events {
		base = base.Add(share.InclTaxAmount)
		hours = hours.Add(share.Hours)
		eventIDs = append(eventIDs, share.Event.ID)
	}

	surcharge := decimal.Zero
	if draft.PayerID == nil {
		surcharge = s.surcharge.Compute(line)
	}

	totalIncl := base.Add(line.FixedAmount).Add(surcharge).Sub(line.Discount).Round(2)
	totalExcl := totalIncl.Div(decimal.NewFromInt(1).Add(line.VATRate.Div(oneHundred))).Round(2)

	return &bill.SubscriptionLine{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL_LINE),
		BillID:           b.ID,
		SubscriptionID:   line.SubscriptionID,
		EventIDs:         eventIDs,
		Hours:            hours,
		EventCount:       len(line.Events),
		UnitPriceInclTax: line.UnitPriceInclTax,
		VATRate:          line.VATRate,
		Discount:         line.Discount,
		Surcharge:        surcharge.Round(2),
		TotalExclTax:     totalExcl,
		TotalInclTax:     totalIncl,
	}
}

func (s *billingService) CreateManualBill(ctx context.Context, req *dto.CreateManualBillRequest) (*dto.BillResponse, error) {
	if err := types.ValidateCompanyContext(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Billing requires a company scope").
			Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	comp, err := s.CompanyRepo.Get(ctx, types.GetCompanyID(ctx))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Company not found").
			Mark(ierr.ErrNotFound)
	}
	if _, err := s.CustomerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Customer not found").
			WithReportableDetails(map[string]any{"customer_id": req.CustomerID}).
			Mark(ierr.ErrNotFound)
	}

	var b *bill.Bill
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		prefix := types.BillPeriodPrefix(req.BillDate)
		seq, err := s.BillSequenceRepo.Peek(ctx, comp.ID, prefix)
		if err != nil {
			return err
		}

		b = &bill.Bill{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILL),
			Number:      lo.ToPtr(s.formatBillNumber(comp.ShortCode, prefix, seq)),
			CustomerID:  req.CustomerID,
			BillDate:    req.BillDate,
			PeriodStart: req.BillDate,
			PeriodEnd:   req.BillDate,
			Origin:      types.BillOriginManual,
			Type:        types.BillTypeManual,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}

		total := decimal.Zero
		for _, item := range req.Items {
			itemTotal := item.UnitPriceInclTax.Mul(decimal.NewFromInt(int64(item.Count))).Round(2)
			b.Items = append(b.Items, &bill.BillingItemLine{
				ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_ITEM),
				BillID:           b.ID,
				Name:             item.Name,
				UnitPriceInclTax: item.UnitPriceInclTax,
				Count:            item.Count,
				VATRate:          item.VATRate,
				TotalInclTax:     itemTotal,
			})
			total = total.Add(itemTotal)
		}
		b.TotalInclTax = total.Round(2)

		if err := b.Validate(); err != nil {
			return err
		}
		if err := s.BillRepo.CreateWithLines(ctx, b); err != nil {
			return err
		}

		return s.BillSequenceRepo.Commit(ctx, comp.ID, prefix, seq+1)
	})
	if err != nil {
		return nil, err
	}

	return dto.NewBillResponse(b), nil
}

func (s *billingService) CreateCreditNote(ctx context.Context, req *dto.CreateCreditNoteRequest) (*dto.CreditNoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b, err := s.BillRepo.Get(ctx, req.BillID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Bill not found").
			WithReportableDetails(map[string]any{"bill_id": req.BillID}).
			Mark(ierr.ErrNotFound)
	}

	billed := make(map[string]bool)
	for _, line := range b.Lines {
		for _, id := range line.EventIDs {
			billed[id] = true
		}
	}
	for _, id := range req.EventIDs {
		if !billed[id] {
			return nil, ierr.NewError("event was not billed by this bill").
				WithHint("A credit note may only reference events of its bill").
				WithReportableDetails(map[string]any{
					"bill_id":  req.BillID,
					"event_id": id,
				}).
				Mark(ierr.ErrValidation)
		}
	}

	cn := &creditnote.CreditNote{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE),
		Number:        types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_CREDIT_NOTE),
		BillID:        b.ID,
		CustomerID:    b.CustomerID,
		EventIDs:      req.EventIDs,
		InclTaxAmount: req.InclTaxAmount,
		Date:          req.Date,
		EditStatus:    types.CreditNoteStatusEditable,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.CreditNoteRepo.Create(ctx, cn); err != nil {
			return err
		}
		// reopened events re-enter the unbilled query of the next run
		return s.EventRepo.MarkUnbilled(ctx, req.EventIDs)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created credit note",
		"credit_note_id", cn.ID,
		"bill_id", b.ID,
		"event_count", len(req.EventIDs))

	return dto.NewCreditNoteResponse(cn), nil
}

func (s *billingService) GetBill(ctx context.Context, id string) (*dto.BillResponse, error) {
	b, err := s.BillRepo.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Bill not found").
			WithReportableDetails(map[string]any{"bill_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return dto.NewBillResponse(b), nil
}

func (s *billingService) ListBills(ctx context.Context, req *dto.ListBillsRequest) (*dto.ListBillsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	bills, err := s.listBills(ctx, req)
	if err != nil {
		return nil, err
	}

	return &dto.ListBillsResponse{
		Bills: lo.Map(bills, func(b *bill.Bill, _ int) *dto.BillResponse { return dto.NewBillResponse(b) }),
		Count: len(bills),
	}, nil
}

func (s *billingService) ExportBillsCSV(ctx context.Context, req *dto.ListBillsRequest, w io.Writer) error {
	if err := req.Validate(); err != nil {
		return err
	}

	bills, err := s.listBills(ctx, req)
	if err != nil {
		return err
	}

	return export.WriteBillsCSV(w, bills)
}

func (s *billingService) listBills(ctx context.Context, req *dto.ListBillsRequest) ([]*bill.Bill, error) {
	return s.BillRepo.List(ctx, bill.ListFilter{
		CustomerID:  req.CustomerID,
		PayerID:     req.PayerID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
}

func (s *billingService) lockCreditNotes(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	notes, err := s.CreditNoteRepo.ListEditableByEvents(ctx, eventIDs)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		return nil
	}
	ids := lo.Map(notes, func(cn *creditnote.CreditNote, _ int) string { return cn.ID })
	return s.CreditNoteRepo.Lock(ctx, ids)
}

// formatBillNumber renders prefix + company short code + MMYY + padded sequence
func (s *billingService) formatBillNumber(shortCode, prefix string, seq int64) string {
	return fmt.Sprintf("%s%s%s%0*d", s.Config.Billing.NumberPrefix, shortCode, prefix, s.Config.Billing.SequencePad, seq)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// payerLine finds or creates the draft line for a (payer, funding,
// subscription) triple, creating the payer's draft bill on first use
func (dc *draftContext) payerLine(payerID, fundingID string, sub *subscription.Subscription, subVersion *subscription.Version) *dto.DraftSubscriptionLine {
	pb, ok := dc.payerBills[payerID]
	if !ok {
		pb = &dto.DraftBill{PayerID: lo.ToPtr(payerID)}
		dc.payerBills[payerID] = pb
	}

	for _, line := range pb.Lines {
		if line.SubscriptionID == sub.ID && line.FundingID != nil && *line.FundingID == fundingID {
			return line
		}
	}

	line := &dto.DraftSubscriptionLine{
		SubscriptionID:   sub.ID,
		Nature:           sub.Nature,
		UnitPriceInclTax: subVersion.UnitPriceInclTax,
		VATRate:          subVersion.VATRate,
		FundingID:        lo.ToPtr(fundingID),
	}
	pb.Lines = append(pb.Lines, line)
	return line
}
