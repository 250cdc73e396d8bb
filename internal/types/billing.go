package types

import ierr "github.com/curaflow/curaflow/internal/errors"

// BillingNature distinguishes hourly priced services from fixed priced ones
type BillingNature string

const (
	BillingNatureHourly BillingNature = "hourly"
	BillingNatureFixed  BillingNature = "fixed"
)

func (n BillingNature) Validate() error {
	switch n {
	case BillingNatureHourly, BillingNatureFixed:
		return nil
	}
	return ierr.NewError("invalid billing nature").
		WithHintf("billing nature must be one of %s, %s", BillingNatureHourly, BillingNatureFixed).
		Mark(ierr.ErrValidation)
}

// FundingFrequency is how often a funding's commitment renews
type FundingFrequency string

const (
	FundingFrequencyMonthly FundingFrequency = "monthly"
	FundingFrequencyOnce    FundingFrequency = "one_time"
)

func (f FundingFrequency) Validate() error {
	switch f {
	case FundingFrequencyMonthly, FundingFrequencyOnce:
		return nil
	}
	return ierr.NewError("invalid funding frequency").
		WithHintf("funding frequency must be one of %s, %s", FundingFrequencyMonthly, FundingFrequencyOnce).
		Mark(ierr.ErrValidation)
}

// ShortfallPolicy controls what happens when a fixed-amount funding does not
// cover an event's real cost: the agency absorbs the difference or bills it
// to the customer.
type ShortfallPolicy string

const (
	ShortfallPolicyAbsorb       ShortfallPolicy = "absorb"
	ShortfallPolicyBillCustomer ShortfallPolicy = "bill_customer"
)

func (p ShortfallPolicy) Validate() error {
	switch p {
	case ShortfallPolicyAbsorb, ShortfallPolicyBillCustomer, "":
		return nil
	}
	return ierr.NewError("invalid shortfall policy").
		WithHintf("shortfall policy must be one of %s, %s", ShortfallPolicyAbsorb, ShortfallPolicyBillCustomer).
		Mark(ierr.ErrValidation)
}

// BillType distinguishes bills produced by a billing run from bills entered by hand
type BillType string

const (
	BillTypeAutomatic BillType = "automatic"
	BillTypeManual    BillType = "manual"
)

// BillOrigin records which write surface produced a bill
type BillOrigin string

const (
	BillOriginService    BillOrigin = "service"
	BillOriginThirdParty BillOrigin = "third_party"
	BillOriginManual     BillOrigin = "manual"
)

// CreditNoteStatus tracks whether a credit note can still be amended
type CreditNoteStatus string

const (
	CreditNoteStatusEditable CreditNoteStatus = "editable"
	CreditNoteStatusLocked   CreditNoteStatus = "locked"
)
