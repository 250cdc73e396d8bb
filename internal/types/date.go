package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MonthKeyFormat is the YYYYMM key used for monthly consumption counters
	MonthKeyFormat = "200601"
	// BillPeriodFormat is the MMYY token embedded in bill numbers
	BillPeriodFormat = "0106"
)

// MonthKey returns the YYYYMM counter key for a date
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthKeyFormat)
}

// BillPeriodPrefix returns the MMYY bill number token for a period end date
func BillPeriodPrefix(t time.Time) string {
	return t.UTC().Format(BillPeriodFormat)
}

// HoursBetween returns the exact duration between two instants in hours as a
// decimal. Billing math never goes through binary floats.
func HoursBetween(start, end time.Time) decimal.Decimal {
	if !end.After(start) {
		return decimal.Zero
	}
	seconds := end.Sub(start) / time.Second
	return decimal.NewFromInt(int64(seconds)).Div(decimal.NewFromInt(3600))
}

// OverlapHours returns the duration, in hours, shared by [aStart, aEnd] and
// [bStart, bEnd], or zero when they do not intersect.
func OverlapHours(aStart, aEnd, bStart, bEnd time.Time) decimal.Decimal {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	return HoursBetween(start, end)
}

// RangesOverlap reports whether two date ranges intersect. A nil end means the
// range is open ended.
func RangesOverlap(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	if aEnd != nil && aEnd.Before(bStart) {
		return false
	}
	if bEnd != nil && bEnd.Before(aStart) {
		return false
	}
	return true
}

// CareDays is a set of days of the week on which a funding covers service
type CareDays []time.Weekday

// Contains reports whether the set includes the given weekday
func (d CareDays) Contains(day time.Weekday) bool {
	for _, cd := range d {
		if cd == day {
			return true
		}
	}
	return false
}

// Intersects reports whether two care-day sets share at least one weekday
func (d CareDays) Intersects(other CareDays) bool {
	for _, cd := range d {
		if other.Contains(cd) {
			return true
		}
	}
	return false
}
