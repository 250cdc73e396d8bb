package export

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "02/01/2006"

// FormatAmount renders a monetary value with exactly two decimals, rounded
// half up. Totals on bills are rounded the same way, so formatted amounts
// always reconcile with the stored totals to the cent.
func FormatAmount(amount decimal.Decimal) string {
	return amount.Round(2).StringFixed(2)
}

// FormatPercent renders a percentage with up to two decimals and no trailing
// zeros, followed by a percent sign.
func FormatPercent(pct decimal.Decimal) string {
	return pct.Round(2).String() + "%"
}

// FormatDate renders a date as DD/MM/YYYY in UTC
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// FormatHours renders an hour quantity with two decimals
func FormatHours(hours decimal.Decimal) string {
	return hours.Round(2).StringFixed(2)
}
