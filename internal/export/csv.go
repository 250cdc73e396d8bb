package export

import (
	"encoding/csv"
	"io"

	"github.com/curaflow/curaflow/internal/domain/bill"
	ierr "github.com/curaflow/curaflow/internal/errors"
)

var billCSVHeader = []string{
	"bill_number",
	"bill_date",
	"customer_id",
	"payer_id",
	"period_start",
	"period_end",
	"subscription_id",
	"hours",
	"unit_price_incl_tax",
	"vat_rate",
	"discount",
	"surcharge",
	"total_excl_tax",
	"total_incl_tax",
}

// BillRows flattens a bill into one CSV row per subscription line, followed
// by one row per billing item. Unnumbered third-party bills export with an
// empty number column.
func BillRows(b *bill.Bill) [][]string {
	number := ""
	if b.Number != nil {
		number = *b.Number
	}
	payerID := ""
	if b.PayerID != nil {
		payerID = *b.PayerID
	}

	rows := make([][]string, 0, len(b.Lines)+len(b.Items))
	for _, line := range b.Lines {
		rows = append(rows, []string{
			number,
			FormatDate(b.BillDate),
			b.CustomerID,
			payerID,
			FormatDate(b.PeriodStart),
			FormatDate(b.PeriodEnd),
			line.SubscriptionID,
			FormatHours(line.Hours),
			FormatAmount(line.UnitPriceInclTax),
			FormatPercent(line.VATRate),
			FormatAmount(line.Discount),
			FormatAmount(line.Surcharge),
			FormatAmount(line.TotalExclTax),
			FormatAmount(line.TotalInclTax),
		})
	}
	for _, item := range b.Items {
		rows = append(rows, []string{
			number,
			FormatDate(b.BillDate),
			b.CustomerID,
			payerID,
			FormatDate(b.PeriodStart),
			FormatDate(b.PeriodEnd),
			item.Name,
			"",
			FormatAmount(item.UnitPriceInclTax),
			FormatPercent(item.VATRate),
			"",
			"",
			"",
			FormatAmount(item.TotalInclTax),
		})
	}
	return rows
}

// WriteBillsCSV streams bills as CSV with a header row
func WriteBillsCSV(w io.Writer, bills []*bill.Bill) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(billCSVHeader); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to write CSV header").
			Mark(ierr.ErrSystem)
	}

	for _, b := range bills {
		for _, row := range BillRows(b) {
			if err := writer.Write(row); err != nil {
				return ierr.WithError(err).
					WithHint("Failed to write CSV row").
					WithReportableDetails(map[string]any{"bill_id": b.ID}).
					Mark(ierr.ErrSystem)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to flush CSV output").
			Mark(ierr.ErrSystem)
	}
	return nil
}
