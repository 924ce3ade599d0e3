package invoice

import (
	"encoding/csv"
	"io"

	"github.com/billbatista/acasinha-office/store"
)

var exportHeader = []string{"Client Name", "Service Type", "Description", "Amount", "Renewal Date", "Status"}

func WriteInvoicesCSV(w io.Writer, lines []store.InvoiceLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, l := range lines {
		status := "Unpaid"
		if l.IsPaid {
			status = "Paid"
		}
		record := []string{
			l.ClientName,
			l.ServiceType,
			l.Description,
			l.Amount.StringFixed(2),
			l.RenewalDate.Format(renewalDayLayout),
			status,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
