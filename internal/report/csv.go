package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"expenses/internal/core"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{"date", "category", "amount", "description"}

// ExportCSV writes records as RFC 4180 CSV with a header row. An empty
// input produces the header only.
func ExportCSV(w io.Writer, records []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, e := range records {
		row := []string{e.Date.String(), e.Category.String(), e.Amount.Plain(), e.Description}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// CSV returns the export as UTF-8 bytes.
func CSV(records []core.Expense) ([]byte, error) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
