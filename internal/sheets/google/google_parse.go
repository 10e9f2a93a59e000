package google

import (
	"fmt"
	"strings"

	"expenses/internal/core"
	"expenses/internal/ledger"
)

var header = []any{"date", "category", "amount", "description", "id"}

// parseRows turns sheet rows (header excluded) into expenses. Blank rows are
// skipped; any other unreadable row makes the whole sheet malformed.
func parseRows(rows [][]any) ([]core.Expense, error) {
	records := make([]core.Expense, 0, len(rows))
	for i, row := range rows {
		cells := toStrings(row)
		if isBlank(cells) {
			continue
		}
		e, err := parseRow(cells)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ledger.ErrMalformed, i+2, err)
		}
		records = append(records, e)
	}
	return records, nil
}

func parseRow(cells []string) (core.Expense, error) {
	date, err := core.ParseDate(safeGet(cells, 0))
	if err != nil {
		return core.Expense{}, err
	}
	category, err := core.ParseCategory(safeGet(cells, 1))
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseStoredAmount(safeGet(cells, 2))
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		Date:        date,
		Category:    category,
		Amount:      amount,
		Description: safeGet(cells, 3),
		ID:          safeGet(cells, 4),
	}
	return e, e.ValidateStored()
}

func encodeRows(records []core.Expense) [][]any {
	rows := make([][]any, 0, len(records)+1)
	rows = append(rows, header)
	for _, e := range records {
		rows = append(rows, []any{e.Date.String(), e.Category.String(), e.Amount.Plain(), e.Description, e.ID})
	}
	return rows
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
