package http

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"

	"expenses/internal/core"
	"expenses/internal/report"
)

type pageView struct {
	Today      string
	Categories []core.Category
	Ledger     ledgerView
}

type ledgerView struct {
	Banner  string
	Empty   bool
	All     []expenseRow
	Shown   []expenseRow
	Count   int
	Total   string
	Average string

	CategoryFilter []optionView
	MonthFilter    []optionView
	DeleteOptions  []optionView
	Bars           []barView

	CategoryChartURL template.URL
	MonthChartURL    template.URL
	ExportURL        template.URL
}

type expenseRow struct {
	Index       int
	ID          string
	Date        string
	Category    string
	Amount      string
	Description string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type barView struct {
	Category string
	Amount   string
	Share    string
	Width    string
}

func (s *Server) buildLedgerView(records []core.Expense, f report.Filter) ledgerView {
	v := ledgerView{Empty: len(records) == 0}
	if v.Empty {
		return v
	}

	shown := f.Apply(records)
	sum := report.Summarize(shown)

	v.All = s.rows(records)
	v.Shown = s.rows(shown)
	v.Count = sum.Count
	v.Total = sum.Total.Format(s.currency)
	v.Average = sum.Average.Format(s.currency)
	v.CategoryChartURL = withFilter("/charts/category.svg", f)
	v.MonthChartURL = withFilter("/charts/month.svg", f)
	v.ExportURL = withFilter("/export.csv", f)

	v.CategoryFilter = []optionView{{Value: allOption, Label: allOption, Selected: f.Category == ""}}
	for _, c := range report.CategoryOptions(records) {
		v.CategoryFilter = append(v.CategoryFilter, optionView{Value: c.String(), Label: c.String(), Selected: c == f.Category})
	}
	v.MonthFilter = []optionView{{Value: allOption, Label: allOption, Selected: f.Month == ""}}
	for _, m := range report.MonthOptions(records) {
		v.MonthFilter = append(v.MonthFilter, optionView{Value: m, Label: m, Selected: m == f.Month})
	}

	for i, e := range records {
		v.DeleteOptions = append(v.DeleteOptions, optionView{
			Value: e.ID,
			Label: deleteLabel(i, e, s.currency),
		})
	}

	for _, ca := range report.CategoryTotals(shown) {
		v.Bars = append(v.Bars, barView{
			Category: ca.Category.String(),
			Amount:   ca.Amount.Format(s.currency),
			Share:    strconv.FormatFloat(ca.Share, 'f', 1, 64),
			Width:    strconv.FormatFloat(ca.Share, 'f', 2, 64),
		})
	}
	return v
}

func (s *Server) rows(records []core.Expense) []expenseRow {
	out := make([]expenseRow, 0, len(records))
	for i, e := range records {
		out = append(out, expenseRow{
			Index:       i,
			ID:          e.ID,
			Date:        e.Date.String(),
			Category:    e.Category.String(),
			Amount:      e.Amount.Format(s.currency),
			Description: e.Description,
		})
	}
	return out
}

// deleteLabel renders "{i} - {date} | {category} | ${amount} | {description}".
func deleteLabel(i int, e core.Expense, currency string) string {
	return fmt.Sprintf("%d - %s | %s | %s%s | %s", i, e.Date, e.Category, currency, e.Amount.Plain(), e.Description)
}

// deletedMessage is the confirmation shown after a delete.
func deletedMessage(e core.Expense, currency string) string {
	return fmt.Sprintf("Deleted: %s on %s (%s%s)", e.Category, e.Date, currency, e.Amount.Plain())
}

// withFilter appends the filter as a query string to path.
func withFilter(path string, f report.Filter) template.URL {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category.String())
	}
	if f.Month != "" {
		q.Set("month", f.Month)
	}
	if len(q) == 0 {
		return template.URL(path)
	}
	return template.URL(path + "?" + q.Encode())
}
