// Package report derives read-only views from a ledger: grouping,
// filtering, summary metrics and CSV export. Every function recomputes from
// the records it is given.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

// Filter selects records. Zero-valued fields do not filter.
type Filter struct {
	Category core.Category
	// Month is a YYYY-MM key.
	Month string
}

// AllOption is the selector value that leaves a predicate unset.
const AllOption = "All"

// NewFilter builds a Filter from selector values. Empty values and
// AllOption leave the predicate unset; the month must be YYYY-MM.
func NewFilter(category, month string) (Filter, error) {
	var f Filter
	if v := strings.TrimSpace(category); v != "" && v != AllOption {
		c, err := core.ParseCategory(v)
		if err != nil {
			return Filter{}, err
		}
		f.Category = c
	}
	if v := strings.TrimSpace(month); v != "" && v != AllOption {
		if _, err := time.Parse(core.MonthLayout, v); err != nil {
			return Filter{}, fmt.Errorf("invalid month %q: want YYYY-MM", v)
		}
		f.Month = v
	}
	return f, nil
}

// IsZero reports whether f selects every record.
func (f Filter) IsZero() bool {
	return f.Category == "" && f.Month == ""
}

// Matches reports whether e passes every set predicate.
func (f Filter) Matches(e core.Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Month != "" && e.Month() != f.Month {
		return false
	}
	return true
}

// Apply returns the records matching f in ledger order. With no predicate
// set the input slice is returned as is.
func (f Filter) Apply(records []core.Expense) []core.Expense {
	if f.IsZero() {
		return records
	}
	out := make([]core.Expense, 0, len(records))
	for _, e := range records {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Summary holds the headline metrics for a set of records.
type Summary struct {
	Count   int
	Total   core.Money
	Average core.Money
}

// Summarize totals records. The average of an empty set is zero.
func Summarize(records []core.Expense) Summary {
	var total decimal.Decimal
	for _, e := range records {
		total = total.Add(e.Amount.Decimal)
	}
	s := Summary{Count: len(records), Total: core.NewMoney(total)}
	if len(records) > 0 {
		s.Average = core.NewMoney(total.Div(decimal.NewFromInt(int64(len(records)))))
	}
	return s
}

// GroupByCategory sums amounts per category.
func GroupByCategory(records []core.Expense) map[core.Category]decimal.Decimal {
	out := make(map[core.Category]decimal.Decimal)
	for _, e := range records {
		out[e.Category] = out[e.Category].Add(e.Amount.Decimal)
	}
	return out
}

// GroupByMonth sums amounts per YYYY-MM month.
func GroupByMonth(records []core.Expense) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range records {
		k := e.Month()
		out[k] = out[k].Add(e.Amount.Decimal)
	}
	return out
}

// CategoryTotals returns GroupByCategory in category display order, with each
// category's share of the total.
func CategoryTotals(records []core.Expense) []core.CategoryAmount {
	groups := GroupByCategory(records)
	var total decimal.Decimal
	for _, v := range groups {
		total = total.Add(v)
	}
	out := make([]core.CategoryAmount, 0, len(groups))
	for _, c := range core.Categories() {
		v, ok := groups[c]
		if !ok {
			continue
		}
		var share float64
		if total.IsPositive() {
			share = v.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		out = append(out, core.CategoryAmount{Category: c, Amount: core.NewMoney(v), Share: share})
	}
	return out
}

// MonthTotals returns GroupByMonth in ascending month order.
func MonthTotals(records []core.Expense) []core.MonthAmount {
	groups := GroupByMonth(records)
	months := make([]string, 0, len(groups))
	for m := range groups {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make([]core.MonthAmount, 0, len(months))
	for _, m := range months {
		out = append(out, core.MonthAmount{Month: m, Amount: core.NewMoney(groups[m])})
	}
	return out
}

// CategoryOptions lists the distinct categories present, sorted by name.
func CategoryOptions(records []core.Expense) []core.Category {
	seen := make(map[core.Category]struct{})
	var out []core.Category
	for _, e := range records {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MonthOptions lists the distinct YYYY-MM months present, ascending.
func MonthOptions(records []core.Expense) []string {
	groups := GroupByMonth(records)
	out := make([]string, 0, len(groups))
	for m := range groups {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
