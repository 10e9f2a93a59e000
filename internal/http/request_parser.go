package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"expenses/internal/core"
	"expenses/internal/report"
)

// allOption is the filter value that disables a predicate.
const allOption = report.AllOption

var errNoTarget = errors.New("either id or index is required")

var validate = validator.New()

// Raw form field rules checked before any ledger lookup.
const (
	idRule    = "printascii,max=64"
	indexRule = "number,max=9"
)

// ParseFilter reads the category and month selectors from query values.
func ParseFilter(query url.Values) (report.Filter, error) {
	return report.NewFilter(query.Get("category"), query.Get("month"))
}

// ParseExpenseForm builds an expense from the add form. An empty date
// defaults to today. The result still has to pass Expense.Validate.
func ParseExpenseForm(form url.Values, today core.Date) (core.Expense, error) {
	date := today
	if v := strings.TrimSpace(form.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Expense{}, err
		}
		date = d
	}

	category, err := core.ParseCategory(form.Get("category"))
	if err != nil {
		return core.Expense{}, err
	}

	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return core.Expense{}, err
	}

	return core.Expense{
		Date:        date,
		Category:    category,
		Amount:      amount,
		Description: core.CleanDescription(form.Get("description")),
	}, nil
}

// DeleteTarget names the record a delete request refers to.
type DeleteTarget struct {
	ID    string
	Index int
	// ByIndex is set when the request carried an index instead of an ID.
	ByIndex bool
}

// ParseDeleteTarget reads the id or index form field. The ID wins when both are set.
func ParseDeleteTarget(form url.Values) (DeleteTarget, error) {
	if id := strings.TrimSpace(form.Get("id")); id != "" {
		if err := validate.Var(id, idRule); err != nil {
			return DeleteTarget{}, fmt.Errorf("invalid id %q", id)
		}
		return DeleteTarget{ID: id}, nil
	}
	v := strings.TrimSpace(form.Get("index"))
	if v == "" {
		return DeleteTarget{}, errNoTarget
	}
	if err := validate.Var(v, indexRule); err != nil {
		return DeleteTarget{}, fmt.Errorf("invalid index %q", v)
	}
	idx, err := strconv.Atoi(v)
	if err != nil {
		return DeleteTarget{}, fmt.Errorf("invalid index %q", v)
	}
	return DeleteTarget{Index: idx, ByIndex: true}, nil
}
