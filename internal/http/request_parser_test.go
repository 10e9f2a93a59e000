package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/report"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    report.Filter
		wantErr bool
	}{
		{"empty", "", report.Filter{}, false},
		{"all", "category=All&month=All", report.Filter{}, false},
		{"category", "category=food", report.Filter{Category: core.Food}, false},
		{"month", "month=2024-03", report.Filter{Month: "2024-03"}, false},
		{"both", "category=Bills&month=2024-03", report.Filter{Category: core.Bills, Month: "2024-03"}, false},
		{"unknown category", "category=Rent", report.Filter{}, true},
		{"bad month", "month=March", report.Filter{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, err := ParseFilter(q)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseExpenseForm(t *testing.T) {
	today := core.NewDate(2024, 6, 1)

	got, err := ParseExpenseForm(url.Values{
		"category":    {"shopping"},
		"amount":      {"3.10"},
		"description": {"\tsocks\r\n"},
	}, today)
	require.NoError(t, err)
	require.Equal(t, today, got.Date)
	require.Equal(t, core.Shopping, got.Category)
	require.Equal(t, "3.1", got.Amount.String())
	require.Equal(t, "socks", got.Description)
	require.Empty(t, got.ID)

	_, err = ParseExpenseForm(url.Values{"category": {"Food"}, "amount": {"1e3"}}, today)
	require.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = ParseExpenseForm(url.Values{"date": {"01/02/2024"}, "category": {"Food"}, "amount": {"1"}}, today)
	require.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestParseDeleteTarget(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		want    DeleteTarget
		wantErr bool
	}{
		{"id", url.Values{"id": {"abc"}}, DeleteTarget{ID: "abc"}, false},
		{"id wins", url.Values{"id": {"abc"}, "index": {"2"}}, DeleteTarget{ID: "abc"}, false},
		{"index", url.Values{"index": {"2"}}, DeleteTarget{Index: 2, ByIndex: true}, false},
		{"negative index", url.Values{"index": {"-1"}}, DeleteTarget{}, true},
		{"bad index", url.Values{"index": {"two"}}, DeleteTarget{}, true},
		{"huge index", url.Values{"index": {"12345678901"}}, DeleteTarget{}, true},
		{"non-ascii id", url.Values{"id": {"abc\u00e9"}}, DeleteTarget{}, true},
		{"long id", url.Values{"id": {strings.Repeat("a", 65)}}, DeleteTarget{}, true},
		{"neither", url.Values{}, DeleteTarget{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDeleteTarget(tt.form)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	require.Equal(t, "10.0.0.7", clientIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", clientIP(r))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrDescriptionTooLong, http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", ledger.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", ledger.ErrIndexOutOfRange), http.StatusConflict},
		{fmt.Errorf("load ledger: %w", ledger.ErrMalformed), http.StatusInternalServerError},
		{fmt.Errorf("save ledger: %w", ledger.ErrPersist), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		require.Equal(t, tt.want, got, tt.err.Error())
	}

	_, msg := statusFor(fmt.Errorf("save ledger: %w", ledger.ErrPersist))
	require.Equal(t, msgPersist, msg)
}
