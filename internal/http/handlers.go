package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/trace"
	"expenses/internal/report"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady loads the ledger to verify the backing store is reachable and parseable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok"}
	if _, err := s.ledger.List(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := pageView{
		Today:      core.Today().String(),
		Categories: core.Categories(),
	}

	status := http.StatusOK
	records, err := s.ledger.List(ctx)
	if err != nil {
		var msg string
		status, msg = statusFor(err)
		log.LogError(ctx, "Ledger load failed", err, log.ComponentLedger, log.OpList, nil)
		data.Ledger = ledgerView{Banner: msg}
	} else {
		data.Ledger = s.buildLedgerView(records, report.Filter{})
	}

	s.render(w, r, status, "index.html", data)
}

func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		flashError(http.StatusBadRequest, err.Error()).write(w)
		return
	}

	records, err := s.ledger.List(ctx)
	if err != nil {
		status, msg := statusFor(err)
		log.LogError(ctx, "Ledger load failed", err, log.ComponentLedger, log.OpList, nil)
		s.render(w, r, status, "ledger.html", ledgerView{Banner: msg})
		return
	}
	s.render(w, r, http.StatusOK, "ledger.html", s.buildLedgerView(records, f))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Parse form error", log.FieldError, err.Error())
		flashError(http.StatusBadRequest, "Invalid request format").write(w)
		return
	}

	exp, err := ParseExpenseForm(r.PostForm, core.Today())
	if err != nil {
		flashError(http.StatusUnprocessableEntity, err.Error()).write(w)
		return
	}

	records, err := s.ledger.Add(ctx, exp)
	if err != nil {
		s.writeError(w, r, err, log.OpAdd)
		return
	}
	added := records[len(records)-1]

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	flashSuccess("Expense added!").created(added).write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		flashError(http.StatusBadRequest, "Invalid request format").write(w)
		return
	}
	target, err := ParseDeleteTarget(r.PostForm)
	if err != nil {
		flashError(http.StatusBadRequest, err.Error()).write(w)
		return
	}

	var removed core.Expense
	if target.ByIndex {
		removed, err = s.ledger.RemoveAt(ctx, target.Index)
	} else {
		removed, err = s.ledger.Delete(ctx, target.ID)
	}
	if err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	flashSuccess(deletedMessage(removed, s.currency)).deleted(removed).write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	shown, ok := s.filtered(w, r, log.OpExport)
	if !ok {
		return
	}
	body, err := report.CSV(shown)
	if err != nil {
		s.writeError(w, r, err, log.OpExport)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	shown, ok := s.filtered(w, r, log.OpRender)
	if !ok {
		return
	}
	svg, err := s.charts.PieSVG(report.CategoryTotals(shown))
	s.writeSVG(w, r, svg, err)
}

func (s *Server) handleMonthChart(w http.ResponseWriter, r *http.Request) {
	shown, ok := s.filtered(w, r, log.OpRender)
	if !ok {
		return
	}
	svg, err := s.charts.BarSVG(report.MonthTotals(shown))
	s.writeSVG(w, r, svg, err)
}

type apiSummary struct {
	Count   int        `json:"count"`
	Total   core.Money `json:"total"`
	Average core.Money `json:"average"`
}

type apiExpenses struct {
	Expenses []core.Expense `json:"expenses"`
	Summary  apiSummary     `json:"summary"`
}

func (s *Server) handleAPIExpenses(w http.ResponseWriter, r *http.Request) {
	shown, ok := s.filtered(w, r, log.OpList)
	if !ok {
		return
	}
	if shown == nil {
		shown = []core.Expense{}
	}
	sum := report.Summarize(shown)
	writeJSON(w, http.StatusOK, apiExpenses{
		Expenses: shown,
		Summary:  apiSummary{Count: sum.Count, Total: sum.Total, Average: sum.Average},
	})
}

// filtered loads the ledger and applies the request's filter, writing the
// error response itself when either step fails.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request, op string) ([]core.Expense, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	records, err := s.ledger.List(r.Context())
	if err != nil {
		status, msg := statusFor(err)
		log.LogError(r.Context(), "Ledger load failed", err, log.ComponentLedger, op, nil)
		http.Error(w, msg, status)
		return nil, false
	}
	return f.Apply(records), true
}

func (s *Server) writeSVG(w http.ResponseWriter, r *http.Request, svg []byte, err error) {
	if err != nil {
		log.LogError(r.Context(), "Chart render failed", err, log.ComponentChart, log.OpRender, nil)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

// writeError maps err to a status, logs server-side failures and writes an
// HTMX error fragment with a notification trigger.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.LogError(r.Context(), "Ledger operation failed", err, log.ComponentLedger, op, nil)
		if id := trace.GetRequestID(r.Context()); id != "" {
			msg += " (ref " + id + ")"
		}
	} else {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ledger operation rejected",
			log.FieldOperation, op,
			log.FieldError, err.Error(),
			log.FieldStatusCode, status)
	}
	flashError(status, msg).write(w)
}

// render executes a template into a buffer first so a failure can still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
