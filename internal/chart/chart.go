// Package chart renders the ledger charts as SVG.
package chart

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"html"
	"io"
	"log/slog"

	gochart "github.com/wcharczuk/go-chart/v2"

	"expenses/internal/cache"
	"expenses/internal/core"
)

const (
	PieTitle = "Spending by Category"
	BarTitle = "Monthly Expense Summary"

	width  = 512
	height = 400
)

// Renderer draws charts and memoizes the SVG output by input content.
type Renderer struct {
	cache *cache.LRUCache[[]byte]
}

// NewRenderer returns a Renderer backed by c. A nil cache disables memoization.
func NewRenderer(c *cache.LRUCache[[]byte]) *Renderer {
	return &Renderer{cache: c}
}

// PieSVG renders category totals as a pie chart with percentage labels.
func (r *Renderer) PieSVG(totals []core.CategoryAmount) ([]byte, error) {
	h := fnv.New64a()
	for _, t := range totals {
		fmt.Fprintf(h, "%s=%s;", t.Category, t.Amount.String())
	}
	return r.cached(fmt.Sprintf("pie:%x", h.Sum64()), func(w io.Writer) error {
		return Pie(w, totals)
	})
}

// BarSVG renders monthly totals as a bar chart.
func (r *Renderer) BarSVG(totals []core.MonthAmount) ([]byte, error) {
	h := fnv.New64a()
	for _, t := range totals {
		fmt.Fprintf(h, "%s=%s;", t.Month, t.Amount.String())
	}
	return r.cached(fmt.Sprintf("bar:%x", h.Sum64()), func(w io.Writer) error {
		return Bar(w, totals)
	})
}

func (r *Renderer) cached(key string, render func(io.Writer) error) ([]byte, error) {
	if r.cache != nil {
		if b, ok := r.cache.Get(key); ok {
			slog.Debug("Chart cache hit", "key", key)
			return b, nil
		}
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	if r.cache != nil {
		r.cache.Set(key, b)
	}
	return b, nil
}

// Pie writes an SVG pie chart of totals. Without any positive amount it
// writes a placeholder instead.
func Pie(w io.Writer, totals []core.CategoryAmount) error {
	values := make([]gochart.Value, 0, len(totals))
	for _, t := range totals {
		if !t.Amount.IsPositive() {
			continue
		}
		values = append(values, gochart.Value{
			Value: t.Amount.InexactFloat64(),
			Label: fmt.Sprintf("%s %.1f%%", t.Category, t.Share),
		})
	}
	if len(values) == 0 {
		return Placeholder(w, PieTitle)
	}
	pie := gochart.PieChart{
		Title:  PieTitle,
		Width:  width,
		Height: height,
		Values: values,
	}
	if err := pie.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// Bar writes an SVG bar chart of monthly totals. Without any positive
// amount it writes a placeholder instead.
func Bar(w io.Writer, totals []core.MonthAmount) error {
	bars := make([]gochart.Value, 0, len(totals))
	positive := false
	for _, t := range totals {
		if t.Amount.IsPositive() {
			positive = true
		}
		bars = append(bars, gochart.Value{Value: t.Amount.InexactFloat64(), Label: t.Month})
	}
	if !positive {
		return Placeholder(w, BarTitle)
	}
	bar := gochart.BarChart{
		Title:    BarTitle,
		Width:    width,
		Height:   height,
		BarWidth: 40,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		Bars: bars,
	}
	if err := bar.Render(gochart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// Placeholder writes a minimal SVG saying there is nothing to plot.
func Placeholder(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<text x="%d" y="30" text-anchor="middle" font-family="sans-serif" font-size="16">%s</text>`+
		`<text x="%d" y="%d" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#888">No data</text>`+
		`</svg>`,
		width, height, width, height, width/2, html.EscapeString(title), width/2, height/2)
	return err
}
