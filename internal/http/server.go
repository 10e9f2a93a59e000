// Package http serves the ledger UI: server-rendered pages, HTMX partials,
// SVG charts and CSV downloads.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expenses/internal/chart"
	"expenses/internal/ledger"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	appweb "expenses/web"
)

const readyTimeout = 5 * time.Second

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	Logger             *log.Logger
	Charts             *chart.Renderer
	CurrencySymbol     string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    *ledger.Service
	charts    *chart.Renderer
	limiter   *ratelimit.Limiter
	currency  string
	logger    *log.Logger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc *ledger.Service, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Charts == nil {
		opts.Charts = chart.NewRenderer(nil)
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "$"
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		ledger:    svc,
		charts:    opts.Charts,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		currency:  opts.CurrencySymbol,
		logger:    opts.Logger.WithComponent(log.ComponentHTTP),
		started:   time.Now(),
	}

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.limiter.Stop()
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /ui/ledger", s.handleLedgerPartial)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/delete", s.handleDeleteExpense)
	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /charts/category.svg", s.handleCategoryChart)
	mux.HandleFunc("GET /charts/month.svg", s.handleMonthChart)
	mux.HandleFunc("GET /api/expenses", s.handleAPIExpenses)

	var h http.Handler = mux
	h = s.limiter.Middleware(clientIP, s.onRateLimited, http.MethodPost)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.Middleware(clientIP)(h)
	h = log.Middleware(opts.Logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.logger.Info("Rate limiter stopped",
			"tracked_clients", s.limiter.ActiveClients(),
			"rejected_requests", s.limiter.Rejected())
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	flashError(http.StatusTooManyRequests, "Too many requests, slow down").write(w)
}
