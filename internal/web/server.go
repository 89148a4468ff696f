// Package web provides the HTTP server for the table grids: a JSON rows API
// that remote grids query, an option-list API for header filters, and an
// HTML table view rendered through a grid.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/gridengine/internal/core"
	"github.com/JonMunkholm/gridengine/internal/pipeline"
	"github.com/JonMunkholm/gridengine/internal/schema"
	"github.com/JonMunkholm/gridengine/internal/source"
	mw "github.com/JonMunkholm/gridengine/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
)

// Options configures a Server.
type Options struct {
	// RowsPerPage is the page size for tables that set none.
	RowsPerPage    int
	PagesToDisplay int

	// Remote makes every table view load rows through the rows API.
	Remote bool

	// DefaultLocator is used by table pipeline steps declared without one.
	DefaultLocator string

	// FetchTimeout bounds the work of one table view.
	FetchTimeout time.Duration

	// MaxViews is the number of table views and exports built at once.
	// Requests wait up to ViewWait for a free slot.
	MaxViews int
	ViewWait time.Duration

	// Transport fetches absolute locators. Relative locators are served
	// by the server itself.
	Transport pipeline.Transport

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RowsPerPage <= 0 {
		o.RowsPerPage = 25
	}
	if o.PagesToDisplay <= 0 {
		o.PagesToDisplay = 5
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.Transport == nil {
		o.Transport = pipeline.NewHTTPTransport("", o.FetchTimeout)
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 15 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	return o
}

// Server is the HTTP server for the grid tables.
type Server struct {
	tables  *schema.Registry
	sources map[string]source.Source
	opts    Options
	exprs   *core.ExprFilters
	views   *viewLimiter
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server. sources maps a table key to the source
// answering its queries; tables without a source are listed but not served.
func NewServer(tables *schema.Registry, sources map[string]source.Source, opts Options) *Server {
	s := &Server{
		tables:  tables,
		sources: sources,
		opts:    opts.withDefaults(),
		exprs:   core.NewExprFilters(),
		router:  chi.NewRouter(),
	}
	s.views = newViewLimiter(s.opts.MaxViews, s.opts.ViewWait)
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/tables/{table}", s.limitViews(s.handleTableView))
	s.router.Get("/tables/{table}/export.csv", s.limitViews(s.handleExport))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "views": s.views.Status()})
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{table}", s.handleTableDefinition)

		// Remote query contract
		r.Get("/tables/{table}/rows", s.handleRows)

		// Header filter option lists
		r.Get("/tables/{table}/options/{field}", s.handleOptions)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr, "tables", s.tables.Count())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and waits for table views in
// flight to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if err := s.views.WaitForDrain(ctx); err != nil {
		slog.Warn("table views still running at shutdown", "active", s.views.ActiveCount())
		return err
	}
	return nil
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// The table view is server rendered and needs no scripts
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
