package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"invoicing/internal/core"
	"invoicing/internal/log"
	"invoicing/internal/middleware/ratelimit"
)

// InvoiceService is what the API needs from the application layer.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
	GetInvoice(ctx context.Context, id string) (core.Invoice, error)
	ListInvoices(ctx context.Context, f core.Filter) ([]core.Invoice, error)
	Summary(ctx context.Context, f core.Filter) (core.ReportSummary, error)
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	invoices    InvoiceService
	rateLimiter *ratelimit.Limiter
	logger      *log.Logger
}

// NewServer wires the router. Call Shutdown to release the rate limiter.
func NewServer(addr string, invoices InvoiceService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		invoices:    invoices,
		rateLimiter: ratelimit.NewLimiter(limitCfg),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/invoices", func(r chi.Router) {
		r.With(s.rateLimiter.Middleware(ratelimit.ClientIP, s.onRateLimited)).Post("/", s.handleCreateInvoice)
		r.Get("/", s.handleListInvoices)
		r.Get("/{id}", s.handleGetInvoice)
	})

	r.Get("/reports/summary", s.handleSummary)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, ratelimit.ClientIP(r),
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown stops accepting requests, drains in-flight ones and stops the
// rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}
