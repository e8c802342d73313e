// Package http exposes the ledger, reports and budgets as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"finwise/internal/auth"
	"finwise/internal/export"
	"finwise/internal/log"
	"finwise/internal/middleware/ratelimit"
	"finwise/internal/middleware/security"
	"finwise/internal/middleware/trace"
	"finwise/internal/services"
)

// Options are the collaborators of the API. Ready may be nil.
type Options struct {
	Ledger   *services.LedgerService
	Budgets  *services.BudgetService
	Accounts *services.AccountService
	Issuer   *auth.Issuer
	Logger   *log.Logger

	RateLimitPerMinute int
	Export             export.Options
	Ready              func(ctx context.Context) error
}

type Server struct {
	http.Server
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute})
	tracer := trace.NewMiddleware(detector.ExtractClientIP)
	h := &handlers{opts: opts}

	r := chi.NewRouter()
	r.Use(log.Middleware(logger))
	r.Use(tracer.Middleware)
	r.Use(detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", h.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, detector.ExtractClientIP(r))
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
		}, http.MethodPost, http.MethodPut, http.MethodDelete))

		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(opts.Issuer))

			r.Get("/transactions", h.handleListTransactions)
			r.Post("/transactions", h.handleRecordTransaction)
			r.Delete("/transactions", h.handleClearTransactions)

			r.Get("/report", h.handleReport)
			r.Get("/export.csv", h.handleExport)

			r.Get("/budgets", h.handleListBudgets)
			r.Post("/budgets/import", h.handleImportBudgets)
			r.Put("/budgets/{category}", h.handleSetBudget)
			r.Get("/budgets/{category}", h.handleGetBudget)
			r.Get("/budgets/{category}/status", h.handleBudgetStatus)
		})
	})

	return &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		limiter: limiter,
	}
}

// Shutdown stops the limiter's cleanup goroutine, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.opts.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
