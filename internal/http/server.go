package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/market"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/receipt"
	"fintrack/internal/services"
)

// MarketData is the part of the market client the API serves.
type MarketData interface {
	ListAssets(ctx context.Context, limit int) ([]market.Asset, error)
	History(ctx context.Context, id int64, start, end time.Time, interval string) ([]market.PricePoint, error)
}

// Services are the application services behind the routes. Importer and
// Market are optional; their routes answer 503 when nil.
type Services struct {
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Stats        *services.StatsService
	Importer     *receipt.Importer
	Market       MarketData

	// Ready reports whether the process can serve traffic; nil means always ready.
	Ready func(context.Context) error
}

type Options struct {
	RateLimit ratelimit.Config
	Headers   security.HeadersConfig
	Now       func() time.Time
}

func DefaultOptions() Options {
	return Options{
		RateLimit: ratelimit.DefaultConfig(),
		Headers:   security.DefaultHeadersConfig(),
		Now:       time.Now,
	}
}

type Server struct {
	http.Server
	svc    Services
	logger *log.Logger
	now    func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware into a ready-to-run http.Server.
func NewServer(addr string, svc Services, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:      svc,
		logger:   httpLogger,
		now:      opts.Now,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, httpLogger)

	mux := http.NewServeMux()
	s.routes(mux)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.Mutating, s.onRateLimited)(mux)
	var handler http.Handler = s.detector.Middleware(limited)
	handler = security.NewHeadersMiddleware(opts.Headers).Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(httpLogger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(httpLogger.Handler(), slog.LevelWarn),
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/budgets/progress", s.handleBudgetProgress)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /api/stats/summary", s.handleStatsSummary)
	mux.HandleFunc("GET /api/stats/categories", s.handleStatsCategories)
	mux.HandleFunc("GET /api/stats/trend", s.handleStatsTrend)
	mux.HandleFunc("GET /api/stats/average", s.handleStatsAverage)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("POST /api/imports", s.handleOpenImport)
	mux.HandleFunc("GET /api/imports/{id}", s.handleGetImport)
	mux.HandleFunc("DELETE /api/imports/{id}", s.handleDiscardImport)
	mux.HandleFunc("POST /api/imports/{id}/scan", s.handleScanImport)
	mux.HandleFunc("PATCH /api/imports/{id}/drafts/{index}", s.handleEditDraft)
	mux.HandleFunc("DELETE /api/imports/{id}/drafts/{index}", s.handleRemoveDraft)
	mux.HandleFunc("POST /api/imports/{id}/commit", s.handleCommitImport)

	mux.HandleFunc("GET /api/crypto/assets", s.handleListAssets)
	mux.HandleFunc("GET /api/crypto/assets/{id}/history", s.handleAssetHistory)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", err.Error()).Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

func unavailable(w http.ResponseWriter, feature string) {
	ErrorResponse(http.StatusServiceUnavailable, "unavailable", feature+" is not configured").Write(w)
}

// Metrics is a point-in-time view of the middleware counters.
type Metrics struct {
	Trace     trace.Metrics
	RateLimit ratelimit.Metrics
	Security  security.DetectionMetrics
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Trace:     s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
		m := s.Metrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			log.FieldOperation, log.OpShutdown,
			"requests", m.Trace.TotalRequests,
			"server_errors", m.Trace.ServerErrors,
			"rate_limit_hits", m.RateLimit.TotalHits,
			"suspicious_requests", m.Security.SuspiciousRequests)
	})
	return err
}

// ListenAndServe treats a graceful shutdown as success.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
