package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API delegates to.
type Deps struct {
	Auth         *auth.Service
	Transactions *services.TransactionService
	Store        Pinger
	// Lists is the per-user list cache, reported on /metrics when set.
	Lists        *cache.LRUCache[int64, []core.Transaction]
	Logger       *log.Logger

	CORSOrigins        []string
	RateLimitPerMinute int
	// TrustedProxies replaces the default private ranges whose
	// X-Forwarded-For is honoured. Empty keeps the defaults.
	TrustedProxies     []string
}

type Server struct {
	http.Server
	auth   *auth.Service
	txs    *services.TransactionService
	store  Pinger
	lists  *cache.LRUCache[int64, []core.Transaction]
	logger *log.Logger
	events *log.StructuredLogger

	traceMiddleware  *trace.Middleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime   time.Time
	created  atomic.Int64
	updated  atomic.Int64
	deleted  atomic.Int64
	exported atomic.Int64
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server with the base timeouts applied.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		auth:             d.Auth,
		txs:              d.Transactions,
		store:            d.Store,
		lists:            d.Lists,
		logger:           logger,
		events:           log.NewStructuredLogger(logger),
		securityDetector: security.NewDetector(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: d.RateLimitPerMinute,
		}),
	}
	s.appMetrics.uptime = time.Now()
	if len(d.TrustedProxies) > 0 {
		if err := s.securityDetector.SetTrustedProxies(d.TrustedProxies); err != nil {
			logger.Warn("Ignoring invalid trusted proxies, keeping defaults", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.Handler = s.routes(d.CORSOrigins)
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(s.traceMiddleware.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{"Content-Disposition", trace.HeaderRequestID},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.rateLimited))
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/transactions/export/csv", s.handleExportCSV)
			r.Get("/transactions/export/pdf", s.handleExportPDF)
			r.Get("/transactions/summary", s.handleSummary)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "Ruta no encontrada.").Write(w)
	})
	return r
}

// RunMaintenance runs background housekeeping until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context) {
	s.rateLimiter.Run(ctx)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, msgRateLimited).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers within a few seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	if s.lists != nil {
		checks["cache"] = map[string]any{"entries": s.lists.Len(), "status": "ok"}
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %g\n\n", name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_client_errors_total", "Responses with a 4xx status", traceMetrics.ClientErrors)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_response_time_avg_ms", "Average response time in milliseconds",
		float64(traceMetrics.AverageResponseTime.Microseconds())/1000)

	counter("transactions_created_total", "Transactions created", s.appMetrics.created.Load())
	counter("transactions_updated_total", "Transactions updated", s.appMetrics.updated.Load())
	counter("transactions_deleted_total", "Transactions deleted", s.appMetrics.deleted.Load())
	counter("exports_total", "CSV and PDF exports served", s.appMetrics.exported.Load())

	if s.lists != nil {
		stats := s.lists.Stats()
		counter("cache_hits_total", "Transaction list cache hits", stats.Hits)
		counter("cache_misses_total", "Transaction list cache misses", stats.Misses)
		gauge("cache_entries", "Current cache entries", float64(stats.Size))
	}

	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.LimitedRequests)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount))
	counter("suspicious_requests_total", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Requests blocked by method", securityMetrics.BlockedRequests)

	gauge("uptime_seconds", "Application uptime in seconds", float64(int64(time.Since(s.appMetrics.uptime).Seconds())))
}
