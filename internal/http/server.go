package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"roadreport/internal/cache"
	"roadreport/internal/core"
	applog "roadreport/internal/log"
	"roadreport/internal/middleware/ratelimit"
	"roadreport/internal/middleware/security"
	"roadreport/internal/middleware/trace"
	"roadreport/internal/services"
)

// Deps are the services and settings a Server is built from. Reports,
// Records and Exports are required.
type Deps struct {
	Reports *services.ReportService
	Records *services.RecordService
	Exports *services.ExportService
	Logger  *applog.Logger

	// RateLimitPerMinute caps writes per client IP; 0 uses the default.
	RateLimitPerMinute int
	// Ready reports whether backing services are reachable; nil means
	// always ready.
	Ready func(context.Context) error
}

type Server struct {
	http.Server

	reports *services.ReportService
	records *services.RecordService
	exports *services.ExportService
	logger  *applog.Logger
	ready   func(context.Context) error

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// Month metrics and summaries are cached until the next write.
	monthsCache  *cache.Loader[[]core.MonthMetrics]
	summaryCache *cache.Loader[core.Summary]
	caches       *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	httpLogger := logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		reports:      deps.Reports,
		records:      deps.Records,
		exports:      deps.Exports,
		logger:       httpLogger,
		ready:        deps.Ready,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:     security.NewDetector(),
		monthsCache:  cache.NewLoader(cache.NewLRUCache[[]core.MonthMetrics](1, 5*time.Minute)),
		summaryCache: cache.NewLoader(cache.NewLRUCache[core.Summary](100, 5*time.Minute)),
		caches:       cache.NewManager(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger.WithComponent(applog.ComponentTrace))

	s.caches.Register(s.monthsCache)
	s.caches.Register(s.summaryCache)
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/mileage", s.handleMileage)
	mux.HandleFunc("GET /api/expenses/totals", s.handleExpenseTotals)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/unclassified", s.handleUnclassified)
	mux.HandleFunc("GET /api/rates", s.handleRates)

	mux.Handle("PUT /api/rates/{key}", s.write(s.handleSetRate))
	mux.Handle("DELETE /api/rates/{key}", s.write(s.handleClearRate))
	mux.Handle("POST /api/trips", s.write(s.handleCreateTrip))
	mux.Handle("POST /api/trips/{id}/classify", s.write(s.handleClassifyTrip))
	mux.Handle("DELETE /api/trips/{id}", s.write(s.handleDeleteTrip))
	mux.Handle("POST /api/expenses", s.write(s.handleCreateExpense))
	mux.Handle("POST /api/expenses/{id}/classify", s.write(s.handleClassifyExpense))
	mux.Handle("DELETE /api/expenses/{id}", s.write(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/export/trips.csv", s.handleTripsCSV)
	mux.HandleFunc("GET /api/export/expenses.csv", s.handleExpensesCSV)
	mux.HandleFunc("GET /api/export/report.csv", s.handleReportCSV)
	mux.Handle("POST /api/exports", s.limited(http.HandlerFunc(s.handleRequestExport)))
	mux.HandleFunc("GET /api/exports/{id}", s.handleExportJob)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = s.detector.Middleware(httpLogger)(h)
	h = headers.Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = applog.Middleware(httpLogger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// limited applies the per-IP rate limit.
func (s *Server) limited(next http.Handler) http.Handler {
	return s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(next)
}

// write wraps a mutating handler: rate limited, and cached aggregates are
// dropped once it succeeds.
func (s *Server) write(next http.HandlerFunc) http.Handler {
	return s.limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)
		if rw.status < 300 {
			s.invalidate(r.Context())
		}
	}))
}

func (s *Server) invalidate(ctx context.Context) {
	n := s.monthsCache.Invalidate() + s.summaryCache.Invalidate()
	if n > 0 {
		applog.FromContext(ctx).DebugContext(ctx, "Cache invalidated", "entries_removed", n)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
