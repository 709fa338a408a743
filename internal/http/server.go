package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"
	"budgetinsights/internal/log"
	"budgetinsights/internal/middleware/ratelimit"
	"budgetinsights/internal/middleware/security"
	"budgetinsights/internal/middleware/trace"
	"budgetinsights/internal/services"
)

// InsightAPI is the part of the insight service exposed over HTTP.
type InsightAPI interface {
	GenerateForUser(ctx context.Context, userID string, month core.Date) (*services.GenerateResult, error)
	GenerateForCategory(ctx context.Context, userID, categoryID string, month core.Date) (*services.CategoryResult, error)
	ListInsights(ctx context.Context, userID string, includeDismissed bool) ([]insights.Record, error)
	DismissInsight(ctx context.Context, userID, id string) error
	SetBudget(ctx context.Context, b core.Budget) error
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RequestsPerMinute int
	// GenerateTimeout bounds a single generate request.
	GenerateTimeout time.Duration
}

type Server struct {
	http.Server
	api             InsightAPI
	limiter         *ratelimit.Limiter
	tracer          *trace.Middleware
	generateTimeout time.Duration
	now             func() time.Time
	shutdownOnce    sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, api InsightAPI, logger *log.Logger, opts Options) *Server {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 30 * time.Second
	}

	mux := http.NewServeMux()
	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      opts.GenerateTimeout + 10*time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		api:             api,
		limiter:         ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		tracer:          trace.NewMiddleware(logger, detector.ExtractClientIP),
		generateTimeout: opts.GenerateTimeout,
		now:             time.Now,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /users/{user}/insights", s.handleListInsights)
	mux.HandleFunc("POST /users/{user}/insights/generate", s.handleGenerate)
	mux.HandleFunc("POST /users/{user}/insights/{id}/dismiss", s.handleDismiss)
	mux.HandleFunc("PUT /users/{user}/categories/{category}/budget", s.handleSetBudget)

	// Only writes count against the rate limit
	limit := s.limiter.Middleware(detector.ExtractClientIP, isRead, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Handler = s.tracer.Middleware(headers.Middleware(detector.Middleware(limit(mux))))
	return s
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request counters for the status endpoint.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics()
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}
