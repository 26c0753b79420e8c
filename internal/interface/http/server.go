// Package http implements the REST API of the playground hub: scenario
// completions, progress reads and resets, user profiles, the Power Ranking,
// the scenario catalog, health probes and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/qaplayground/playground-hub/internal/application/command"
	"github.com/qaplayground/playground-hub/internal/application/query"
	"github.com/qaplayground/playground-hub/internal/interface/http/handlers"
	"github.com/qaplayground/playground-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration

	MaxHeaderBytes int

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64

	EnableCORS bool
	CORS       handlers.CORSConfig

	// EnableMetrics exposes GET /metrics when Dependencies.Metrics is set.
	EnableMetrics bool

	// RateLimitPerMinute - requests per minute per IP (0 = disabled).
	RateLimitPerMinute int

	// Version is reported by the root and health endpoints.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		MaxBodyBytes:       64 << 10,
		EnableCORS:         true,
		CORS:               handlers.DefaultCORSConfig(),
		EnableMetrics:      true,
		RateLimitPerMinute: 300,
		Version:            "dev",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Metrics is the HTTP view of the metrics registry.
type Metrics interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
	Handler() http.Handler
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Commands (CQRS Write Side)
	CompleteScenario *command.CompleteScenarioHandler
	ResetProgress    *command.ResetProgressHandler
	SaveProfile      *command.SaveProfileHandler

	// Queries (CQRS Read Side)
	GetProgress   *query.GetProgressHandler
	GetProfile    *query.GetProfileHandler
	GetRanking    *query.GetRankingHandler
	ListScenarios *query.ListScenariosHandler

	Logger        *logger.Logger
	HealthChecker handlers.HealthChecker
	Metrics       Metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *logger.Logger

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if s.deps.HealthChecker == nil {
		s.deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)
	s.router.HandleFunc("GET /{$}", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	noCache := handlers.NoCacheMiddleware
	catalogCache := handlers.CacheControlMiddleware(5*time.Minute, false)

	s.router.Handle("POST /api/v1/progress", noCache(http.HandlerFunc(s.handleCompleteScenario)))
	s.router.Handle("GET /api/v1/users/{userId}/progress", noCache(http.HandlerFunc(s.handleGetProgress)))
	s.router.Handle("POST /api/v1/users/{userId}/progress/reset", noCache(http.HandlerFunc(s.handleResetProgress)))
	s.router.Handle("GET /api/v1/users/{userId}/profile", noCache(http.HandlerFunc(s.handleGetProfile)))
	s.router.Handle("PUT /api/v1/users/{userId}/profile", noCache(http.HandlerFunc(s.handleSaveProfile)))
	s.router.Handle("GET /api/v1/ranking", noCache(http.HandlerFunc(s.handleGetRanking)))
	s.router.Handle("GET /api/v1/scenarios", catalogCache(http.HandlerFunc(s.handleListScenarios)))

	if s.config.EnableMetrics && s.deps.Metrics != nil {
		s.router.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router. The first middleware is the outermost.
func (s *Server) buildMiddlewareChain(router http.Handler) http.Handler {
	chain := []handlers.MiddlewareFunc{
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
	}
	if s.config.EnableCORS {
		chain = append(chain, handlers.CORSMiddleware(s.config.CORS))
	}
	if s.rateLimiter != nil {
		chain = append(chain, s.rateLimitMiddleware)
	}
	chain = append(chain, handlers.SecurityHeadersMiddleware)
	if s.config.MaxBodyBytes > 0 {
		chain = append(chain, handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	}
	if s.deps.Metrics != nil {
		// innermost, so the mux has set r.Pattern when it returns
		chain = append(chain, s.metricsMiddleware)
	}
	return handlers.ChainHandler(router, chain...)
}

// requestIDMiddleware adds a unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("ip", getClientIP(r)),
			logger.String("user_agent", r.UserAgent()),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware implements per-IP rate limiting.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latency per route pattern.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.deps.Metrics.ObserveHTTP(r.Method, route, rw.statusCode, time.Since(start))
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	// also stops a ListenAndServe that has not started yet
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSONWithMeta(w, r, status, data, nil)
}

func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	encode(w, status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: getRequestID(r.Context()),
	})
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSONErrorWithDetails(w, r, status, code, message, "")
}

func writeJSONErrorWithDetails(w http.ResponseWriter, r *http.Request, status int, code, message, details string) {
	encode(w, status, JSONResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

func encode(w http.ResponseWriter, status int, v JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getRequestID extracts the request ID from context.
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func generateRequestID() string {
	return uuid.NewString()
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter keeps one token bucket per client IP. A janitor goroutine drops
// buckets idle for a full window until Stop.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	every    rate.Limit
	burst    int
	window   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter allows limit requests per window, refilled evenly.
func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		limiters: make(map[string]*clientLimiter),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

func (rl *rateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

// evictIdle drops buckets not used since now minus one window. A bucket idle
// that long is full again, so dropping it changes no decision.
func (rl *rateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.window)
	for key, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
