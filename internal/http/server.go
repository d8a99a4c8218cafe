package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"outlay/internal/cache"
	"outlay/internal/core"
	applog "outlay/internal/log"
	"outlay/internal/services"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Server is the JSON API over the expense and insight services. It owns the
// per-user list cache and the request rate limiter.
type Server struct {
	http.Server
	expenses *services.ExpenseService
	insights *services.InsightService

	rateLimiter  *rateLimiter
	listCache    *cache.LRU[[]core.Expense]
	cacheSweeper *cache.Sweeper
	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, expenses *services.ExpenseService, insights *services.InsightService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		expenses:     expenses,
		insights:     insights,
		rateLimiter:  newRateLimiter(),
		listCache:    cache.NewLRU[[]core.Expense](256, time.Minute),
		cacheSweeper: cache.NewSweeper(),
	}

	s.cacheSweeper.Register(s.listCache)
	s.cacheSweeper.Start(10 * time.Minute)

	mux.HandleFunc("POST /signup", s.withSecurityHeaders(s.handleSignup))
	mux.HandleFunc("POST /login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("POST /add-expense", s.withSecurityHeaders(s.handleAddExpense))
	mux.HandleFunc("GET /manage-expense/{userId}", s.withSecurityHeaders(s.handleListExpenses))
	mux.HandleFunc("PUT /expenses/{expenseId}", s.withSecurityHeaders(s.handleUpdateExpense))
	mux.HandleFunc("PATCH /expenses/{expenseId}", s.withSecurityHeaders(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{expenseId}", s.withSecurityHeaders(s.handleDeleteExpense))
	mux.HandleFunc("POST /ai/insights/{userId}", s.withSecurityHeaders(s.handleInsights))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	return s
}

// Shutdown stops the background goroutines, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheSweeper.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, ip,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit only mutating requests.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldComponent, applog.ComponentHTTP,
				applog.FieldClientIP, ip,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, ip)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
