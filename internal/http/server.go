// Package http exposes the ledger as a JSON REST API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/services"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userID returns the authenticated user for the request. The auth
// middleware guarantees it is set on every /api route.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type Server struct {
	http.Server

	ledger       *services.LedgerService
	materializer *services.Materializer
	settlement   *services.Settlement
	verifier     auth.Verifier
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledgerSvc *services.LedgerService, materializer *services.Materializer, settlement *services.Settlement, verifier auth.Verifier) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server:       http.Server{Addr: addr, Handler: mux},
		ledger:       ledgerSvc,
		materializer: materializer,
		settlement:   settlement,
		verifier:     verifier,
		rateLimiter:  newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	api := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.withMiddleware(s.withAuth(h)))
	}

	api("POST /api/expenses", s.handleCreateExpense)
	api("GET /api/expenses", s.handleListExpenses)
	api("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	api("POST /api/owed", s.handleCreateOwed)
	api("GET /api/owed", s.handleListOwed)
	api("DELETE /api/owed/{id}", s.handleDeleteOwed)
	api("POST /api/owed/{id}/settle", s.handleSettleOwed)

	api("POST /api/owedtome", s.handleCreateOwedToMe)
	api("GET /api/owedtome", s.handleListOwedToMe)
	api("DELETE /api/owedtome/{id}", s.handleDeleteOwedToMe)
	api("POST /api/owedtome/{id}/settle", s.handleSettleOwedToMe)

	api("POST /api/recurring", s.handleCreateRecurring)
	api("GET /api/recurring", s.handleListRecurring)
	api("DELETE /api/recurring/{id}", s.handleDeleteRecurring)
	api("POST /api/recurring/process", s.handleProcessRecurring)

	api("POST /api/budgets", s.handleCreateBudget)
	api("GET /api/budgets", s.handleListBudgets)
	api("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	api("GET /api/budgets/progress", s.handleBudgetProgress)

	api("GET /api/reports/month", s.handleMonthReport)
	api("GET /api/reports/comparison", s.handleComparisonReport)
	api("GET /api/reports/trend", s.handleTrendReport)

	return s
}

// Shutdown stops the listener and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withMiddleware adds security headers, rate limiting on mutating
// requests, a request ID, and start/completion logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), contextKey("request_id"), requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// withAuth resolves the bearer token to a user ID and stores it on the
// request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		uid, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			slog.ErrorContext(r.Context(), "Token verification failed", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication unavailable")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
