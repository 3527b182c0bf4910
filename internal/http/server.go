package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "receiptbook/internal/log"
	"receiptbook/internal/services"
	"receiptbook/internal/session"
)

type Server struct {
	http.Server
	receipts  *services.ReceiptService
	dashboard *services.DashboardService
	accounts  *services.AccountService
	sessions  *session.Manager

	rateLimiter  *rateLimiter
	slogger      *applog.StructuredLogger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, receipts *services.ReceiptService, dashboard *services.DashboardService, accounts *services.AccountService, sessions *session.Manager) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		receipts:    receipts,
		dashboard:   dashboard,
		accounts:    accounts,
		sessions:    sessions,
		rateLimiter: newRateLimiter(),
		slogger:     applog.NewStructuredLogger(applog.New(applog.DefaultConfig())),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/auth/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("/auth/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/auth/logout", s.withSecurityHeaders(s.withAuth(s.handleLogout)))

	mux.HandleFunc("/receipts/extract", s.withSecurityHeaders(s.withAuth(s.handleExtract)))
	mux.HandleFunc("/receipts", s.withSecurityHeaders(s.withAuth(s.handleSaveReceipt)))

	mux.HandleFunc("/dashboard", s.withSecurityHeaders(s.withAuth(s.handleDashboard)))
	mux.HandleFunc("/dashboard/categories", s.withSecurityHeaders(s.withAuth(s.handleCategories)))
	mux.HandleFunc("/items", s.withSecurityHeaders(s.withAuth(s.handleSearch)))

	mux.HandleFunc("/account/avatar", s.withSecurityHeaders(s.withAuth(s.handleUpdateAvatar)))
	mux.HandleFunc("/account/password", s.withSecurityHeaders(s.withAuth(s.handleUpdatePassword)))
	mux.HandleFunc("/account", s.withSecurityHeaders(s.withAuth(s.handlePurgeAccount)))

	mux.HandleFunc("/admin/purge", s.withSecurityHeaders(s.withAuth(s.handleAdminPurge)))
	mux.HandleFunc("/maintenance/prune", s.withSecurityHeaders(s.withAuth(s.handlePruneDuplicates)))

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.slogger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds())
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withAuth resolves the session token from the Authorization header or
// the session cookie and rejects unauthenticated requests.
func (s *Server) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(sessionCookieName); err == nil {
				token = c.Value
			}
		}

		sess, ok := s.sessions.Get(token)
		if !ok {
			writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}

		next(w, r, sess)
	}
}

const sessionCookieName = "receiptbook_session"

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(auth, "Bearer "); found {
		return strings.TrimSpace(after)
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type contextKey string

const requestIDKey contextKey = "request_id"

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
