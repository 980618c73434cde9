// Package http exposes the REST and WebSocket surface of the service.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"pravacash/internal/auth"
	"pravacash/internal/config"
	applog "pravacash/internal/log"
	"pravacash/internal/middleware/ratelimit"
	"pravacash/internal/middleware/security"
	"pravacash/internal/middleware/trace"
	"pravacash/internal/push"
	"pravacash/internal/services"
	"pravacash/internal/storage"
)

// Server wires the handlers, middleware chain, and push hub around an
// http.Server.
type Server struct {
	http.Server

	logger  *applog.Logger
	issuer  *auth.TokenIssuer
	users   *services.UserService
	txs     *services.TransactionService
	reports *services.ReportService
	admin   *services.AdminService
	hub     *push.Hub
	repo    *storage.SQLiteRepository

	limiter      *ratelimit.Limiter
	authLimiter  *ratelimit.Limiter
	detector     *security.Detector
	headers      *security.HeadersMiddleware
	shutdownOnce sync.Once
}

// Deps bundles everything the server needs.
type Deps struct {
	Config  *config.Config
	Logger  *applog.Logger
	Issuer  *auth.TokenIssuer
	Users   *services.UserService
	Txs     *services.TransactionService
	Reports *services.ReportService
	Admin   *services.AdminService
	Hub     *push.Hub
	Repo    *storage.SQLiteRepository
}

func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger:  deps.Logger.WithComponent(applog.ComponentHTTP),
		issuer:  deps.Issuer,
		users:   deps.Users,
		txs:     deps.Txs,
		reports: deps.Reports,
		admin:   deps.Admin,
		hub:     deps.Hub,
		repo:    deps.Repo,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.Config.RequestsPerMinute,
		}),
		authLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.Config.AuthRequestsPerMinute,
		}),
		detector: security.NewDetector(),
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
	}

	s.routes(mux)

	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	s.Handler = tracer.Middleware(s.headers.Middleware(s.flagSuspicious(
		s.limiter.Middleware(s.detector.ExtractClientIP)(mux))))

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	// Credential endpoints sit behind the stricter limiter.
	strict := s.authLimiter.Middleware(s.detector.ExtractClientIP)
	mux.Handle("POST /api/auth/register", strict(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/auth/login", strict(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("GET /api/auth/verify", s.requireAuth(s.handleVerify))

	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))
	mux.HandleFunc("DELETE /api/transactions", s.requireAuth(s.handleDeleteAllTransactions))
	mux.HandleFunc("POST /api/transactions/import", s.requireAuth(s.handleImport))
	mux.HandleFunc("GET /api/transactions/export", s.requireAuth(s.handleExport))

	mux.HandleFunc("GET /api/user/settings", s.requireAuth(s.handleGetSettings))
	mux.HandleFunc("PUT /api/user/settings", s.requireAuth(s.handleUpdateSettings))
	mux.HandleFunc("PUT /api/user/pin", s.requireAuth(s.handleSetPIN))
	mux.HandleFunc("POST /api/user/verify-pin", s.requireAuth(s.handleVerifyPIN))

	mux.HandleFunc("GET /api/reports/summary", s.requireAuth(s.handleReportSummary))
	mux.HandleFunc("GET /api/reports/ledger", s.requireAuth(s.handleReportLedger))
	mux.HandleFunc("GET /api/reports/series", s.requireAuth(s.handleReportSeries))
	mux.HandleFunc("GET /api/reports/heatmap", s.requireAuth(s.handleReportHeatmap))

	mux.HandleFunc("GET /api/admin/stats", s.requireAdmin(s.handleAdminStats))
	mux.HandleFunc("GET /api/admin/users", s.requireAdmin(s.handleAdminListUsers))
	mux.HandleFunc("POST /api/admin/users", s.requireAdmin(s.handleAdminCreateUser))
	mux.HandleFunc("PUT /api/admin/users/{id}", s.requireAdmin(s.handleAdminUpdateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.requireAdmin(s.handleAdminDeleteUser))
	mux.HandleFunc("GET /api/admin/transactions", s.requireAdmin(s.handleAdminListTransactions))

	mux.HandleFunc("GET /ws", s.requireAuth(s.handleWS))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
}

// flagSuspicious logs scanner-looking requests; they are not blocked,
// the log line is for operators.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			s.logger.WarnContext(r.Context(), "suspicious request",
				applog.FieldPath, r.URL.Path,
				applog.FieldMethod, r.Method,
				applog.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the limiters and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.authLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
