// Package http exposes the JSON API. All entry routes share one set of
// handlers; the route segment picks the kind.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"grana/internal/auth"
	"grana/internal/core"
	"grana/internal/ledger"
	"grana/internal/log"
	"grana/internal/middleware/ratelimit"
	"grana/internal/middleware/security"
	"grana/internal/middleware/trace"
)

// routeKinds maps the API path segment to the entry kind it serves.
var routeKinds = map[string]core.Kind{
	"incomes":               core.KindIncome,
	"expenses":              core.KindExpense,
	"investments":           core.KindInvestment,
	"essential-incomes":     core.KindEssentialIncome,
	"essential-expenses":    core.KindEssentialExpense,
	"essential-investments": core.KindEssentialInvestment,
}

type Server struct {
	http.Server

	ledger   *ledger.Service
	sessions *auth.Sessions
	logger   *log.Logger

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

type Config struct {
	Addr              string
	RequestsPerMinute int
}

// NewServer wires the routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc *ledger.Service, sessions *auth.Sessions, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		ledger:   svc,
		sessions: sessions,
		logger:   logger.WithComponent("http"),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", s.handleMe)

	for segment, kind := range routeKinds {
		mux.HandleFunc(fmt.Sprintf("GET /api/v1/%s", segment), s.handleList(kind))
		mux.HandleFunc(fmt.Sprintf("POST /api/v1/%s", segment), s.handleCreate(kind))
		mux.HandleFunc(fmt.Sprintf("DELETE /api/v1/%s", segment), s.handleDeleteBatch(kind))
		if kind.IsTemplate() {
			mux.HandleFunc(fmt.Sprintf("PUT /api/v1/%s/{id}", segment), s.handleUpdate(kind))
			mux.HandleFunc(fmt.Sprintf("POST /api/v1/%s/{id}/register", segment), s.handleRegister(kind))
		}
	}

	mux.HandleFunc("GET /api/v1/dashboard/summary", s.handleDashboardSummary)
	mux.HandleFunc("GET /api/v1/dashboard/daily-series", s.handleDashboardDailySeries)

	ipResolver := security.NewClientIPResolver()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(ipResolver.ExtractClientIP)
	rateLimited := s.limiter.Middleware(ipResolver.ExtractClientIP, nil)

	var handler http.Handler = mux
	handler = sessions.Middleware(handler)
	handler = rateLimited(handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the server and its background goroutines exactly once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
