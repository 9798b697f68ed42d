package server

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clientlance/internal/auth"
	"clientlance/internal/config"
	"clientlance/internal/sso"
)

type Server struct {
	Sessions    *auth.SessionManager
	Recovery    *auth.RecoveryManager
	Reconciler  *auth.Reconciler
	Profiles    *auth.ProfileManager
	RateLimiter *auth.RateLimiter
	OAuthStates *auth.OAuthStateStore
	Audit       *auth.AuditLogger
	Providers   map[string]sso.Provider
	Metrics     *Metrics
	Config      config.Config
	Logger      *slog.Logger

	trustedProxies []netip.Prefix
}

type Deps struct {
	Sessions    *auth.SessionManager
	Recovery    *auth.RecoveryManager
	Reconciler  *auth.Reconciler
	Profiles    *auth.ProfileManager
	RateLimiter *auth.RateLimiter
	OAuthStates *auth.OAuthStateStore
	Audit       *auth.AuditLogger
	Providers   []sso.Provider
	Metrics     *Metrics
	Logger      *slog.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	providers := make(map[string]sso.Provider, len(deps.Providers))
	for _, p := range deps.Providers {
		providers[p.Name()] = p
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Server{
		Sessions:       deps.Sessions,
		Recovery:       deps.Recovery,
		Reconciler:     deps.Reconciler,
		Profiles:       deps.Profiles,
		RateLimiter:    deps.RateLimiter,
		OAuthStates:    deps.OAuthStates,
		Audit:          deps.Audit,
		Providers:      providers,
		Metrics:        metrics,
		Config:         cfg,
		Logger:         logger,
		trustedProxies: parseTrustedProxies(cfg.TrustedProxies),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(negotiateLocale)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	r.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/login")), s.rateLimit("login")).Post("/auth/login", s.handleLogin)
	r.With(s.requireRoles(accessRoles(http.MethodGet, "/auth/refresh"))).Get("/auth/refresh", s.handleRefresh)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/logout"))).Post("/auth/logout", s.handleLogout)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/verify/{token}"))).Post("/auth/verify/{token}", s.handleVerifyEmail)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/forgot")), s.rateLimit("forgot")).Post("/auth/forgot", s.handleForgotPassword)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/auth/reset/{token}"))).Post("/auth/reset/{token}", s.handleResetPassword)
	r.With(s.requireRoles(accessRoles(http.MethodGet, "/auth/sso/{provider}"))).Get("/auth/sso/{provider}", s.handleSSOStart)
	r.With(s.requireRoles(accessRoles(http.MethodGet, "/auth/sso/{provider}/callback"))).Get("/auth/sso/{provider}/callback", s.handleSSOCallback)

	r.With(s.requireRoles(accessRoles(http.MethodPost, "/users/register"))).Post("/users/register", s.handleRegister)
	r.With(s.requireRoles(accessRoles(http.MethodPost, "/users/resend/email")), s.rateLimit("resend")).Post("/users/resend/email", s.handleResendEmail)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAccount)

		pr.With(s.requireRoles(accessRoles(http.MethodGet, "/users"))).Get("/users", s.handleGetProfile)
		pr.With(s.requireRoles(accessRoles(http.MethodPatch, "/users/{id}"))).Patch("/users/{id}", s.handleUpdateProfile)
		pr.With(s.requireRoles(accessRoles(http.MethodDelete, "/users/{id}"))).Delete("/users/{id}", s.handleDeleteAccount)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
