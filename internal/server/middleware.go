package server

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"clientlance/internal/auth"
	"clientlance/internal/i18n"
	"clientlance/internal/logging"
)

type ctxKey string

// accountContextKey holds the full *auth.Account, password digest included,
// since profile edits compare against it. Handlers must render it through
// Account.Profile.
const accountContextKey ctxKey = "account"

// requireAccount resolves the bearer access token into the calling account.
func (s *Server) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, err := s.Sessions.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), accountContextKey, acct)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRoles(roles []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicAccess(roles) {
				next.ServeHTTP(w, r)
				return
			}

			acct := accountFromContext(r.Context())
			if acct == nil {
				writeError(w, http.StatusUnauthorized, auth.MsgUnauthorized)
				return
			}

			for _, role := range roles {
				if acct.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, auth.MsgForbidden)
		})
	}
}

func accountFromContext(ctx context.Context) *auth.Account {
	if val, ok := ctx.Value(accountContextKey).(*auth.Account); ok {
		return val
	}
	return nil
}

// rateLimit caps attempts per client IP within one scope.
func (s *Server) rateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.RateLimiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, wait, err := s.RateLimiter.Allow(r.Context(), scope, clientIP(r, s.trustedProxies))
			if err != nil {
				logging.LogError(r.Context(), s.Logger, "rate limiter unavailable", err)
				writeError(w, http.StatusInternalServerError, msgInternal)
				return
			}
			if !allowed {
				seconds := int(math.Ceil(wait.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				s.Metrics.RateLimited.WithLabelValues(scope).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"message":  "Too many attempts. Please try again later",
					"cooldown": seconds,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func negotiateLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := i18n.WithLocale(r.Context(), i18n.LocaleFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
