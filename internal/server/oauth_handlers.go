package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"clientlance/internal/auth"
	"clientlance/internal/logging"
)

func (s *Server) handleSSOStart(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "provider"))
	provider, ok := s.Providers[name]
	if !ok {
		s.ssoRedirect(w, r, false, "unsupported_provider")
		return
	}

	state, err := s.OAuthStates.Create(r.Context(), name)
	if err != nil {
		logging.LogError(r.Context(), s.Logger, "oauth state create failed", err)
		s.ssoRedirect(w, r, false, "server_error")
		return
	}
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "provider"))
	provider, ok := s.Providers[name]
	if !ok {
		s.ssoRedirect(w, r, false, "unsupported_provider")
		return
	}

	q := r.URL.Query()
	valid, err := s.OAuthStates.Consume(r.Context(), q.Get("state"), name)
	if err != nil {
		logging.LogError(r.Context(), s.Logger, "oauth state consume failed", err)
		s.ssoRedirect(w, r, false, "server_error")
		return
	}
	if !valid {
		s.ssoRedirect(w, r, false, "invalid_state")
		return
	}
	if q.Get("error") != "" {
		s.ssoRedirect(w, r, false, "access_denied")
		return
	}
	code := q.Get("code")
	if code == "" {
		s.ssoRedirect(w, r, false, "missing_code")
		return
	}

	identity, err := provider.Exchange(r.Context(), code)
	if err != nil {
		logging.LogError(r.Context(), s.Logger, "oauth exchange failed", err)
		s.ssoRedirect(w, r, false, "exchange_failed")
		return
	}

	tokens, acct, err := s.Reconciler.Reconcile(r.Context(), *identity)
	s.Metrics.observe("external_sign_in", err)
	if err != nil {
		switch auth.KindOf(err) {
		case auth.KindForbidden:
			s.ssoRedirect(w, r, false, "unverified_account")
		case auth.KindInternal:
			logging.LogError(r.Context(), s.Logger, "external sign-in failed", err)
			s.ssoRedirect(w, r, false, "server_error")
		default:
			s.ssoRedirect(w, r, false, string(auth.KindOf(err)))
		}
		return
	}

	s.audit(r, auth.AuditExternalSignIn, acct.ID, map[string]any{"provider": identity.Provider})
	auth.SetRefreshCookie(w, tokens.RefreshToken, tokens.RefreshExpiresAt)
	s.ssoRedirect(w, r, true, "")
}

// ssoRedirect sends the browser back to the frontend with the outcome in the query.
func (s *Server) ssoRedirect(w http.ResponseWriter, r *http.Request, authenticated bool, reason string) {
	target := s.Config.OAuth.FailureRedirectURL
	if authenticated {
		target = s.Config.OAuth.SuccessRedirectURL
	}

	u, err := url.Parse(target)
	if err != nil || target == "" {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	if authenticated {
		q.Set("authenticated", "true")
	} else {
		q.Set("authenticated", "false")
		if reason != "" {
			q.Set("reason", reason)
		}
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
