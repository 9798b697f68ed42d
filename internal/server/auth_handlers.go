package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clientlance/internal/auth"
	"clientlance/internal/logging"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	tokens, acct, err := s.Sessions.Login(r.Context(), auth.LoginInput{Email: req.Email, Password: req.Password})
	s.Metrics.observe("login", err)
	if err != nil {
		if acct != nil {
			s.audit(r, auth.AuditLoginFailed, acct.ID, map[string]any{"reason": string(auth.KindOf(err))})
		}
		s.writeAuthError(w, r, err)
		return
	}

	s.audit(r, auth.AuditLogin, acct.ID, nil)
	auth.SetRefreshCookie(w, tokens.RefreshToken, tokens.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: tokens.AccessToken})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if cookie, err := r.Cookie(auth.RefreshCookieName); err == nil {
		refreshToken = cookie.Value
	}

	access, _, err := s.Sessions.Refresh(r.Context(), refreshToken)
	s.Metrics.observe("refresh", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: access})
}

// handleLogout only clears the cookie; refresh tokens stay valid until they expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	acct, err := s.Recovery.VerifyEmail(r.Context(), chi.URLParam(r, "token"))
	s.Metrics.observe("verify_email", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	s.audit(r, auth.AuditEmailVerified, acct.ID, nil)
	writeMessage(w, http.StatusOK, "Email verified")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	err := s.Recovery.ForgotPassword(r.Context(), auth.ForgotPasswordInput{Email: req.Email})
	s.Metrics.observe("forgot_password", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "We've sent a password recovery link to your email")
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	acct, err := s.Recovery.ResetPassword(r.Context(), chi.URLParam(r, "token"), auth.ResetPasswordInput{Password: req.Password})
	s.Metrics.observe("reset_password", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	s.audit(r, auth.AuditPasswordReset, acct.ID, nil)
	writeMessage(w, http.StatusOK, "Password reset successfully. Please log in")
}

// audit records an auth event. A failed write is logged and never fails the request.
func (s *Server) audit(r *http.Request, event, accountID string, meta map[string]any) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.Log(r.Context(), auth.AuditEvent{
		EventType: event,
		AccountID: accountID,
		IP:        clientIP(r, s.trustedProxies),
		UserAgent: r.UserAgent(),
		Meta:      meta,
	})
	if err != nil {
		logging.LogError(r.Context(), s.Logger, "audit write failed", err)
	}
}
