package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clientlance/internal/auth"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	res, err := s.Recovery.Signup(r.Context(), auth.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	s.Metrics.observe("signup", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.audit(r, auth.AuditSignup, res.Account.ID, nil)
	auth.SetResendCookie(w, res.ResendToken, res.ResendExpiresAt)
	writeMessage(w, http.StatusCreated, "Registered successfully")
}

func (s *Server) handleResendEmail(w http.ResponseWriter, r *http.Request) {
	var resendToken string
	if cookie, err := r.Cookie(auth.ResendCookieName); err == nil {
		resendToken = cookie.Value
	}

	err := s.Recovery.ResendVerification(r.Context(), resendToken)
	s.Metrics.observe("resend_verification", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Email sent")
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	acct := accountFromContext(r.Context())
	writeJSON(w, http.StatusOK, s.Profiles.Get(acct))
}

type updateProfileRequest struct {
	Username    *string `json:"username"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
	ProfileURL  *string `json:"profileUrl"`
	Password    string  `json:"password"`
	NewPassword *string `json:"newPassword"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	actor := accountFromContext(r.Context())
	profile, err := s.Profiles.Update(r.Context(), actor, chi.URLParam(r, "id"), auth.UpdateProfileInput{
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		ProfileURL:  req.ProfileURL,
		Password:    req.Password,
		NewPassword: req.NewPassword,
	})
	s.Metrics.observe("update_profile", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.audit(r, auth.AuditProfileUpdated, actor.ID, nil)
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor := accountFromContext(r.Context())
	err := s.Profiles.Delete(r.Context(), actor, chi.URLParam(r, "id"))
	s.Metrics.observe("delete_account", err)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	s.audit(r, auth.AuditAccountDeleted, actor.ID, nil)
	auth.ClearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "Account deactivated")
}
