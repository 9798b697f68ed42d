package server

import (
	"net/http"

	"github.com/samber/oops"

	"clientlance/internal/auth"
	"clientlance/internal/logging"
)

const (
	msgInternal   = "Internal server error"
	msgBadRequest = "Invalid request body"
)

func statusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindInvalidInput, auth.KindNotFound:
		return http.StatusBadRequest
	case auth.KindInvalidCredentials, auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindNotVerified, auth.KindForbidden:
		return http.StatusForbidden
	case auth.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeAuthError writes err's public message under the status of its kind.
// Internal errors are logged and replaced by a generic message.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.KindOf(err)
	if kind == auth.KindInternal {
		logging.LogError(r.Context(), s.Logger, "auth request failed", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeError(w, statusFor(kind), oops.GetPublic(err, msgInternal))
}
