package auth

import (
	"net/http"
	"time"
)

const (
	RefreshCookieName = "jwt"
	ResendCookieName  = "resend"
)

func SetRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  expires,
		MaxAge:   maxAge(expires),
	})
}

func ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// SetResendCookie is readable from script so the client can offer a
// resend button right after signup.
func SetResendCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     ResendCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  expires,
		MaxAge:   maxAge(expires),
	})
}

func maxAge(expires time.Time) int {
	secs := int(time.Until(expires).Round(time.Second) / time.Second)
	if secs < 1 {
		return -1
	}
	return secs
}
