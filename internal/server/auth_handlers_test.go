package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientlance/internal/auth"
	"clientlance/internal/auth/authtest"
)

func TestSignupVerifyLoginFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, request{method: http.MethodPost, path: "/users/register", body: map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "s3cret-pass",
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Registered successfully", decodeBody(t, rec)["message"])

	resend := cookieNamed(rec, auth.ResendCookieName)
	require.NotNil(t, resend)
	assert.False(t, resend.HttpOnly)

	rec = ts.do(t, request{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": "alice@example.com", "password": "s3cret-pass",
	}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.MsgNotVerified, decodeBody(t, rec)["message"])

	msg, ok := ts.mailer.Last("alice@example.com")
	require.True(t, ok)
	rec = ts.do(t, request{method: http.MethodPost, path: "/auth/verify/" + authtest.TokenFrom(msg)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified", decodeBody(t, rec)["message"])

	access, refresh := ts.login(t, "alice@example.com", "s3cret-pass")
	require.NotEmpty(t, access)
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.True(t, refresh.Secure)
	assert.Equal(t, http.SameSiteNoneMode, refresh.SameSite)
	assert.Equal(t, "/", refresh.Path)

	claims := &auth.Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(access, claims)
	require.NoError(t, err)
	acct, err := ts.store.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, claims.UserID)

	events := ts.redis.events("audit:" + acct.ID)
	require.NotEmpty(t, events)
	assert.Equal(t, auth.AuditLogin, events[len(events)-1].EventType)
	assert.Equal(t, "192.0.2.10", events[len(events)-1].IP)
}

func TestVerifyEmailReplay(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, request{method: http.MethodPost, path: "/users/register", body: map[string]string{
		"username": "bob", "email": "bob@example.com", "password": "hunter22",
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	msg, _ := ts.mailer.Last("bob@example.com")
	token := authtest.TokenFrom(msg)

	require.Equal(t, http.StatusOK, ts.do(t, request{method: http.MethodPost, path: "/auth/verify/" + token}).Code)

	rec = ts.do(t, request{method: http.MethodPost, path: "/auth/verify/" + token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.MsgEmailNotVerifiable, decodeBody(t, rec)["message"])
}

func TestRegisterDuplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "carol", "carol@example.com", "pw-carol")

	rec := ts.do(t, request{method: http.MethodPost, path: "/users/register", body: map[string]string{
		"username": "carol2", "email": "Carol@Example.com", "password": "other",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, auth.MsgAccountExists, decodeBody(t, rec)["message"])
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "dave", "dave@example.com", "right-password")

	tests := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{name: "missing fields", body: map[string]string{"email": "dave@example.com"}, status: http.StatusBadRequest, msg: auth.MsgFieldsRequired},
		{name: "wrong password", body: map[string]string{"email": "dave@example.com", "password": "nope"}, status: http.StatusUnauthorized, msg: auth.MsgWrongCredentials},
		{name: "unknown email", body: map[string]string{"email": "nobody@example.com", "password": "nope"}, status: http.StatusUnauthorized, msg: auth.MsgWrongCredentials},
		{name: "unknown field", body: map[string]string{"email": "dave@example.com", "password": "x", "role": "admin"}, status: http.StatusBadRequest, msg: msgBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.redis.counters = map[string]int64{}
			rec := ts.do(t, request{method: http.MethodPost, path: "/auth/login", body: tt.body})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decodeBody(t, rec)["message"])
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"email": "eve@example.com", "password": "guess"}

	for i := 0; i < 3; i++ {
		rec := ts.do(t, request{method: http.MethodPost, path: "/auth/login", body: body})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := ts.do(t, request{method: http.MethodPost, path: "/auth/login", body: body})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.EqualValues(t, 60, decodeBody(t, rec)["cooldown"])
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.Metrics.RateLimited.WithLabelValues("login")))
}

func TestRateLimiterOutageIsInternal(t *testing.T) {
	ts := newTestServer(t)
	ts.redis.incrErr = assert.AnError

	rec := ts.do(t, request{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "a@example.com", "password": "x"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternal, decodeBody(t, rec)["message"])
}

func TestRefresh(t *testing.T) {
	ts := newTestServer(t)
	id := ts.register(t, "frank", "frank@example.com", "pw-frank")
	_, refresh := ts.login(t, "frank@example.com", "pw-frank")

	rec := ts.do(t, request{method: http.MethodGet, path: "/auth/refresh", cookies: []*http.Cookie{refresh}})
	require.Equal(t, http.StatusOK, rec.Code)
	access, _ := decodeBody(t, rec)["accessToken"].(string)
	claims := &auth.Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(access, claims)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Subject)

	t.Run("missing cookie", func(t *testing.T) {
		rec := ts.do(t, request{method: http.MethodGet, path: "/auth/refresh"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
	t.Run("tampered cookie", func(t *testing.T) {
		bad := &http.Cookie{Name: auth.RefreshCookieName, Value: refresh.Value + "x"}
		rec := ts.do(t, request{method: http.MethodGet, path: "/auth/refresh", cookies: []*http.Cookie{bad}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, auth.MsgForbidden, decodeBody(t, rec)["message"])
	})
}

func TestLogoutClearsCookie(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, request{method: http.MethodPost, path: "/auth/logout"})
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieNamed(rec, auth.RefreshCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestForgotPasswordResponseShape(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "grace", "grace@example.com", "pw-grace")

	known := ts.do(t, request{method: http.MethodPost, path: "/auth/forgot", body: map[string]string{"email": "grace@example.com"}})
	unknown := ts.do(t, request{method: http.MethodPost, path: "/auth/forgot", body: map[string]string{"email": "nobody@example.com"}})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	empty := ts.do(t, request{method: http.MethodPost, path: "/auth/forgot", body: map[string]string{"email": ""}})
	assert.Equal(t, http.StatusBadRequest, empty.Code)
	assert.Equal(t, auth.MsgEmailRequired, decodeBody(t, empty)["message"])
}

func TestResetPasswordEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "heidi", "heidi@example.com", "old-password")

	require.Equal(t, http.StatusOK, ts.do(t, request{method: http.MethodPost, path: "/auth/forgot", body: map[string]string{"email": "heidi@example.com"}}).Code)
	msg, ok := ts.mailer.Last("heidi@example.com")
	require.True(t, ok)
	token := authtest.TokenFrom(msg)
	require.NotEmpty(t, token)

	rec := ts.do(t, request{method: http.MethodPost, path: "/auth/reset/" + token, body: map[string]string{"password": "new-password"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successfully. Please log in", decodeBody(t, rec)["message"])

	rec = ts.do(t, request{method: http.MethodPost, path: "/auth/reset/" + token, body: map[string]string{"password": "another"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.MsgPasswordNotReset, decodeBody(t, rec)["message"])

	access, _ := ts.login(t, "heidi@example.com", "new-password")
	assert.NotEmpty(t, access)

	acct, err := ts.store.FindByEmail(context.Background(), "heidi@example.com")
	require.NoError(t, err)
	var resets int
	for _, e := range ts.redis.events("audit:" + acct.ID) {
		if e.EventType == auth.AuditPasswordReset {
			resets++
		}
	}
	assert.Equal(t, 1, resets)
	assert.Empty(t, ts.redis.events("audit"))
}

func TestForgotPasswordMailFailureIsLogged(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "ivan", "ivan@example.com", "pw-ivan")
	ts.mailer.SendErr = errors.New("smtp: 421 relay down")

	rec := ts.do(t, request{method: http.MethodPost, path: "/auth/forgot", body: map[string]string{"email": "ivan@example.com"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.MsgEmailNotSent, decodeBody(t, rec)["message"])

	logs := ts.logs.String()
	assert.Contains(t, logs, "password reset email failed")
	assert.Contains(t, logs, "421 relay down")
	assert.Contains(t, logs, "AUTH_RESET_EMAIL_FAILED")
}

func TestResendEmail(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, request{method: http.MethodPost, path: "/users/register", body: map[string]string{
		"username": "ivan", "email": "ivan@example.com", "password": "pw-ivan",
	}})
	require.Equal(t, http.StatusCreated, rec.Code)
	resend := cookieNamed(rec, auth.ResendCookieName)
	require.NotNil(t, resend)
	before := len(ts.mailer.Messages())

	rec = ts.do(t, request{method: http.MethodPost, path: "/users/resend/email", cookies: []*http.Cookie{resend}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email sent", decodeBody(t, rec)["message"])
	assert.Len(t, ts.mailer.Messages(), before+1)

	rec = ts.do(t, request{method: http.MethodPost, path: "/users/resend/email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, auth.MsgEmailNotSent, decodeBody(t, rec)["message"])
}

func TestLocalizedVerificationMail(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, request{
		method: http.MethodPost,
		path:   "/users/register",
		body:   map[string]string{"username": "judy", "email": "judy@example.com", "password": "pw-judy"},
		header: map[string]string{"Accept-Language": "de-DE,de;q=0.9"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	en := newTestServer(t)
	en.do(t, request{method: http.MethodPost, path: "/users/register", body: map[string]string{
		"username": "judy", "email": "judy@example.com", "password": "pw-judy",
	}})

	de, ok := ts.mailer.Last("judy@example.com")
	require.True(t, ok)
	def, ok := en.mailer.Last("judy@example.com")
	require.True(t, ok)
	assert.NotEqual(t, def.Subject, de.Subject)
}

func TestOperationMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, request{method: http.MethodPost, path: "/auth/login", body: map[string]string{"email": "x@example.com", "password": "x"}})

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.Metrics.AuthResults.WithLabelValues("login", string(auth.KindInvalidCredentials))))

	rec := ts.do(t, request{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "clientlance_auth_operations_total")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, request{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

