package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clientlance/internal/auth"
	"clientlance/internal/auth/authtest"
	"clientlance/internal/config"
	"clientlance/internal/logging"
	"clientlance/internal/sso"
)

// memoryRedis implements the commands the rate limiter, OAuth state store
// and audit trail issue.
type memoryRedis struct {
	mu       sync.Mutex
	counters map[string]int64
	ttls     map[string]time.Duration
	values   map[string]string
	lists    map[string][]string
	incrErr  error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{
		counters: map[string]int64{},
		ttls:     map[string]time.Duration{},
		values:   map[string]string{},
		lists:    map[string][]string{},
	}
}

func (m *memoryRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return redis.NewIntResult(0, m.incrErr)
	}
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *memoryRedis) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *memoryRedis) TTL(_ context.Context, key string) *redis.DurationCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl, ok := m.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) GetDel(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(m.values, key)
	return redis.NewStringResult(v, nil)
}

func (m *memoryRedis) RPush(_ context.Context, key string, values ...any) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.lists[key] = append(m.lists[key], string(v.([]byte)))
	}
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *memoryRedis) LTrim(_ context.Context, key string, start, _ int64) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	if start < 0 && int64(len(list)) > -start {
		m.lists[key] = list[int64(len(list))+start:]
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) events(key string) []auth.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.AuditEvent
	for _, raw := range m.lists[key] {
		var e auth.AuditEvent
		if json.Unmarshal([]byte(raw), &e) == nil {
			out = append(out, e)
		}
	}
	return out
}

type stubProvider struct {
	identity *auth.ExternalIdentity
	err      error
	codes    []string
}

func (p *stubProvider) Name() string { return "google" }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (p *stubProvider) Exchange(_ context.Context, code string) (*auth.ExternalIdentity, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return nil, p.err
	}
	return p.identity, nil
}

// logBuffer collects log output written by handlers and managers.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testServer struct {
	*Server
	store    *authtest.MemoryStore
	mailer   *authtest.Mailer
	redis    *memoryRedis
	provider *stubProvider
	logs     *logBuffer
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	signer, err := auth.NewJWTSigner("access-secret", "refresh-secret", "resend-secret")
	require.NoError(t, err)

	cfg := config.Config{
		OAuth: config.OAuthConfig{
			SuccessRedirectURL: "https://app.example.com/sso/done",
			FailureRedirectURL: "https://app.example.com/login",
		},
		RateLimit: config.RateLimitConfig{Attempts: 3, Window: time.Minute},
	}

	store := authtest.NewMemoryStore()
	mailer := &authtest.Mailer{}
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	rdb := newMemoryRedis()
	provider := &stubProvider{}
	logs := &logBuffer{}
	logger := logging.Setup("clientlance", "text", "info", logs)

	sessions := &auth.SessionManager{
		Store:      store,
		Hasher:     hasher,
		Signer:     signer,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 31 * 24 * time.Hour,
	}
	recovery := &auth.RecoveryManager{
		Store:     store,
		Hasher:    hasher,
		Signer:    signer,
		Tokens:    auth.RandomTokenIssuer{},
		Mailer:    mailer,
		Links:     auth.Links{VerifyEmailURL: "https://app.example.com/verify", ResetPasswordURL: "https://app.example.com/reset"},
		ResendTTL: 15 * time.Minute,
		ResetTTL:  24 * time.Hour,
		Logger:    logger,
	}

	srv := NewServer(cfg, Deps{
		Sessions:    sessions,
		Recovery:    recovery,
		Reconciler:  &auth.Reconciler{Store: store, Sessions: sessions},
		Profiles:    &auth.ProfileManager{Store: store, Hasher: hasher, Recovery: recovery},
		RateLimiter: &auth.RateLimiter{Redis: rdb, Attempts: cfg.RateLimit.Attempts, Window: cfg.RateLimit.Window},
		OAuthStates: &auth.OAuthStateStore{Redis: rdb},
		Audit:       &auth.AuditLogger{Redis: rdb},
		Providers:   []sso.Provider{provider},
		Logger:      logger,
	})

	return &testServer{
		Server:   srv,
		store:    store,
		mailer:   mailer,
		redis:    rdb,
		provider: provider,
		logs:     logs,
		handler:  srv.Router(),
	}
}

type request struct {
	method  string
	path    string
	body    any
	bearer  string
	cookies []*http.Cookie
	header  map[string]string
}

func (ts *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	}
	r := httptest.NewRequest(req.method, req.path, body)
	r.RemoteAddr = "192.0.2.10:54321"
	if req.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, r)
	return rec
}

// register signs up and verifies an account, returning its id.
func (ts *testServer) register(t *testing.T, username, addr, password string) string {
	t.Helper()

	rec := ts.do(t, request{method: http.MethodPost, path: "/users/register", body: map[string]string{
		"username": username, "email": addr, "password": password,
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	msg, ok := ts.mailer.Last(addr)
	require.True(t, ok)
	token := authtest.TokenFrom(msg)
	require.NotEmpty(t, token)

	rec = ts.do(t, request{method: http.MethodPost, path: "/auth/verify/" + token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	acct, err := ts.store.FindByEmail(context.Background(), addr)
	require.NoError(t, err)
	return acct.ID
}

// login returns the access token and the refresh cookie.
func (ts *testServer) login(t *testing.T, addr, password string) (string, *http.Cookie) {
	t.Helper()

	rec := ts.do(t, request{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email": addr, "password": password,
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["accessToken"], cookieNamed(rec, auth.RefreshCookieName)
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
