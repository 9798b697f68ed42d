package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

const (
	MinAccessTokenTTL = 15 * time.Minute
	MaxAccessTokenTTL = 35 * time.Minute
	RefreshTokenTTL   = 31 * 24 * time.Hour
	ResendTokenTTL    = 15 * time.Minute
	ResetTokenTTL     = 24 * time.Hour
)

// Config is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	Port           string
	BaseURL        string
	DatabaseURL    string
	RedisURL       string
	LogFile        string
	LogFormat      string
	LogLevel       string
	TrustedProxies []string

	Tokens    TokenConfig
	Links     LinkConfig
	Email     EmailConfig
	OAuth     OAuthConfig
	RateLimit RateLimitConfig
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	ResendSecret  string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResendTTL     time.Duration
	ResetTTL      time.Duration
}

// LinkConfig holds the frontend pages that receive one-time tokens as a trailing path segment.
type LinkConfig struct {
	VerifyEmailURL   string
	ResetPasswordURL string
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type OAuthConfig struct {
	Google             OAuthProvider
	SuccessRedirectURL string
	FailureRedirectURL string
}

type RateLimitConfig struct {
	Attempts int64
	Window   time.Duration
}

func Load() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	rawPort := clean(getenvDefault("EMAIL_SERVER_PORT", "587"))
	emailPort, err := strconv.Atoi(rawPort)
	if err != nil {
		emailPort = 587
	}

	cfg := Config{
		Port:           getenvDefault("PORT", "8080"),
		BaseURL:        strings.TrimRight(firstNonEmpty(os.Getenv("BASE_URL"), "http://localhost:8080"), "/"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getenvDefault("REDIS_URL", "redis://localhost:6379"),
		LogFile:        os.Getenv("LOG_FILE"),
		LogFormat:      getenvDefault("LOG_FORMAT", "text"),
		LogLevel:       getenvDefault("LOG_LEVEL", "info"),
		TrustedProxies: parseList(os.Getenv("TRUSTED_PROXIES")),
	}

	cfg.Tokens = TokenConfig{
		AccessSecret:  clean(os.Getenv("ACCESS_TOKEN_SECRET")),
		RefreshSecret: clean(os.Getenv("REFRESH_TOKEN_SECRET")),
		ResendSecret:  clean(os.Getenv("RESEND_EMAIL_TOKEN_SECRET")),
		AccessTTL:     MinAccessTokenTTL,
		RefreshTTL:    RefreshTokenTTL,
		ResendTTL:     ResendTokenTTL,
		ResetTTL:      ResetTokenTTL,
	}
	if raw := os.Getenv("ACCESS_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(clean(raw))
		if err != nil {
			return Config{}, oops.Code("CONFIG_INVALID").With("key", "ACCESS_TOKEN_TTL").Wrap(err)
		}
		cfg.Tokens.AccessTTL = ttl
	}

	cfg.Links = LinkConfig{
		VerifyEmailURL:   strings.TrimRight(getenvDefault("VERIFY_EMAIL_URL", cfg.BaseURL+"/verify"), "/"),
		ResetPasswordURL: strings.TrimRight(getenvDefault("RESET_PWD_URL", cfg.BaseURL+"/reset"), "/"),
	}

	cfg.Email = EmailConfig{
		Host:     clean(os.Getenv("EMAIL_SERVER_HOST")),
		Port:     emailPort,
		Username: clean(os.Getenv("EMAIL_SERVER_USER")),
		Password: clean(os.Getenv("EMAIL_SERVER_PASSWORD")),
		From:     clean(os.Getenv("EMAIL_FROM")),
		Secure:   parseBool(os.Getenv("EMAIL_SERVER_SECURE")),
	}

	cfg.OAuth = OAuthConfig{
		Google: OAuthProvider{
			ClientID:     clean(os.Getenv("GOOGLE_CLIENT_ID")),
			ClientSecret: clean(os.Getenv("GOOGLE_CLIENT_SECRET")),
			RedirectURL:  getenvDefault("GOOGLE_CALLBACK_URL", cfg.BaseURL+"/auth/sso/google/callback"),
		},
		SuccessRedirectURL: getenvDefault("OAUTH_SUCCESS_REDIRECT_URL", cfg.BaseURL),
		FailureRedirectURL: getenvDefault("OAUTH_FAILURE_REDIRECT_URL", cfg.BaseURL+"/login"),
	}

	cfg.RateLimit = RateLimitConfig{
		Attempts: parseInt64(os.Getenv("RATE_LIMIT_ATTEMPTS"), 5),
		Window:   parseDuration(os.Getenv("RATE_LIMIT_WINDOW"), 60*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"DATABASE_URL", c.DatabaseURL},
		{"ACCESS_TOKEN_SECRET", c.Tokens.AccessSecret},
		{"REFRESH_TOKEN_SECRET", c.Tokens.RefreshSecret},
		{"RESEND_EMAIL_TOKEN_SECRET", c.Tokens.ResendSecret},
		{"GOOGLE_CLIENT_ID", c.OAuth.Google.ClientID},
		{"GOOGLE_CLIENT_SECRET", c.OAuth.Google.ClientSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return oops.Code("CONFIG_MISSING").With("key", r.key).Errorf("%s is required", r.key)
		}
	}

	t := c.Tokens
	if t.AccessSecret == t.RefreshSecret || t.AccessSecret == t.ResendSecret || t.RefreshSecret == t.ResendSecret {
		return oops.Code("CONFIG_INVALID").Errorf("access, refresh and resend token secrets must be distinct")
	}
	if t.AccessTTL < MinAccessTokenTTL || t.AccessTTL > MaxAccessTokenTTL {
		return oops.Code("CONFIG_INVALID").
			With("key", "ACCESS_TOKEN_TTL").
			Errorf("ACCESS_TOKEN_TTL must be between %s and %s", MinAccessTokenTTL, MaxAccessTokenTTL)
	}
	if c.RateLimit.Attempts <= 0 || c.RateLimit.Window <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("rate limit attempts and window must be positive")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(val string) bool {
	if val == "" {
		return false
	}
	val = strings.ToLower(strings.Trim(val, "\"' "))
	return val == "1" || val == "true" || val == "yes"
}

func parseInt64(val string, def int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return def
	}
	return n
}

func parseDuration(val string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return def
	}
	return d
}

func parseList(val string) []string {
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
