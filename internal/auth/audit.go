package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const (
	AuditLogin           = "login"
	AuditLoginFailed     = "login_failed"
	AuditSignup          = "signup"
	AuditEmailVerified   = "email_verified"
	AuditPasswordReset   = "password_reset"
	AuditExternalSignIn  = "external_sign_in"
	AuditProfileUpdated  = "profile_updated"
	AuditAccountDeleted  = "account_deleted"
	defaultAuditCapacity = 200
)

type AuditEvent struct {
	EventType string         `json:"eventType"`
	AccountID string         `json:"accountId,omitempty"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"userAgent"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// AuditList is the part of *redis.Client the audit trail uses.
type AuditList interface {
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// AuditLogger appends auth events to a capped Redis list per account.
type AuditLogger struct {
	Redis  AuditList
	MaxLen int64
}

func (a *AuditLogger) Log(ctx context.Context, e AuditEvent) error {
	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return oops.Code("AUDIT_ENCODE_FAILED").Wrap(err)
	}

	key := "audit"
	if e.AccountID != "" {
		key = "audit:" + e.AccountID
	}

	if err := a.Redis.RPush(ctx, key, data).Err(); err != nil {
		return oops.Code("AUDIT_WRITE_FAILED").With("event", e.EventType).Wrap(err)
	}
	maxLen := a.MaxLen
	if maxLen <= 0 {
		maxLen = defaultAuditCapacity
	}
	if err := a.Redis.LTrim(ctx, key, -maxLen, -1).Err(); err != nil {
		return oops.Code("AUDIT_WRITE_FAILED").With("event", e.EventType).Wrap(err)
	}
	return nil
}
