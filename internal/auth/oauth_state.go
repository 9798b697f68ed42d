package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const OAuthStateTTL = 10 * time.Minute

// StateKV is the part of *redis.Client the OAuth state store uses.
type StateKV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// OAuthStateStore remembers which provider an authorization request was
// started for. Each state can be consumed once.
type OAuthStateStore struct {
	Redis StateKV
}

func (s *OAuthStateStore) key(state string) string {
	return "oauth_state:" + state
}

func (s *OAuthStateStore) Create(ctx context.Context, provider string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("OAUTH_STATE_FAILED").Wrap(err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	if err := s.Redis.Set(ctx, s.key(state), provider, OAuthStateTTL).Err(); err != nil {
		return "", oops.Code("OAUTH_STATE_FAILED").With("provider", provider).Wrap(err)
	}
	return state, nil
}

// Consume reports whether state was issued for provider, deleting it either way.
func (s *OAuthStateStore) Consume(ctx context.Context, state, provider string) (bool, error) {
	if state == "" {
		return false, nil
	}
	stored, err := s.Redis.GetDel(ctx, s.key(state)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, oops.Code("OAUTH_STATE_FAILED").With("provider", provider).Wrap(err)
	}
	return stored == provider, nil
}
