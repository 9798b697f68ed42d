package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Purpose selects the signing secret and audience of a token.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
	PurposeResend  Purpose = "resend"
)

// Verification failures. They are for logs only; callers outside this
// package collapse them into Unauthorized or Forbidden.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
)

// TokenSigner issues and verifies time-bound tokens bound to an account id.
type TokenSigner interface {
	Issue(purpose Purpose, subjectID string, ttl time.Duration) (string, time.Time, error)
	Verify(purpose Purpose, token string) (string, error)
}

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// JWTSigner signs HS256 tokens with one secret per purpose.
type JWTSigner struct {
	secrets map[Purpose][]byte
	now     func() time.Time
}

func NewJWTSigner(accessSecret, refreshSecret, resendSecret string) (*JWTSigner, error) {
	secrets := map[Purpose][]byte{
		PurposeAccess:  []byte(accessSecret),
		PurposeRefresh: []byte(refreshSecret),
		PurposeResend:  []byte(resendSecret),
	}
	for purpose, secret := range secrets {
		if len(secret) == 0 {
			return nil, oops.Code("AUTH_SIGNER_MISCONFIGURED").With("purpose", purpose).Errorf("missing %s token secret", purpose)
		}
	}
	return &JWTSigner{secrets: secrets, now: time.Now}, nil
}

func (s *JWTSigner) Issue(purpose Purpose, subjectID string, ttl time.Duration) (string, time.Time, error) {
	secret, ok := s.secrets[purpose]
	if !ok {
		return "", time.Time{}, oops.Code("AUTH_SIGNER_MISCONFIGURED").With("purpose", purpose).Errorf("unknown token purpose")
	}
	if subjectID == "" {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("subject id is required")
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Audience:  jwt.ClaimStrings{string(purpose)},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: subjectID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").With("purpose", purpose).Wrap(err)
	}
	return signed, expiresAt, nil
}

func (s *JWTSigner) Verify(purpose Purpose, token string) (string, error) {
	secret, ok := s.secrets[purpose]
	if !ok {
		return "", oops.Code("AUTH_SIGNER_MISCONFIGURED").With("purpose", purpose).Errorf("unknown token purpose")
	}
	if token == "" {
		return "", ErrTokenMalformed
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(purpose)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", ErrTokenSignature
	default:
		return "", ErrTokenMalformed
	}

	if !parsed.Valid || claims.UserID == "" || claims.UserID != claims.Subject {
		return "", ErrTokenMalformed
	}
	return claims.UserID, nil
}
