package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Tokens is the result of a successful sign-in.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionManager signs accounts in and gates requests. Sessions are not
// stored: a valid refresh token is the session.
type SessionManager struct {
	Store      AccountStore
	Hasher     PasswordHasher
	Signer     TokenSigner
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (m *SessionManager) Login(ctx context.Context, in LoginInput) (*Tokens, *Account, error) {
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	acct, err := m.Store.FindByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		m.Hasher.Compare(dummyPasswordHash, in.Password)
		return nil, nil, publicError("AUTH_WRONG_CREDENTIALS", ErrInvalidCredentials, MsgWrongCredentials)
	}
	if err != nil {
		return nil, nil, internalError("AUTH_LOGIN_FAILED", "login", err)
	}

	if !acct.Verified {
		return nil, acct, publicError("AUTH_NOT_VERIFIED", ErrNotVerified, MsgNotVerified)
	}

	if !acct.HasPassword() {
		m.Hasher.Compare(dummyPasswordHash, in.Password)
		return nil, acct, publicError("AUTH_WRONG_CREDENTIALS", ErrInvalidCredentials, MsgWrongCredentials)
	}
	if !m.Hasher.Compare(*acct.PasswordDigest, in.Password) {
		return nil, acct, publicError("AUTH_WRONG_CREDENTIALS", ErrInvalidCredentials, MsgWrongCredentials)
	}

	tokens, err := m.IssueFor(acct)
	if err != nil {
		return nil, acct, err
	}
	return tokens, acct, nil
}

// IssueFor signs a fresh access and refresh pair for acct.
func (m *SessionManager) IssueFor(acct *Account) (*Tokens, error) {
	access, accessExp, err := m.Signer.Issue(PurposeAccess, acct.ID, m.AccessTTL)
	if err != nil {
		return nil, internalError("AUTH_TOKEN_ISSUE_FAILED", "issue_access", err)
	}
	refresh, refreshExp, err := m.Signer.Issue(PurposeRefresh, acct.ID, m.RefreshTTL)
	if err != nil {
		return nil, internalError("AUTH_TOKEN_ISSUE_FAILED", "issue_refresh", err)
	}
	return &Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken == "" {
		return "", time.Time{}, publicError("AUTH_REFRESH_MISSING", ErrForbidden, MsgForbidden)
	}

	subject, err := m.Signer.Verify(PurposeRefresh, refreshToken)
	if err != nil {
		return "", time.Time{}, rejected("AUTH_REFRESH_REJECTED", ErrForbidden, MsgForbidden, err)
	}

	acct, err := m.Store.FindByID(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return "", time.Time{}, publicError("AUTH_REFRESH_UNKNOWN_ACCOUNT", ErrForbidden, MsgForbidden)
	}
	if err != nil {
		return "", time.Time{}, internalError("AUTH_REFRESH_FAILED", "refresh", err)
	}

	access, expiresAt, err := m.Signer.Issue(PurposeAccess, acct.ID, m.AccessTTL)
	if err != nil {
		return "", time.Time{}, internalError("AUTH_TOKEN_ISSUE_FAILED", "issue_access", err)
	}
	return access, expiresAt, nil
}

const bearerPrefix = "Bearer "

// Authenticate resolves the account behind an Authorization header value.
// Every client-side failure is Unauthorized.
func (m *SessionManager) Authenticate(ctx context.Context, header string) (*Account, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, publicError("AUTH_BEARER_MISSING", ErrUnauthorized, MsgUnauthorized)
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return nil, publicError("AUTH_BEARER_MISSING", ErrUnauthorized, MsgUnauthorized)
	}

	subject, err := m.Signer.Verify(PurposeAccess, token)
	if err != nil {
		return nil, rejected("AUTH_ACCESS_REJECTED", ErrUnauthorized, MsgUnauthorized, err)
	}

	acct, err := m.Store.FindByID(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return nil, publicError("AUTH_ACCESS_UNKNOWN_ACCOUNT", ErrUnauthorized, MsgUnauthorized)
	}
	if err != nil {
		return nil, internalError("AUTH_AUTHENTICATE_FAILED", "authenticate", err)
	}
	return acct, nil
}

// rejected keeps the token verification reason in the error context for
// logs while the client only sees msg.
func rejected(code string, sentinel error, msg string, reason error) error {
	return oops.Code(code).Public(msg).With("reason", reason.Error()).Wrap(sentinel)
}
