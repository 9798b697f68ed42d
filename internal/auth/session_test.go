package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientlance/internal/auth"
)

func TestSignupVerifyLoginScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, token := h.signup(t, "alice", "Alice@Example.com", "s3cret")
	assert.Equal(t, "alice@example.com", res.Account.Email)
	assert.NotEmpty(t, res.ResendToken)

	stored, ok := h.store.Snapshot(res.Account.ID)
	require.True(t, ok)
	require.NotNil(t, stored.PasswordDigest)
	assert.NotEqual(t, "s3cret", *stored.PasswordDigest)
	require.NotNil(t, stored.VerificationTokenDigest)
	assert.NotEqual(t, token, *stored.VerificationTokenDigest)

	_, _, err := h.sessions.Login(ctx, auth.LoginInput{Email: "alice@example.com", Password: "s3cret"})
	require.Error(t, err)
	assert.Equal(t, auth.KindNotVerified, auth.KindOf(err))

	_, err = h.recovery.VerifyEmail(ctx, token)
	require.NoError(t, err)

	tokens, acct, err := h.sessions.Login(ctx, auth.LoginInput{Email: "ALICE@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, acct.ID)

	subject, err := h.signer.Verify(auth.PurposeAccess, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, subject)
	assert.WithinDuration(t, time.Now().Add(31*24*time.Hour), tokens.RefreshExpiresAt, 5*time.Second)
}

func TestLogin_Failures(t *testing.T) {
	h := newHarness(t)
	h.verifiedAccount(t, "alice", "alice@example.com", "s3cret")
	_, _, err := h.reconciler.Reconcile(context.Background(), auth.ExternalIdentity{Provider: "google", Email: "sso@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   auth.LoginInput
		kind auth.Kind
	}{
		{name: "missing email", in: auth.LoginInput{Password: "s3cret"}, kind: auth.KindInvalidInput},
		{name: "missing password", in: auth.LoginInput{Email: "alice@example.com"}, kind: auth.KindInvalidInput},
		{name: "unknown email", in: auth.LoginInput{Email: "bob@example.com", Password: "s3cret"}, kind: auth.KindInvalidCredentials},
		{name: "wrong password", in: auth.LoginInput{Email: "alice@example.com", Password: "nope"}, kind: auth.KindInvalidCredentials},
		{name: "external-only account", in: auth.LoginInput{Email: "sso@example.com", Password: "anything"}, kind: auth.KindInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.sessions.Login(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, auth.KindOf(err))
		})
	}
}

func TestRefresh(t *testing.T) {
	h := newHarness(t)
	acct := h.verifiedAccount(t, "alice", "alice@example.com", "s3cret")
	tokens, err := h.sessions.IssueFor(acct)
	require.NoError(t, err)

	access, _, err := h.sessions.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	subject, err := h.signer.Verify(auth.PurposeAccess, access)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, subject)

	expiredSigner, err := auth.NewJWTSigner("access-secret", "refresh-secret", "resend-secret")
	require.NoError(t, err)
	expired, _, err := expiredSigner.Issue(auth.PurposeRefresh, acct.ID, -time.Minute)
	require.NoError(t, err)

	rejected := map[string]string{
		"empty":             "",
		"tampered":          tokens.RefreshToken + "x",
		"expired":           expired,
		"access as refresh": tokens.AccessToken,
	}
	for name, token := range rejected {
		t.Run(name, func(t *testing.T) {
			_, _, err := h.sessions.Refresh(context.Background(), token)
			require.Error(t, err)
			assert.Equal(t, auth.KindForbidden, auth.KindOf(err))
		})
	}
}

func TestRefresh_DeletedAccount(t *testing.T) {
	h := newHarness(t)
	acct := h.verifiedAccount(t, "alice", "alice@example.com", "s3cret")
	tokens, err := h.sessions.IssueFor(acct)
	require.NoError(t, err)

	require.NoError(t, h.profiles.Delete(context.Background(), acct, acct.ID))

	_, _, err = h.sessions.Refresh(context.Background(), tokens.RefreshToken)
	assert.Equal(t, auth.KindForbidden, auth.KindOf(err))
}

func TestAuthenticate(t *testing.T) {
	h := newHarness(t)
	acct := h.verifiedAccount(t, "alice", "alice@example.com", "s3cret")
	tokens, err := h.sessions.IssueFor(acct)
	require.NoError(t, err)

	got, err := h.sessions.Authenticate(context.Background(), "Bearer "+tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	for name, header := range map[string]string{
		"missing":       "",
		"wrong scheme":  "Basic " + tokens.AccessToken,
		"lowercase":     "bearer " + tokens.AccessToken,
		"empty token":   "Bearer ",
		"refresh token": "Bearer " + tokens.RefreshToken,
		"garbage":       "Bearer garbage",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.sessions.Authenticate(context.Background(), header)
			require.Error(t, err)
			assert.Equal(t, auth.KindUnauthorized, auth.KindOf(err))
		})
	}
}
