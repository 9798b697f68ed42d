package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clientlance/internal/auth"
	"clientlance/internal/auth/authtest"
)

type harness struct {
	store      *authtest.MemoryStore
	mailer     *authtest.Mailer
	signer     *auth.JWTSigner
	sessions   *auth.SessionManager
	recovery   *auth.RecoveryManager
	reconciler *auth.Reconciler
	profiles   *auth.ProfileManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	signer, err := auth.NewJWTSigner("access-secret", "refresh-secret", "resend-secret")
	require.NoError(t, err)

	store := authtest.NewMemoryStore()
	mailer := &authtest.Mailer{}
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}

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
	}
	return &harness{
		store:      store,
		mailer:     mailer,
		signer:     signer,
		sessions:   sessions,
		recovery:   recovery,
		reconciler: &auth.Reconciler{Store: store, Sessions: sessions},
		profiles:   &auth.ProfileManager{Store: store, Hasher: hasher, Recovery: recovery},
	}
}

// signup registers an account and returns it with its mailed verification token.
func (h *harness) signup(t *testing.T, username, addr, password string) (*auth.SignupResult, string) {
	t.Helper()
	res, err := h.recovery.Signup(context.Background(), auth.SignupInput{Username: username, Email: addr, Password: password})
	require.NoError(t, err)
	msg, ok := h.mailer.Last(res.Account.Email)
	require.True(t, ok, "verification email not dispatched")
	token := authtest.TokenFrom(msg)
	require.NotEmpty(t, token)
	return res, token
}

// verifiedAccount registers and verifies an account.
func (h *harness) verifiedAccount(t *testing.T, username, addr, password string) *auth.Account {
	t.Helper()
	_, token := h.signup(t, username, addr, password)
	acct, err := h.recovery.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	return acct
}
