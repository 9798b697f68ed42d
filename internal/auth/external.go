package auth

import (
	"context"
	"errors"
	"strings"
)

// ExternalIdentity is an email asserted by a third-party identity provider.
type ExternalIdentity struct {
	Provider    string
	Email       string
	DisplayName string
}

// Reconciler maps external sign-ins onto local accounts.
type Reconciler struct {
	Store    AccountStore
	Sessions *SessionManager
}

// Reconcile signs in the account owning identity.Email, creating a verified
// password-less account when none exists. An unverified local registration
// is never taken over by an external assertion.
func (r *Reconciler) Reconcile(ctx context.Context, identity ExternalIdentity) (*Tokens, *Account, error) {
	addr := normalizeEmail(identity.Email)
	if addr == "" {
		return nil, nil, publicError("AUTH_EXTERNAL_EMAIL_MISSING", ErrInvalidInput, MsgEmailRequired)
	}

	acct, err := r.Store.FindByEmail(ctx, addr)
	switch {
	case errors.Is(err, ErrNotFound):
		acct, err = r.Store.Create(ctx, NewAccount{
			Username: externalUsername(identity.DisplayName, addr),
			Email:    addr,
			Verified: true,
			Roles:    DefaultRoles,
		})
		if errors.Is(err, ErrConflict) {
			return nil, nil, publicError("AUTH_ACCOUNT_EXISTS", ErrConflict, MsgAccountExists)
		}
		if err != nil {
			return nil, nil, internalError("AUTH_EXTERNAL_FAILED", "create", err)
		}
	case err != nil:
		return nil, nil, internalError("AUTH_EXTERNAL_FAILED", "find_by_email", err)
	case !acct.Verified:
		return nil, acct, publicError("AUTH_EXTERNAL_UNVERIFIED", ErrForbidden, MsgExternalSignIn)
	}

	tokens, err := r.Sessions.IssueFor(acct)
	if err != nil {
		return nil, acct, err
	}
	return tokens, acct, nil
}

func externalUsername(displayName, addr string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(addr, "@")
	return local
}
