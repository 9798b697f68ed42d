package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"clientlance/internal/email"
	"clientlance/internal/i18n"
	"clientlance/internal/logging"
)

// RecoveryManager owns the mailed one-time token flows: signup
// verification, resend, password reset and email change.
type RecoveryManager struct {
	Store     AccountStore
	Hasher    PasswordHasher
	Signer    TokenSigner
	Tokens    OneTimeTokens
	Mailer    Mailer
	Links     Links
	ResendTTL time.Duration
	ResetTTL  time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

type SignupResult struct {
	Account         *Account
	ResendToken     string
	ResendExpiresAt time.Time
}

func (m *RecoveryManager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *RecoveryManager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *RecoveryManager) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	_, err := m.Store.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, publicError("AUTH_ACCOUNT_EXISTS", ErrConflict, MsgAccountExists)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, internalError("AUTH_SIGNUP_FAILED", "find_by_email", err)
	}

	passwordDigest, err := m.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	cleartext, digest, err := m.Tokens.Issue()
	if err != nil {
		return nil, internalError("AUTH_SIGNUP_FAILED", "issue_verification_token", err)
	}

	acct, err := m.Store.Create(ctx, NewAccount{
		Username:                in.Username,
		Email:                   in.Email,
		PasswordDigest:          &passwordDigest,
		VerificationTokenDigest: &digest,
		Roles:                   DefaultRoles,
	})
	if errors.Is(err, ErrConflict) {
		return nil, publicError("AUTH_ACCOUNT_EXISTS", ErrConflict, MsgAccountExists)
	}
	if err != nil {
		return nil, internalError("AUTH_SIGNUP_FAILED", "create", err)
	}

	content := i18n.VerificationEmail(i18n.LocaleFromContext(ctx), acct.Username, m.Links.verify(cleartext))
	m.Mailer.Dispatch(ctx, toMessage(acct.Email, content))

	resend, expiresAt, err := m.Signer.Issue(PurposeResend, acct.ID, m.ResendTTL)
	if err != nil {
		return nil, internalError("AUTH_SIGNUP_FAILED", "issue_resend_token", err)
	}
	return &SignupResult{Account: acct, ResendToken: resend, ResendExpiresAt: expiresAt}, nil
}

// ResendVerification mails a fresh verification link, replacing the
// outstanding one. A verified account with nothing pending is left alone.
func (m *RecoveryManager) ResendVerification(ctx context.Context, resendToken string) error {
	if resendToken == "" {
		return publicError("AUTH_RESEND_MISSING", ErrInvalidInput, MsgEmailNotSent)
	}
	subject, err := m.Signer.Verify(PurposeResend, resendToken)
	if err != nil {
		return rejected("AUTH_RESEND_REJECTED", ErrInvalidInput, MsgEmailNotSent, err)
	}

	acct, err := m.Store.FindByID(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return publicError("AUTH_RESEND_UNKNOWN_ACCOUNT", ErrInvalidInput, MsgEmailNotSent)
	}
	if err != nil {
		return internalError("AUTH_RESEND_FAILED", "find_by_id", err)
	}

	if acct.Verified && acct.PendingEmail == nil {
		return nil
	}

	cleartext, digest, err := m.Tokens.Issue()
	if err != nil {
		return internalError("AUTH_RESEND_FAILED", "issue_verification_token", err)
	}
	err = m.Store.SetVerificationToken(ctx, acct.ID, digest)
	if errors.Is(err, ErrNotFound) {
		return publicError("AUTH_RESEND_UNKNOWN_ACCOUNT", ErrInvalidInput, MsgEmailNotSent)
	}
	if err != nil {
		return internalError("AUTH_RESEND_FAILED", "set_verification_token", err)
	}

	m.Mailer.Dispatch(ctx, m.verificationMessage(ctx, acct, cleartext))
	return nil
}

func (m *RecoveryManager) verificationMessage(ctx context.Context, acct *Account, cleartext string) email.Message {
	locale := i18n.LocaleFromContext(ctx)
	link := m.Links.verify(cleartext)
	if acct.PendingEmail != nil {
		return toMessage(*acct.PendingEmail, i18n.EmailChangeEmail(locale, acct.Username, link))
	}
	return toMessage(acct.Email, i18n.VerificationEmail(locale, acct.Username, link))
}

// VerifyEmail consumes a verification token. It marks the account verified
// and promotes a pending email change.
func (m *RecoveryManager) VerifyEmail(ctx context.Context, cleartext string) (*Account, error) {
	if cleartext == "" {
		return nil, publicError("AUTH_VERIFY_UNKNOWN_TOKEN", ErrNotFound, MsgEmailNotVerifiable)
	}

	acct, err := m.Store.ConsumeVerificationToken(ctx, m.Tokens.Digest(cleartext))
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, publicError("AUTH_VERIFY_UNKNOWN_TOKEN", ErrNotFound, MsgEmailNotVerifiable)
	case errors.Is(err, ErrConflict):
		return nil, publicError("AUTH_VERIFY_EMAIL_TAKEN", ErrConflict, MsgDuplicateEmail)
	case err != nil:
		return nil, internalError("AUTH_VERIFY_FAILED", "consume_verification_token", err)
	}
	return acct, nil
}

// ForgotPassword mails a reset link. Unknown emails get the same result as
// known ones; the reset mail itself is sent before returning.
func (m *RecoveryManager) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	acct, err := m.Store.FindByEmail(ctx, in.Email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalError("AUTH_FORGOT_FAILED", "find_by_email", err)
	}

	locale := i18n.LocaleFromContext(ctx)
	if !acct.HasPassword() {
		m.Mailer.Dispatch(ctx, toMessage(acct.Email, i18n.ExternalSignInEmail(locale)))
		return nil
	}

	cleartext, digest, err := m.Tokens.Issue()
	if err != nil {
		return internalError("AUTH_FORGOT_FAILED", "issue_reset_token", err)
	}
	if err := m.Store.SetResetToken(ctx, acct.ID, digest, m.now().Add(m.ResetTTL)); err != nil {
		return internalError("AUTH_FORGOT_FAILED", "set_reset_token", err)
	}

	hours := int(m.ResetTTL / time.Hour)
	content := i18n.PasswordResetEmail(locale, acct.Username, m.Links.reset(cleartext), hours)
	if err := m.Mailer.Send(ctx, toMessage(acct.Email, content)); err != nil {
		err = oops.Code("AUTH_RESET_EMAIL_FAILED").
			Public(MsgEmailNotSent).
			With("account_id", acct.ID).
			Wrap(errors.Join(ErrInvalidInput, err))
		logging.LogError(ctx, m.logger(), "password reset email failed", err)
		return err
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password, returning
// the updated account. Expired, consumed and never-issued tokens are
// indistinguishable.
func (m *RecoveryManager) ResetPassword(ctx context.Context, cleartext string, in ResetPasswordInput) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if cleartext == "" {
		return nil, publicError("AUTH_RESET_UNKNOWN_TOKEN", ErrNotFound, MsgPasswordNotReset)
	}

	digest := m.Tokens.Digest(cleartext)
	now := m.now()

	_, err := m.Store.FindByResetToken(ctx, digest, now)
	if errors.Is(err, ErrNotFound) {
		return nil, publicError("AUTH_RESET_UNKNOWN_TOKEN", ErrNotFound, MsgPasswordNotReset)
	}
	if err != nil {
		return nil, internalError("AUTH_RESET_FAILED", "find_by_reset_token", err)
	}

	passwordDigest, err := m.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	acct, err := m.Store.ConsumeResetToken(ctx, digest, passwordDigest, now)
	if errors.Is(err, ErrNotFound) {
		return nil, publicError("AUTH_RESET_UNKNOWN_TOKEN", ErrNotFound, MsgPasswordNotReset)
	}
	if err != nil {
		return nil, internalError("AUTH_RESET_FAILED", "consume_reset_token", err)
	}
	return acct, nil
}

// stageEmailChange prepares the columns for moving acct to newEmail. The
// primary email is untouched until the returned token is verified. An
// empty token means there is nothing to stage.
func (m *RecoveryManager) stageEmailChange(ctx context.Context, acct *Account, newEmail string, changes *AccountChanges) (string, error) {
	if strings.EqualFold(newEmail, acct.Email) {
		return "", nil
	}

	other, err := m.Store.FindByEmail(ctx, newEmail)
	if err == nil && other.ID != acct.ID {
		return "", publicError("AUTH_DUPLICATE_EMAIL", ErrConflict, MsgDuplicateEmail)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", internalError("AUTH_EMAIL_CHANGE_FAILED", "find_by_email", err)
	}

	cleartext, digest, err := m.Tokens.Issue()
	if err != nil {
		return "", internalError("AUTH_EMAIL_CHANGE_FAILED", "issue_verification_token", err)
	}
	changes.PendingEmail = &newEmail
	changes.VerificationTokenDigest = &digest
	return cleartext, nil
}

// notifyEmailChange mails the confirmation link to the staged address.
func (m *RecoveryManager) notifyEmailChange(ctx context.Context, acct *Account, cleartext string) {
	if acct.PendingEmail == nil {
		return
	}
	content := i18n.EmailChangeEmail(i18n.LocaleFromContext(ctx), acct.Username, m.Links.verify(cleartext))
	m.Mailer.Dispatch(ctx, toMessage(*acct.PendingEmail, content))
}
