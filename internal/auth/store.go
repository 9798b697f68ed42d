package auth

import (
	"context"
	"time"
)

// AccountStore persists accounts. Token consumption is a single conditional
// statement so concurrent callers cannot both succeed.
//
// Lookups that match nothing return ErrNotFound. Writes that would break
// email uniqueness return ErrConflict.
type AccountStore interface {
	Create(ctx context.Context, acct NewAccount) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// SetVerificationToken replaces any outstanding verification digest.
	SetVerificationToken(ctx context.Context, id, digest string) error
	// ConsumeVerificationToken marks the matching account verified, clears
	// the digest and promotes a pending email.
	ConsumeVerificationToken(ctx context.Context, digest string) (*Account, error)

	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, digest string, now time.Time) (*Account, error)
	// ConsumeResetToken sets the password and clears the reset fields only
	// while the digest still matches and has not expired.
	ConsumeResetToken(ctx context.Context, digest, passwordDigest string, now time.Time) (*Account, error)

	UpdateAccount(ctx context.Context, id string, changes AccountChanges) (*Account, error)
	Delete(ctx context.Context, id string) error
}
