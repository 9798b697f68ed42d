// Package authtest provides in-memory collaborators for exercising the
// auth managers without Postgres or SMTP.
package authtest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clientlance/internal/auth"
)

// MemoryStore is an AccountStore with the same conditional-update
// semantics as the Postgres repository.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]*auth.Account{}, now: time.Now}
}

var _ auth.AccountStore = (*MemoryStore)(nil)

func clone(a *auth.Account) *auth.Account {
	c := *a
	c.Roles = slices.Clone(a.Roles)
	return &c
}

func ptr[T any](v T) *T {
	return &v
}

// emailTakenLocked reports whether another account already uses email.
func (s *MemoryStore) emailTakenLocked(email, exceptID string) bool {
	for id, a := range s.accounts {
		if id != exceptID && strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Create(_ context.Context, acct auth.NewAccount) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTakenLocked(acct.Email, "") {
		return nil, auth.ErrConflict
	}
	roles := acct.Roles
	if len(roles) == 0 {
		roles = auth.DefaultRoles
	}
	now := s.now()
	a := &auth.Account{
		ID:                      uuid.NewString(),
		Username:                acct.Username,
		Email:                   acct.Email,
		PasswordDigest:          acct.PasswordDigest,
		Verified:                acct.Verified,
		VerificationTokenDigest: acct.VerificationTokenDigest,
		Roles:                   slices.Clone(roles),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	s.accounts[a.ID] = a
	return clone(a), nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return clone(a), nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return clone(a), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *MemoryStore) SetVerificationToken(_ context.Context, id, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	a.VerificationTokenDigest = ptr(digest)
	a.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ConsumeVerificationToken(_ context.Context, digest string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.VerificationTokenDigest == nil || *a.VerificationTokenDigest != digest {
			continue
		}
		if a.PendingEmail != nil {
			if s.emailTakenLocked(*a.PendingEmail, a.ID) {
				return nil, auth.ErrConflict
			}
			a.Email = *a.PendingEmail
			a.PendingEmail = nil
		}
		a.Verified = true
		a.VerificationTokenDigest = nil
		a.UpdatedAt = s.now()
		return clone(a), nil
	}
	return nil, auth.ErrNotFound
}

func (s *MemoryStore) SetResetToken(_ context.Context, id, digest string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	a.ResetTokenDigest = ptr(digest)
	a.ResetTokenExpiresAt = ptr(expiresAt)
	a.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) findResetLocked(digest string, now time.Time) *auth.Account {
	for _, a := range s.accounts {
		if a.ResetTokenDigest != nil && *a.ResetTokenDigest == digest &&
			a.ResetTokenExpiresAt != nil && a.ResetTokenExpiresAt.After(now) {
			return a
		}
	}
	return nil
}

func (s *MemoryStore) FindByResetToken(_ context.Context, digest string, now time.Time) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findResetLocked(digest, now)
	if a == nil {
		return nil, auth.ErrNotFound
	}
	return clone(a), nil
}

func (s *MemoryStore) ConsumeResetToken(_ context.Context, digest, passwordDigest string, now time.Time) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findResetLocked(digest, now)
	if a == nil {
		return nil, auth.ErrNotFound
	}
	a.PasswordDigest = ptr(passwordDigest)
	a.ResetTokenDigest = nil
	a.ResetTokenExpiresAt = nil
	a.UpdatedAt = s.now()
	return clone(a), nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, id string, changes auth.AccountChanges) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if changes.Username != nil {
		a.Username = *changes.Username
	}
	if changes.PhoneNumber != nil {
		a.PhoneNumber = ptr(*changes.PhoneNumber)
	}
	if changes.ProfileURL != nil {
		a.ProfileURL = ptr(*changes.ProfileURL)
	}
	if changes.PasswordDigest != nil {
		a.PasswordDigest = ptr(*changes.PasswordDigest)
	}
	if changes.PendingEmail != nil {
		a.PendingEmail = ptr(*changes.PendingEmail)
	}
	if changes.VerificationTokenDigest != nil {
		a.VerificationTokenDigest = ptr(*changes.VerificationTokenDigest)
	}
	a.UpdatedAt = s.now()
	return clone(a), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

// Snapshot returns a copy of the stored account for assertions.
func (s *MemoryStore) Snapshot(id string) (*auth.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	return clone(a), true
}

// ExpireResetTokens moves every reset expiry into the past.
func (s *MemoryStore) ExpireResetTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	past := s.now().Add(-time.Second)
	for _, a := range s.accounts {
		if a.ResetTokenExpiresAt != nil {
			a.ResetTokenExpiresAt = ptr(past)
		}
	}
}

// SetRoles replaces the roles of a stored account.
func (s *MemoryStore) SetRoles(id string, roles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[id]; ok {
		a.Roles = slices.Clone(roles)
	}
}
