package auth

import (
	"strings"
	"time"
)

// DefaultRoles is assigned to every new account.
var DefaultRoles = []string{"admin"}

// Account is the stored record. The digest and reset fields are secrets
// and never serialize; use Profile for anything that leaves the service.
type Account struct {
	ID                      string     `json:"id"`
	Username                string     `json:"username"`
	Email                   string     `json:"email"`
	PendingEmail            *string    `json:"pendingEmail"`
	PasswordDigest          *string    `json:"-"`
	PhoneNumber             *string    `json:"phoneNumber"`
	ProfileURL              *string    `json:"profileUrl"`
	Verified                bool       `json:"verified"`
	VerificationTokenDigest *string    `json:"-"`
	ResetTokenDigest        *string    `json:"-"`
	ResetTokenExpiresAt     *time.Time `json:"-"`
	Roles                   []string   `json:"roles"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with a password.
// Accounts created through an external provider have none.
func (a *Account) HasPassword() bool {
	return a.PasswordDigest != nil && *a.PasswordDigest != ""
}

func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Profile is the only view of an account that leaves the service.
type Profile struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	ProfileURL  *string `json:"profileUrl"`
	PhoneNumber *string `json:"phoneNumber"`
	NewEmail    *string `json:"newEmail"`
}

func (a *Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		ProfileURL:  a.ProfileURL,
		PhoneNumber: a.PhoneNumber,
		NewEmail:    a.PendingEmail,
	}
}

// NewAccount is what the store needs to insert an account.
type NewAccount struct {
	Username                string
	Email                   string
	PasswordDigest          *string
	Verified                bool
	VerificationTokenDigest *string
	Roles                   []string
}

// AccountChanges lists the columns a profile update may touch. Nil fields
// are left alone. PendingEmail and VerificationTokenDigest are set together.
type AccountChanges struct {
	Username                *string
	PhoneNumber             *string
	ProfileURL              *string
	PasswordDigest          *string
	PendingEmail            *string
	VerificationTokenDigest *string
}

func (c AccountChanges) Empty() bool {
	return c.Username == nil && c.PhoneNumber == nil && c.ProfileURL == nil && c.PasswordDigest == nil &&
		c.PendingEmail == nil && c.VerificationTokenDigest == nil
}

func stringPtr(s string) *string {
	return &s
}
