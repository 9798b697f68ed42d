package auth

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the cost the account table was first populated with.
const PasswordCost = 10

// PasswordHasher is the salted one-way hash used for account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: PasswordCost}
}

func (b *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", publicError("AUTH_EMPTY_PASSWORD", ErrInvalidInput, MsgPasswordRequired)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// Compare reports whether password matches hash. Malformed or empty hashes never match.
func (b *BcryptHasher) Compare(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyPasswordHash is compared against when no account matched, so unknown
// emails cost the same bcrypt work as wrong passwords.
var dummyPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("clientlance-timing-equaliser"), PasswordCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()
