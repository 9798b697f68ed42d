package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/samber/oops"
)

const oneTimeTokenBytes = 20

// OneTimeTokens issues the random tokens mailed for email verification and
// password reset. Only the digest is ever persisted.
type OneTimeTokens interface {
	Issue() (cleartext, digest string, err error)
	Digest(cleartext string) string
}

type RandomTokenIssuer struct{}

func (RandomTokenIssuer) Issue() (string, string, error) {
	buf := make([]byte, oneTimeTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", oops.Code("AUTH_TOKEN_RANDOM_FAILED").Wrap(err)
	}
	cleartext := hex.EncodeToString(buf)
	return cleartext, digestString(cleartext), nil
}

func (RandomTokenIssuer) Digest(cleartext string) string {
	return digestString(cleartext)
}

// digestString returns a hex-encoded SHA-256 hash for token storage.
func digestString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
