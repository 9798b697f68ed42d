package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomTokenIssuer(t *testing.T) {
	var issuer RandomTokenIssuer

	cleartext, digest, err := issuer.Issue()
	require.NoError(t, err)
	assert.Len(t, cleartext, 40)
	assert.Len(t, digest, 64)
	assert.NotEqual(t, cleartext, digest)
	assert.Equal(t, digest, issuer.Digest(cleartext))

	other, _, err := issuer.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, cleartext, other)
}
