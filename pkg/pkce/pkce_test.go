package pkce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGenerate(t *testing.T) {
	c, err := Generate()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(c.CodeVerifier), 43)
	assert.Equal(t, "S256", c.CodeChallengeMethod)
	assert.Equal(t, ChallengeFromVerifier(c.CodeVerifier), c.CodeChallenge)

	// Cross-check against the standard oauth2 package's own S256 implementation.
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(c.CodeVerifier), c.CodeChallenge)
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c, err := Generate()
		require.NoError(t, err)
		assert.False(t, seen[c.CodeVerifier], "duplicate code verifier generated")
		seen[c.CodeVerifier] = true
	}
}

func TestVerify(t *testing.T) {
	c, err := Generate()
	require.NoError(t, err)

	assert.True(t, Verify(c.CodeVerifier, c.CodeChallenge))
	assert.False(t, Verify("wrong-verifier", c.CodeChallenge))
}

func TestNewToken(t *testing.T) {
	tok, err := NewToken()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(tok), 43)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := NewToken()
		require.NoError(t, err)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}
