// Package pkce generates PKCE (RFC 7636) verifiers, challenges, and the
// random tokens the OAuth authorization server uses for state, authorization
// codes, and opaque tokens.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierBytes is the number of random bytes backing a PKCE code
	// verifier: 32 bytes gives 256 bits of entropy.
	verifierBytes = 32

	// randomTokenBytes is the number of random bytes backing opaque tokens
	// (authorization codes, access tokens, refresh tokens, state values).
	// 32 bytes base64url-encodes to 43 characters, comfortably over the
	// 128-bit minimum the spec requires for authorization codes.
	randomTokenBytes = 32
)

// Challenge is a generated PKCE verifier/challenge pair.
type Challenge struct {
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod string
}

// Generate produces a new S256 PKCE challenge.
func Generate() (*Challenge, error) {
	verifier, challenge, err := GenerateRaw()
	if err != nil {
		return nil, err
	}
	return &Challenge{
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
	}, nil
}

// GenerateRaw produces a PKCE verifier and its S256 challenge as raw strings.
func GenerateRaw() (verifier, challenge string, err error) {
	raw := make([]byte, verifierBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate PKCE verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(raw)
	challenge = ChallengeFromVerifier(verifier)
	return verifier, challenge, nil
}

// ChallengeFromVerifier computes the S256 code_challenge for a given
// code_verifier: BASE64URL(SHA256(verifier)), no padding.
func ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// Verify reports whether verifier hashes to the stored S256 challenge.
func Verify(verifier, storedChallenge string) bool {
	return ChallengeFromVerifier(verifier) == storedChallenge
}

// NewToken generates a cryptographically random, URL-safe opaque token
// suitable for an authorization code, access token, refresh token, or OAuth
// state parameter.
func NewToken() (string, error) {
	b := make([]byte, randomTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
