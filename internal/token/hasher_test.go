package token

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPasswordHasher() *PasswordHasher {
	// Cheap parameters; the tests cover the format, not the work factor.
	return NewPasswordHasher(8*1024, 1, 1, 16, 32)
}

// TestPurpose: Validates the Argon2id hash/verify round trip.
// Scope: Unit Test
// Expected: The right password verifies, the wrong one does not, and two
// hashes of the same password differ by salt.
// Test Case ID: HSH-01
func TestToken_PasswordHasher_RoundTrip(t *testing.T) {
	hasher := newTestPasswordHasher()

	hash, err := hasher.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := hasher.VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := hasher.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

// TestPurpose: Validates malformed encoded hashes are reported as errors
// rather than silently failing verification.
// Scope: Unit Test
// Test Case ID: HSH-02
func TestToken_PasswordHasher_InvalidFormat(t *testing.T) {
	hasher := newTestPasswordHasher()

	for _, encoded := range []string{
		"",
		"plainhash",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$not!base64$aGFzaA",
	} {
		_, err := hasher.VerifyPassword("password", encoded)
		assert.Error(t, err, "encoded=%q", encoded)
	}
}

// TestPurpose: Validates API secret generation and deterministic hashing.
// Scope: Unit Test
// Security: Secrets must be high-entropy and unique per call; hashes must
// be stable so stored digests can be compared on validation.
// Test Case ID: HSH-03
func TestToken_SecretHasher(t *testing.T) {
	hasher := NewSecretHasher()

	first, err := hasher.GenerateSecret()
	require.NoError(t, err)
	second, err := hasher.GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	assert.Equal(t, hasher.HashSecret(first), hasher.HashSecret(first))
	assert.NotEqual(t, hasher.HashSecret(first), hasher.HashSecret(second))
}
