package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep argon2 fast in tests
var testKDFParams = KDFParams{Time: 1, MemoryKiB: 64, Threads: 1}

func TestKDFParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  KDFParams
		wantErr bool
	}{
		{name: "defaults", params: DefaultKDFParams(), wantErr: false},
		{name: "test params", params: testKDFParams, wantErr: false},
		{name: "zero time", params: KDFParams{Time: 0, MemoryKiB: 64, Threads: 1}, wantErr: true},
		{name: "zero threads", params: KDFParams{Time: 1, MemoryKiB: 64, Threads: 0}, wantErr: true},
		{name: "memory below minimum", params: KDFParams{Time: 1, MemoryKiB: 16, Threads: 4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCardKDFDerive(t *testing.T) {
	kdf, err := NewCardKDF(testKDFParams)
	require.NoError(t, err)

	salt := []byte("0123456789abcdef")
	key := kdf.Derive("secret", "000000", salt)
	assert.Len(t, key, KeySize)

	again := kdf.Derive("secret", "000000", salt)
	assert.True(t, bytes.Equal(key, again), "derivation must be deterministic")

	assert.False(t, bytes.Equal(key, kdf.Derive("secret", "000001", salt)), "pin must change the key")
	assert.False(t, bytes.Equal(key, kdf.Derive("secreT", "000000", salt)), "secret must change the key")
	assert.False(t, bytes.Equal(key, kdf.Derive("secret", "000000", []byte("fedcba9876543210"))), "salt must change the key")
}

// A challenge wrapped under a derived key only verifies under that exact key.
func TestChallengeOnlyVerifiesUnderDerivedKey(t *testing.T) {
	kdf, err := NewCardKDF(testKDFParams)
	require.NoError(t, err)
	c := NewCipher()

	salt := []byte("saltsaltsaltsalt")
	key := kdf.Derive("card-secret", "123456", salt)
	challenge, err := c.WrapString(key, "kompromat")
	require.NoError(t, err)

	assert.True(t, c.VerifyChallenge(kdf.Derive("card-secret", "123456", salt), challenge, "kompromat"))

	for _, pin := range []string{"123457", "000000", "12345", ""} {
		assert.False(t, c.VerifyChallenge(kdf.Derive("card-secret", pin, salt), challenge, "kompromat"), "pin %q", pin)
	}
	assert.False(t, c.VerifyChallenge(kdf.Derive("other-secret", "123456", salt), challenge, "kompromat"))
}

func TestNewCardKDFRejectsBadParams(t *testing.T) {
	_, err := NewCardKDF(KDFParams{})
	assert.Error(t, err)
}

func TestSessionKey(t *testing.T) {
	a, err := SessionKey("session-secret-a")
	require.NoError(t, err)
	assert.Len(t, a, KeySize)

	again, err := SessionKey("session-secret-a")
	require.NoError(t, err)
	assert.Equal(t, a, again)

	b, err := SessionKey("session-secret-b")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := RandomHex(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
