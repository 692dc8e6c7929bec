package security

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, KeySize)
}

func TestWrapUnwrapRoundtrip(t *testing.T) {
	c := NewCipher()
	key := testKey(0x42)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{
			name:      "master key",
			plaintext: bytes.Repeat([]byte{0xAB}, 32),
		},
		{
			name:      "challenge constant",
			plaintext: []byte("kompromat"),
		},
		{
			name:      "json fields",
			plaintext: []byte(`[{"id":"1","type":"PASSWORD","value":"hunter2"}]`),
		},
		{
			name:      "empty",
			plaintext: []byte{},
		},
		{
			name:      "large data",
			plaintext: bytes.Repeat([]byte("test"), 1000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped, err := c.Wrap(key, tt.plaintext)
			require.NoError(t, err)
			assert.Contains(t, wrapped, ivSeparator)

			plaintext, err := c.Unwrap(key, wrapped)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.plaintext, plaintext))
		})
	}
}

func TestWrapUsesFreshIV(t *testing.T) {
	c := NewCipher()
	key := testKey(0x01)

	first, err := c.WrapString(key, "kompromat")
	require.NoError(t, err)
	second, err := c.WrapString(key, "kompromat")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same plaintext must not produce the same ciphertext")

	firstIV, _, _ := strings.Cut(first, ivSeparator)
	secondIV, _, _ := strings.Cut(second, ivSeparator)
	assert.NotEqual(t, firstIV, secondIV)
}

func TestWrapRejectsBadKeyLength(t *testing.T) {
	c := NewCipher()

	_, err := c.Wrap(make([]byte, 16), []byte("data"))
	assert.Error(t, err)
}

func TestUnwrapFailures(t *testing.T) {
	c := NewCipher()
	key := testKey(0x07)

	wrapped, err := c.WrapString(key, "kompromat")
	require.NoError(t, err)
	iv, body, _ := strings.Cut(wrapped, ivSeparator)

	flipped := []byte(body)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	otherWrapped, err := c.WrapString(key, "something else")
	require.NoError(t, err)
	otherIV, _, _ := strings.Cut(otherWrapped, ivSeparator)

	tests := []struct {
		name    string
		key     []byte
		wrapped string
	}{
		{name: "wrong key", key: testKey(0x08), wrapped: wrapped},
		{name: "short key", key: make([]byte, 16), wrapped: wrapped},
		{name: "long key", key: make([]byte, 64), wrapped: wrapped},
		{name: "empty key", key: nil, wrapped: wrapped},
		{name: "missing separator", key: key, wrapped: iv + body},
		{name: "garbled iv hex", key: key, wrapped: "zz" + ivSeparator + body},
		{name: "wrong iv", key: key, wrapped: otherIV + ivSeparator + body},
		{name: "short iv", key: key, wrapped: iv[:8] + ivSeparator + body},
		{name: "tampered ciphertext", key: key, wrapped: iv + ivSeparator + string(flipped)},
		{name: "truncated ciphertext", key: key, wrapped: iv + ivSeparator + body[:4]},
		{name: "empty", key: key, wrapped: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plaintext, err := c.Unwrap(tt.key, tt.wrapped)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecrypt), "expected ErrDecrypt, got %v", err)
			assert.Nil(t, plaintext)
		})
	}
}

func TestVerifyChallenge(t *testing.T) {
	c := NewCipher()
	key := testKey(0x11)

	challenge, err := c.WrapString(key, "kompromat")
	require.NoError(t, err)

	assert.True(t, c.VerifyChallenge(key, challenge, "kompromat"))
	assert.False(t, c.VerifyChallenge(key, challenge, "kompromaT"))
	assert.False(t, c.VerifyChallenge(testKey(0x12), challenge, "kompromat"))
	assert.False(t, c.VerifyChallenge(key, "not-a-ciphertext", "kompromat"))
}
