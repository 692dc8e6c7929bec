package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the required wrap key length (AES-256)
const KeySize = 32

// ivSeparator delimits the hex nonce from the hex ciphertext
const ivSeparator = "__IV__"

// ErrDecrypt is returned by Unwrap for any key, nonce or ciphertext problem.
// Callers treat it as "wrong credentials", never as an internal fault.
var ErrDecrypt = errors.New("decryption failed")

// Cipher wraps and unwraps small secrets with AES-256-GCM. It holds no key
// material; every call is given the key to use.
type Cipher struct {
	random io.Reader
}

// NewCipher creates a cipher drawing nonces from crypto/rand
func NewCipher() *Cipher {
	return &Cipher{random: rand.Reader}
}

// Wrap encrypts plaintext under key. The result is self-describing:
// hex(nonce) + "__IV__" + hex(ciphertext || tag).
func (c *Cipher) Wrap(key, plaintext []byte) (string, error) {
	if len(key) != KeySize {
		return "", fmt.Errorf("wrap key must be %d bytes, got %d", KeySize, len(key))
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return hex.EncodeToString(nonce) + ivSeparator + hex.EncodeToString(sealed), nil
}

// WrapString is Wrap for string payloads
func (c *Cipher) WrapString(key []byte, plaintext string) (string, error) {
	return c.Wrap(key, []byte(plaintext))
}

// Unwrap reverses Wrap. Any failure matches ErrDecrypt.
func (c *Cipher) Unwrap(key []byte, wrapped string) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrDecrypt, KeySize, len(key))
	}

	nonceHex, sealedHex, ok := strings.Cut(wrapped, ivSeparator)
	if !ok {
		return nil, fmt.Errorf("%w: missing iv separator", ErrDecrypt)
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed iv", ErrDecrypt)
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrDecrypt)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: iv must be %d bytes", ErrDecrypt, gcm.NonceSize())
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}

	return plaintext, nil
}

// VerifyChallenge reports whether wrapped unwraps under key to want.
func (c *Cipher) VerifyChallenge(key []byte, wrapped, want string) bool {
	plaintext, err := c.Unwrap(key, wrapped)
	if err != nil {
		return false
	}
	return ConstantTimeEqual(plaintext, []byte(want))
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
