package security

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// sessionKeyInfo binds HKDF output to its purpose
const sessionKeyInfo = "kompromat session key"

// KDFParams tunes the argon2id derivation of access card keys
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultKDFParams returns the production argon2id parameters
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}
}

// Validate checks the parameters are usable by argon2
func (p KDFParams) Validate() error {
	if p.Time == 0 {
		return fmt.Errorf("kdf time must be at least 1")
	}
	if p.Threads == 0 {
		return fmt.Errorf("kdf threads must be at least 1")
	}
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return fmt.Errorf("kdf memory must be at least %d KiB for %d threads", 8*uint32(p.Threads), p.Threads)
	}
	return nil
}

// CardKDF derives access card wrap keys from secret + PIN
type CardKDF struct {
	params KDFParams
}

// NewCardKDF creates a card key deriver
func NewCardKDF(params KDFParams) (*CardKDF, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &CardKDF{params: params}, nil
}

// Derive returns a KeySize wrap key for the given card secret, PIN and salt.
// Any change to secret, pin or salt yields an unrelated key.
func (k *CardKDF) Derive(secret, pin string, salt []byte) []byte {
	material := make([]byte, 0, len(secret)+len(pin))
	material = append(material, secret...)
	material = append(material, pin...)

	key := argon2.IDKey(material, salt, k.params.Time, k.params.MemoryKiB, k.params.Threads, KeySize)
	Wipe(material)
	return key
}

// SessionKey derives a wrap key from a high-entropy session secret.
// Session secrets are random, so a fast HKDF is sufficient.
func SessionKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}
