package types

import (
	"time"
)

// ChallengeConstant is the known plaintext wrapped alongside every master key
// copy. Unwrapping it proves a derived key is correct.
const ChallengeConstant = "kompromat"

// Meta holds vault-wide flags
type Meta struct {
	HasInitialized bool `json:"hasInitialized"`
}

// AccessCard is a durable credential bundle that can unwrap the master key.
// The card secret and PIN are never stored; only what they unlock is.
type AccessCard struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Salt      string `json:"salt"`      // hex, feeds the card KDF
	Key       string `json:"key"`       // wrapped master key
	Challenge string `json:"challenge"` // wrapped ChallengeConstant
	CreatedAt int64  `json:"createdAt"` // epoch ms
}

// AccessCardSummary is the public view of an access card
type AccessCardSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Summary returns the public view of the card
func (c *AccessCard) Summary() AccessCardSummary {
	return AccessCardSummary{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

// Token is a short-lived session credential. VaultKey holds the master key
// re-wrapped under a key derived from the session secret.
type Token struct {
	ID        string `json:"id"`
	VaultKey  string `json:"vaultKey"`
	Challenge string `json:"challenge"`
	ExpiresAt int64  `json:"expiresAt"` // epoch ms
	CreatedBy string `json:"createdBy"` // access card id
}

// ExpiredAt reports whether the token is no longer usable at t
func (t *Token) ExpiredAt(now time.Time) bool {
	return now.UnixMilli() >= t.ExpiresAt
}

// DocumentFieldType identifies the kind of value a document field holds
type DocumentFieldType string

const (
	DocumentFieldPassword  DocumentFieldType = "PASSWORD"
	DocumentFieldTwoFactor DocumentFieldType = "TWO_FACTOR"
	DocumentFieldNote      DocumentFieldType = "NOTE"
)

// Valid reports whether the field type is known
func (t DocumentFieldType) Valid() bool {
	switch t {
	case DocumentFieldPassword, DocumentFieldTwoFactor, DocumentFieldNote:
		return true
	}
	return false
}

// DocumentField is a single secret value inside a document
type DocumentField struct {
	ID    string            `json:"id"`
	Type  DocumentFieldType `json:"type"`
	Value string            `json:"value"`
}

// Document is the decrypted form of a stored document
type Document struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Fields    []DocumentField `json:"fields"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

// EncryptedDocument is the persisted form of a document. Fields holds the
// JSON-encoded field list wrapped under the master key.
type EncryptedDocument struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Fields    string `json:"fields"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// AuthenticationLogEntry records one authentication attempt
type AuthenticationLogEntry struct {
	Timestamp    int64  `json:"timestamp"` // epoch ms
	IsSuccessful bool   `json:"isSuccessful"`
	Description  string `json:"description"`
}
