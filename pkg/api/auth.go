package api

import (
	"net/http"

	"github.com/kompromat/kompromat/pkg/vault"
)

// Session token headers sent on every protected request
const (
	HeaderTokenID           = "x-kompromat-token-id"
	HeaderTokenAccessSecret = "x-kompromat-token-access-secret"
)

// UnwrapVaultKeyForRequest validates the session headers and returns the
// session holding the master key. Missing headers are treated as invalid
// credentials. Callers must Close the session.
func (s *Server) UnwrapVaultKeyForRequest(r *http.Request) (*vault.Session, error) {
	return s.vault.Validate(
		r.Context(),
		clientIDFromContext(r.Context()),
		r.Header.Get(HeaderTokenID),
		r.Header.Get(HeaderTokenAccessSecret),
	)
}
