package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/vault"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes = 1 << 20

	msgUnexpected = "Encountered unexpected server error"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

// writeVaultError maps domain errors to status codes. Anything unrecognized
// is logged in full and reported to the client as a generic 500.
func writeVaultError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, vault.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, publicMessage(err, vault.ErrInvalidInput))
	case errors.Is(err, vault.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, vault.ErrNotAuthenticated.Error())
	case errors.Is(err, vault.ErrAlreadyInitialized):
		writeError(w, http.StatusBadRequest, vault.ErrAlreadyInitialized.Error())
	case errors.Is(err, vault.ErrCannotRevokeLast):
		writeError(w, http.StatusBadRequest, vault.ErrCannotRevokeLast.Error())
	case errors.Is(err, vault.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, msgUnexpected)
	}
}

// publicMessage drops the sentinel prefix from a wrapped validation error
func publicMessage(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

// decodeBody reads a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", vault.ErrInvalidInput)
	}
	return nil
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
