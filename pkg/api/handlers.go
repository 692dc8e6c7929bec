package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kompromat/kompromat/pkg/documents"
	"github.com/kompromat/kompromat/pkg/types"
	"github.com/kompromat/kompromat/pkg/vault"
)

type statusResponse struct {
	HasInitialized bool `json:"hasInitialized"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type initializeResponse struct {
	AccessCardID     string `json:"accessCardId"`
	AccessCardSecret string `json:"accessCardSecret"`
}

type authenticateRequest struct {
	AccessCardID     string `json:"accessCardId"`
	AccessCardSecret string `json:"accessCardSecret"`
	Pin              string `json:"pin"`
}

type createCardRequest struct {
	Name string `json:"name"`
	Pin  string `json:"pin"`
}

type renameCardRequest struct {
	Name string `json:"name"`
}

type revokeCardRequest struct {
	AccessCardSecret string `json:"accessCardSecret"`
	Pin              string `json:"pin"`
}

type accessCardsResponse struct {
	AccessCards []types.AccessCardSummary `json:"accessCards"`
}

type accessCardResponse struct {
	AccessCard any `json:"accessCard"`
}

type authenticationLogResponse struct {
	AuthenticationLog []types.AuthenticationLogEntry `json:"authenticationLog"`
}

type documentsResponse struct {
	Documents []types.Document `json:"documents"`
}

type documentResponse struct {
	Document *types.Document `json:"document"`
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	writeVaultError(w, s.logger, err)
}

// session validates the request headers. On failure the error response is
// already written and ok is false.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*vault.Session, bool) {
	session, err := s.UnwrapVaultKeyForRequest(r)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return session, true
}

func (s *Server) vaultStatus(w http.ResponseWriter, r *http.Request) {
	initialized, err := s.vault.Status(r.Context(), clientIDFromContext(r.Context()))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{HasInitialized: initialized})
}

func (s *Server) initializeVault(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}

	creds, err := s.vault.InitializeVault(r.Context(), clientIDFromContext(r.Context()), req.Pin)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initializeResponse{AccessCardID: creds.ID, AccessCardSecret: creds.Secret})
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}

	creds, err := s.vault.Authenticate(r.Context(), clientIDFromContext(r.Context()), vault.AuthRequest{
		CardID:    req.AccessCardID,
		Secret:    req.AccessCardSecret,
		Pin:       req.Pin,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) listAccessCards(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	cards, err := s.vault.ListAccessCards(r.Context(), clientIDFromContext(r.Context()), session.Key)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessCardsResponse{AccessCards: cards})
}

func (s *Server) createAccessCard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	var req createCardRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}

	creds, err := s.vault.CreateAccessCard(r.Context(), clientIDFromContext(r.Context()), session.Key, req.Name, req.Pin)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessCardResponse{AccessCard: creds})
}

func (s *Server) renameAccessCard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	var req renameCardRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}

	card, err := s.vault.RenameAccessCard(r.Context(), clientIDFromContext(r.Context()), session.Key, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessCardResponse{AccessCard: card})
}

func (s *Server) revokeAccessCard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	var req revokeCardRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, err)
		return
	}

	err := s.vault.RevokeAccessCard(r.Context(), clientIDFromContext(r.Context()), session, chi.URLParam(r, "id"), req.AccessCardSecret, req.Pin)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) authenticationLog(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	entries, err := s.vault.AuthenticationLog(r.Context(), clientIDFromContext(r.Context()), session.Key)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authenticationLogResponse{AuthenticationLog: entries})
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	docs, err := s.docs.List(r.Context(), session.Key)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: docs})
}

func (s *Server) listArchivedDocuments(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	docs, err := s.docs.ListArchived(r.Context(), session.Key)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: docs})
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	var in documents.Input
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, err)
		return
	}

	doc, err := s.docs.Create(r.Context(), session.Key, in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Document: doc})
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	var in documents.Input
	if err := decodeBody(w, r, &in); err != nil {
		s.fail(w, err)
		return
	}

	doc, err := s.docs.Update(r.Context(), session.Key, chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Document: doc})
}

func (s *Server) archiveDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	if err := s.docs.Archive(r.Context(), session.Key, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"archived": true})
}

func (s *Server) restoreDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	if err := s.docs.Restore(r.Context(), session.Key, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"archived": false})
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	defer session.Close()

	if err := s.docs.Delete(r.Context(), session.Key, chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
