package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/kompromat/kompromat/pkg/events"
	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/kompromat/kompromat/pkg/security"
	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/types"
)

// MasterKey is the unwrapped vault key. It exists only for the duration of
// one operation and should be wiped once that operation is done.
type MasterKey []byte

// Wipe zeroes the key in place
func (k MasterKey) Wipe() {
	security.Wipe(k)
}

// Session is a validated token together with the master key it unlocked
type Session struct {
	TokenID string
	CardID  string
	Key     MasterKey
}

// Close wipes the session's master key
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.Key.Wipe()
}

// AuthRequest carries access card credentials
type AuthRequest struct {
	CardID    string
	Secret    string
	Pin       string
	UserAgent string
}

// TokenCredentials are returned once, on successful authentication
type TokenCredentials struct {
	TokenID string `json:"tokenId"`
	Secret  string `json:"tokenAccessSecret"`
}

// Authenticate exchanges access card credentials for a session token.
// Unknown card, wrong secret and wrong pin are indistinguishable.
func (v *Vault) Authenticate(ctx context.Context, clientID string, req AuthRequest) (*TokenCredentials, error) {
	if err := v.checkBlocked(clientID); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues(metrics.ResultBlocked).Inc()
		return nil, err
	}

	description := loginDescription(clientID, req.UserAgent)

	if req.CardID == "" || req.Secret == "" {
		v.governor.RecordFailure(clientID)
		v.recordLogin(ctx, description, false)
		metrics.AuthAttemptsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, ErrMissingCredentials
	}

	card, err := v.store.GetAccessCard(ctx, req.CardID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	wrapKey, ok := v.deriveCardKey(card, req.Secret, req.Pin)
	defer security.Wipe(wrapKey)

	if !ok || ValidatePin(req.Pin) != nil ||
		!v.cipher.VerifyChallenge(wrapKey, card.Challenge, types.ChallengeConstant) {
		return nil, v.failLogin(ctx, clientID, description, "card credentials rejected")
	}

	masterKey, err := v.cipher.Unwrap(wrapKey, card.Key)
	if err != nil {
		return nil, v.failLogin(ctx, clientID, description, "master key unwrap failed")
	}
	defer security.Wipe(masterKey)

	token, creds, err := v.issueToken(card.ID, masterKey)
	if err != nil {
		return nil, err
	}

	now := v.now()
	entry := types.AuthenticationLogEntry{
		Timestamp:    now.UnixMilli(),
		IsSuccessful: true,
		Description:  description,
	}
	if err := v.store.Update(ctx, func(doc *storage.Document) error {
		doc.Tokens[token.ID] = token
		doc.AuthenticationLog = appendLogEntry(doc.AuthenticationLog, entry, now, v.opts.AuthLogRetention)
		return nil
	}); err != nil {
		return nil, err
	}

	metrics.AuthAttemptsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.TokensIssuedTotal.Inc()
	v.logger.Info().Str("client_id", clientID).Str("card_id", card.ID).Msg("Session issued")
	v.publish(events.EventSessionIssued, "session issued", map[string]string{
		"card_id":   card.ID,
		"client_id": clientID,
	})

	return creds, nil
}

// deriveCardKey runs the card KDF. For an unknown card it still derives
// against a throwaway salt so response time does not reveal which card ids
// exist; ok is false in that case.
func (v *Vault) deriveCardKey(card *types.AccessCard, secret, pin string) ([]byte, bool) {
	if card == nil {
		return v.kdf.Derive(secret, pin, v.dummySalt), false
	}

	salt, err := decodeSalt(card.Salt)
	if err != nil {
		return v.kdf.Derive(secret, pin, v.dummySalt), false
	}
	return v.kdf.Derive(secret, pin, salt), true
}

func (v *Vault) failLogin(ctx context.Context, clientID, description, reason string) error {
	metrics.AuthAttemptsTotal.WithLabelValues(metrics.ResultFailure).Inc()
	v.recordLogin(ctx, description, false)
	return v.reject(clientID, reason)
}

// issueToken creates a token wrapping masterKey under a fresh session secret
func (v *Vault) issueToken(cardID string, masterKey []byte) (*types.Token, *TokenCredentials, error) {
	tokenID, err := security.RandomHex(tokenIDBytes)
	if err != nil {
		return nil, nil, err
	}
	secret, err := security.RandomHex(tokenSecretBytes)
	if err != nil {
		return nil, nil, err
	}

	sessionKey, err := security.SessionKey(secret)
	if err != nil {
		return nil, nil, err
	}
	defer security.Wipe(sessionKey)

	vaultKey, err := v.cipher.Wrap(sessionKey, masterKey)
	if err != nil {
		return nil, nil, err
	}
	challenge, err := v.cipher.WrapString(sessionKey, types.ChallengeConstant)
	if err != nil {
		return nil, nil, err
	}

	token := &types.Token{
		ID:        tokenID,
		VaultKey:  vaultKey,
		Challenge: challenge,
		ExpiresAt: v.now().Add(v.opts.TokenTTL).UnixMilli(),
		CreatedBy: cardID,
	}
	return token, &TokenCredentials{TokenID: tokenID, Secret: secret}, nil
}

// Validate checks a session token and returns the master key it unlocks.
// The caller must Close the session when done. Every failure is the same
// ErrNotAuthenticated.
func (v *Vault) Validate(ctx context.Context, clientID, tokenID, secret string) (*Session, error) {
	if err := v.checkBlocked(clientID); err != nil {
		metrics.SessionValidationsTotal.WithLabelValues(metrics.ResultBlocked).Inc()
		return nil, err
	}

	session, reason, err := v.validate(ctx, tokenID, secret)
	if err != nil {
		return nil, err
	}
	if session == nil {
		metrics.SessionValidationsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, v.reject(clientID, reason)
	}

	metrics.SessionValidationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return session, nil
}

// validate returns a nil session and a reason for credential failures, and
// a non-nil error only for store faults.
func (v *Vault) validate(ctx context.Context, tokenID, secret string) (*Session, string, error) {
	if tokenID == "" || secret == "" {
		return nil, "missing token credentials", nil
	}

	token, err := v.store.GetToken(ctx, tokenID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "unknown token", nil
	}
	if err != nil {
		return nil, "", err
	}

	if token.ExpiredAt(v.now()) {
		if err := v.store.DeleteToken(ctx, tokenID); err != nil {
			return nil, "", err
		}
		v.publish(events.EventTokenExpired, "expired token removed", map[string]string{"card_id": token.CreatedBy})
		return nil, "token expired", nil
	}

	if _, err := v.store.GetAccessCard(ctx, token.CreatedBy); errors.Is(err, storage.ErrNotFound) {
		return nil, "issuing card revoked", nil
	} else if err != nil {
		return nil, "", err
	}

	sessionKey, err := security.SessionKey(secret)
	if err != nil {
		return nil, "", err
	}
	defer security.Wipe(sessionKey)

	if !v.cipher.VerifyChallenge(sessionKey, token.Challenge, types.ChallengeConstant) {
		return nil, "token challenge mismatch", nil
	}

	masterKey, err := v.cipher.Unwrap(sessionKey, token.VaultKey)
	if err != nil {
		return nil, "token key unwrap failed", nil
	}

	return &Session{TokenID: token.ID, CardID: token.CreatedBy, Key: masterKey}, "", nil
}

// SweepExpiredTokens deletes every expired token and prunes the
// authentication log, in one batch. It returns the number of tokens removed.
func (v *Vault) SweepExpiredTokens(ctx context.Context) (int, error) {
	now := v.now()
	removed := 0

	err := v.store.Update(ctx, func(doc *storage.Document) error {
		for id, token := range doc.Tokens {
			if token.ExpiredAt(now) {
				delete(doc.Tokens, id)
				removed++
			}
		}
		doc.AuthenticationLog = pruneLog(doc.AuthenticationLog, now, v.opts.AuthLogRetention)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		metrics.TokensSweptTotal.Add(float64(removed))
		v.publish(events.EventTokensSwept, "expired tokens swept", map[string]string{
			"count": fmt.Sprint(removed),
		})
	}
	return removed, nil
}
