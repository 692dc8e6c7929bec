package vault

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kompromat/kompromat/pkg/events"
	"github.com/kompromat/kompromat/pkg/security"
	"github.com/kompromat/kompromat/pkg/storage"
	"github.com/kompromat/kompromat/pkg/types"
)

// CardCredentials are returned once, when a card is created. The secret is
// never stored.
type CardCredentials struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// InitializeVault creates the master key and the first access card. It
// succeeds once per vault lifetime.
func (v *Vault) InitializeVault(ctx context.Context, clientID, pin string) (*CardCredentials, error) {
	if err := v.checkBlocked(clientID); err != nil {
		return nil, err
	}
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}

	masterKey, err := security.RandomBytes(security.KeySize)
	if err != nil {
		return nil, err
	}
	defer security.Wipe(masterKey)

	// Derivation is slow, so it runs before the store lock is taken
	card, creds, err := v.newCard(DefaultCardName, pin, masterKey)
	if err != nil {
		return nil, err
	}

	err = v.store.Update(ctx, func(doc *storage.Document) error {
		if doc.Meta.HasInitialized {
			return ErrAlreadyInitialized
		}
		doc.AccessCards[card.ID] = card
		doc.Meta.HasInitialized = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.logger.Info().Str("card_id", card.ID).Msg("Vault initialized")
	v.publish(events.EventVaultInitialized, "vault initialized", map[string]string{"card_id": card.ID})
	return creds, nil
}

// CreateAccessCard adds a card that unlocks key, the caller's master key
func (v *Vault) CreateAccessCard(ctx context.Context, clientID string, key MasterKey, name, pin string) (*CardCredentials, error) {
	if err := v.checkBlocked(clientID); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}
	if len(key) != security.KeySize {
		return nil, ErrNotAuthenticated
	}

	card, creds, err := v.newCard(name, pin, key)
	if err != nil {
		return nil, err
	}

	if err := v.store.PutAccessCard(ctx, card); err != nil {
		return nil, err
	}

	v.logger.Info().Str("card_id", card.ID).Msg("Access card created")
	v.publish(events.EventCardCreated, "access card created", map[string]string{"card_id": card.ID})
	return creds, nil
}

// RenameAccessCard changes a card's display name
func (v *Vault) RenameAccessCard(ctx context.Context, clientID string, key MasterKey, cardID, name string) (*types.AccessCardSummary, error) {
	if err := v.checkBlocked(clientID); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, ErrNotAuthenticated
	}

	var summary types.AccessCardSummary
	err := v.store.Update(ctx, func(doc *storage.Document) error {
		card, ok := doc.AccessCards[cardID]
		if !ok {
			return fmt.Errorf("access card %w", ErrNotFound)
		}
		card.Name = name
		summary = card.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.publish(events.EventCardRenamed, "access card renamed", map[string]string{"card_id": cardID})
	return &summary, nil
}

// RevokeAccessCard deletes cardID and every token it issued. The caller
// re-proves possession of the card that issued their session with its
// secret and pin. The last remaining card cannot be revoked.
func (v *Vault) RevokeAccessCard(ctx context.Context, clientID string, session *Session, cardID, secret, pin string) error {
	if err := v.checkBlocked(clientID); err != nil {
		return err
	}
	if session == nil || len(session.Key) == 0 {
		return ErrNotAuthenticated
	}
	if secret == "" {
		return ErrMissingCredentials
	}
	if err := ValidatePin(pin); err != nil {
		return err
	}

	issuer, err := v.store.GetAccessCard(ctx, session.CardID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	wrapKey, ok := v.deriveCardKey(issuer, secret, pin)
	defer security.Wipe(wrapKey)

	if !ok || !v.cipher.VerifyChallenge(wrapKey, issuer.Challenge, types.ChallengeConstant) {
		return v.reject(clientID, "revocation credentials rejected")
	}

	tokensRemoved := 0
	err = v.store.Update(ctx, func(doc *storage.Document) error {
		if _, ok := doc.AccessCards[cardID]; !ok {
			return fmt.Errorf("access card %w", ErrNotFound)
		}
		if len(doc.AccessCards) < 2 {
			return ErrCannotRevokeLast
		}

		delete(doc.AccessCards, cardID)
		for id, token := range doc.Tokens {
			if token.CreatedBy == cardID {
				delete(doc.Tokens, id)
				tokensRemoved++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	v.logger.Info().
		Str("card_id", cardID).
		Int("tokens_removed", tokensRemoved).
		Msg("Access card revoked")
	v.publish(events.EventCardRevoked, "access card revoked", map[string]string{
		"card_id":        cardID,
		"tokens_removed": fmt.Sprint(tokensRemoved),
	})
	return nil
}

// ListAccessCards returns every card's public view, oldest first
func (v *Vault) ListAccessCards(ctx context.Context, clientID string, key MasterKey) ([]types.AccessCardSummary, error) {
	if err := v.checkBlocked(clientID); err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, ErrNotAuthenticated
	}

	var cards []types.AccessCardSummary
	err := v.store.View(ctx, func(doc *storage.Document) error {
		cards = make([]types.AccessCardSummary, 0, len(doc.AccessCards))
		for _, card := range doc.AccessCards {
			cards = append(cards, card.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].CreatedAt != cards[j].CreatedAt {
			return cards[i].CreatedAt < cards[j].CreatedAt
		}
		return cards[i].ID < cards[j].ID
	})
	return cards, nil
}

// newCard generates a card secret and salt and wraps masterKey and the
// challenge under the key derived from secret + pin.
func (v *Vault) newCard(name, pin string, masterKey []byte) (*types.AccessCard, *CardCredentials, error) {
	secret, err := security.RandomHex(cardSecretBytes)
	if err != nil {
		return nil, nil, err
	}
	salt, err := security.RandomBytes(saltBytes)
	if err != nil {
		return nil, nil, err
	}

	wrapKey := v.kdf.Derive(secret, pin, salt)
	defer security.Wipe(wrapKey)

	wrappedKey, err := v.cipher.Wrap(wrapKey, masterKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wrap master key: %w", err)
	}
	challenge, err := v.cipher.WrapString(wrapKey, types.ChallengeConstant)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wrap challenge: %w", err)
	}

	card := &types.AccessCard{
		ID:        uuid.NewString(),
		Name:      name,
		Salt:      hex.EncodeToString(salt),
		Key:       wrappedKey,
		Challenge: challenge,
		CreatedAt: v.now().UnixMilli(),
	}
	return card, &CardCredentials{ID: card.ID, Name: name, Secret: secret}, nil
}

func decodeSalt(s string) ([]byte, error) {
	salt, err := hex.DecodeString(s)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("invalid card salt")
	}
	return salt, nil
}
