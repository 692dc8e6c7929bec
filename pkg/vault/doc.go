/*
Package vault holds the access card registry and the session authenticator.

A vault has one random 32-byte master key. It is never stored in the clear:
each access card keeps a copy wrapped under a key derived from the card
secret and pin, and each session token keeps a copy wrapped under a key
derived from the token secret.

# Flow

	InitializeVault(pin)          → card id + card secret (shown once)
	Authenticate(card, secret, pin) → token id + token secret (5 minutes)
	Validate(token id, secret)    → Session{Key}, closed by the caller

Every credential failure, whatever its cause, is ErrNotAuthenticated and
counts against the client in the login governor. Blocked clients get the
same error before any work is done. Unknown card ids still run the slow key
derivation so their timing matches a wrong pin.

# Cards

CreateAccessCard wraps the caller's master key for a new card.
RevokeAccessCard requires the caller to re-present their own card secret and
pin, refuses to remove the last card, and deletes every token the revoked
card issued in the same store update.

# Maintenance

SweepExpiredTokens removes expired tokens and prunes the authentication log
to the retention window. The reaper package calls it on a timer; the CLI
exposes it as "kompromat sweep".
*/
package vault
