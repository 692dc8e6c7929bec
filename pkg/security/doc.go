/*
Package security provides the cryptographic primitives of the vault.

It knows nothing about cards, tokens or documents. Callers pass in keys and
get back wrapped strings; no key material is kept on any type here.

# Wrapping

Cipher wraps small secrets with AES-256-GCM under a caller-supplied 32-byte
key. Each call draws a fresh 12-byte nonce. The wrapped form is a single
string:

	hex(nonce) + "__IV__" + hex(ciphertext || tag)

Unwrap returns ErrDecrypt for every failure: wrong key, malformed input,
tampered ciphertext. The caller cannot tell which, by construction.

VerifyChallenge unwraps a challenge and compares it to the expected constant
in constant time. The vault checks the challenge before touching the master
key copy, so a wrong credential never produces an unwrapped key.

# Key Derivation

Card keys come from argon2id over secret+pin with a per-card 16-byte salt:

	key = argon2.IDKey(secret || pin, salt, time, memory, threads, 32)

The pin has only a million values, so the derivation has to be slow. The
parameters live in KDFParams and are set from configuration; tests use tiny
values.

Session keys come from HKDF-SHA256 over the token secret. Token secrets are
32 random bytes, so no stretching is needed.

# Randomness

RandomBytes and RandomHex read crypto/rand. Wipe zeroes a byte slice; it is
used on master keys and derived keys once they are no longer needed.

# Usage

	kdf, err := security.NewCardKDF(security.DefaultKDFParams())
	if err != nil {
		return err
	}
	cardKey := kdf.Derive(secret, pin, salt)
	defer security.Wipe(cardKey)

	c := security.NewCipher()
	if !c.VerifyChallenge(cardKey, card.Challenge, types.ChallengeConstant) {
		return vault.ErrNotAuthenticated
	}
	masterKey, err := c.Unwrap(cardKey, card.Key)
*/
package security
