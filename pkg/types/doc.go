/*
Package types defines the persisted data model of a Kompromat vault.

Every type here is serialized as JSON into the single vault document held by
the storage package. Timestamps are epoch milliseconds so that documents
written by earlier deployments remain readable.

# Entities

	AccessCard         credential bundle; wraps the master key under secret+PIN
	Token              session credential; wraps the master key under a session secret
	EncryptedDocument  user document whose fields are wrapped under the master key
	AuthenticationLogEntry
	                   one login attempt, pruned after the retention window

Both AccessCard and Token carry a Challenge: ChallengeConstant wrapped under
the same key as the master key copy. Checking the challenge first lets the
vault reject wrong credentials without ever unwrapping the master key with
an unverified key.

None of these types hold plaintext key material.
*/
package types
