/*
Package api implements the Kompromat HTTP API.

The API is JSON over HTTP, routed with chi. Unauthenticated routes set up the
vault and exchange access cards for session tokens; every other /api route
requires a session token in two request headers.

# Architecture

	 client ──HTTP──▶ chi router
	                   │ RequestID → recoverer → client id → request log → metrics
	                   │
	                   ├─ /health /live /ready /metrics
	                   │
	                   ├─ /api  (per-client token bucket, JSON 404 for unknown paths)
	                   │    ├─ GET  /vault/status
	                   │    ├─ POST /vault/initialize         {pin}
	                   │    ├─ POST /authenticate             {accessCardId, accessCardSecret, pin}
	                   │    └─ session required:
	                   │         /access-cards, /authentication-log, /documents
	                   │
	                   └─ /*  static web client (optional)

# Sessions

UnwrapVaultKeyForRequest reads x-kompromat-token-id and
x-kompromat-token-access-secret and asks the vault to validate them. Handlers
own the returned session and close it with defer, which zeroes the master
key when the request ends. Missing headers are the same failure as wrong
ones.

# Errors

Every error response is {"error": "..."}:

	vault.ErrInvalidInput and wrappers   400
	vault.ErrAlreadyInitialized          400
	vault.ErrCannotRevokeLast            400
	vault.ErrNotAuthenticated            401
	vault.ErrNotFound                    404
	rate limit exceeded                  429 (Retry-After: 1)
	anything else                        500 "Encountered unexpected server error"

Unexpected errors are logged with full detail and never echoed to the client.

# Client Identity

Each request is tagged with a client id for the login governor and the rate
limiter. By default it is the peer IP. With governor.trust_forwarded_for the
first X-Forwarded-For entry is used, but only from trusted proxies.

# Logging

One line per request with method, path, status, duration, request id and
client id. Bodies and headers are never logged. Vault events arrive through
the events broker and are written by the "audit" component logger.
*/
package api
