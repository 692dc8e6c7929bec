/*
Package events is an in-process pub/sub broker for vault audit events.

The vault publishes an Event for every security-relevant change; the API
server subscribes and turns them into audit log lines and a per-type
counter.

	vault ──Publish──▶ Broker (buffered queue) ──▶ Subscriber channels

Publish never blocks. When the queue is full, or the broker is not running,
the event is dropped and counted (see Dropped). Slow subscribers miss events
rather than stall authentication.

# Event Types

	vault.initialized   first card created
	card.created        card id
	card.renamed        card id
	card.revoked        card id, tokens removed
	session.issued      card id
	auth.failed         client id
	token.expired       issuing card id
	tokens.swept        tokens removed

Metadata never carries secrets.
*/
package events
