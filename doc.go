// Package kvgate implements a token-namespaced key-value store on top of an
// external key-value engine. Every operation is gated by an opaque token;
// a valid token owns an isolated namespace derived deterministically from
// the token itself, so two tokens can never observe each other's keys.
//
// Components:
//   - backend.Backend: byte store with TTLs, prefix scans and set membership
//     (Redis in production, bigcache in-process for dev/tests).
//   - Store: the protocol-agnostic core API (Get/Set/Delete/List/Health)
//     shared by every transport adapter.
//   - httpapi / rpc: thin adapters translating wire shapes into Store calls.
//
// Tokens are provisioned out of band: operators add members to the engine's
// reserved "tokens" set, and removing a member revokes access on the very
// next call (unless a validation cache is enabled, see Options).
//
// Keyspace:
//
//	kv:<len>:<token>:<key>  - namespaced entries
//	tokens                  - reserved token membership set
package kvgate
