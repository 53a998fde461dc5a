// Package backend defines the connector abstraction over the external
// key-value engine.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte that was previously passed to Set for a key (no prepended
// or appended metadata visible to callers, no re-encoding, no mutation). If
// a store performs internal transforms they MUST be fully reversed before
// the bytes reach the caller.
//
// A missing key is a normal negative result, never an error: Get returns
// (nil, false, nil) and Del on an absent key succeeds. Errors mean the
// engine itself misbehaved or is unreachable.
package backend

import (
	"context"
	"time"
)

// Backend is a minimal byte store with TTLs, prefix scans and set
// membership. Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. A ttl <= 0 means no expiry; otherwise the engine's
	// native expiry applies and the entry vanishes after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error

	// Scan returns a lazy iterator over every key starting with the literal
	// prefix. The sequence is finite, not restartable, and carries no
	// ordering guarantee. Keys written during the scan may or may not appear.
	Scan(ctx context.Context, prefix string) Iterator

	// Contains reports membership of member in the named set.
	Contains(ctx context.Context, set, member string) (bool, error)

	// Ping verifies the engine is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Iterator walks a scan result. Usage mirrors database cursors:
//
//	it := b.Scan(ctx, prefix)
//	for it.Next(ctx) {
//		_ = it.Key()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next advances to the next key. Returns false when the scan is
	// exhausted or failed; check Err afterwards.
	Next(ctx context.Context) bool

	// Key returns the key at the current position.
	Key() string

	// Err returns the first error encountered, if any.
	Err() error
}
