package kvgate

import (
	"context"
	"fmt"

	be "github.com/unkn0wn-root/kvgate/backend"
	"github.com/unkn0wn-root/kvgate/internal/keyspace"
)

// Keys streams the logical keys of one List call. Finite, not restartable,
// and only valid for a single consumer:
//
//	keys, err := store.List(ctx, token, "user:")
//	if err != nil { ... }
//	for keys.Next(ctx) {
//		_ = keys.Key()
//	}
//	if err := keys.Err(); err != nil { ... }
//
// Large namespaces are paged from the backend as the caller drains the
// iterator; the full key set is never materialized.
type Keys struct {
	token string
	it    be.Iterator
	hooks Hooks
	cur   string
	err   error
}

// Next advances to the next logical key. Returns false when the sequence is
// exhausted or failed; check Err afterwards.
func (k *Keys) Next(ctx context.Context) bool {
	if k.err != nil {
		return false
	}
	for k.it.Next(ctx) {
		lk, ok := keyspace.Decode(k.token, k.it.Key())
		if !ok {
			// scan prefix guarantees namespace membership, so a decode
			// failure is an invariant breach; skip and report.
			k.hooks.ScanSkipped(k.it.Key())
			continue
		}
		k.cur = lk
		return true
	}
	if err := k.it.Err(); err != nil {
		k.hooks.BackendFault("list", err)
		k.err = fmt.Errorf("%w: scan: %v", ErrBackendUnavailable, err)
	}
	return false
}

// Key returns the logical key at the current position.
func (k *Keys) Key() string { return k.cur }

// Err returns the first failure encountered while streaming, if any.
func (k *Keys) Err() error { return k.err }

// Drain collects the remaining keys into a slice. Convenience for small
// namespaces and tests; prefer Next for streaming.
func (k *Keys) Drain(ctx context.Context) ([]string, error) {
	var out []string
	for k.Next(ctx) {
		out = append(out, k.Key())
	}
	return out, k.Err()
}
