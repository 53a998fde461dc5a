package kvgate

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	be "github.com/unkn0wn-root/kvgate/backend"
)

// tokenAuthority answers "is this token valid" with a membership lookup
// against the reserved token set. Read-only; provisioning happens out of
// band, directly in the backend.
//
// With cacheTTL > 0, positive answers are held in a ristretto cache so hot
// tokens skip the backend round-trip. Rejections are never cached (an
// operator adding a token must see it work immediately), and revocation is
// visible at worst cacheTTL later.
type tokenAuthority struct {
	b     be.Backend
	set   string
	cache *ristretto.Cache
	ttl   time.Duration
}

func newTokenAuthority(b be.Backend, set string, cacheTTL time.Duration) (*tokenAuthority, error) {
	a := &tokenAuthority{b: b, set: set, ttl: cacheTTL}
	if cacheTTL > 0 {
		c, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     1e4, // entries, cost 1 each
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		a.cache = c
	}
	return a, nil
}

// Validate reports token membership. An empty token is false, never an
// error. A backend fault is an error: the caller must not confuse "engine
// down" with "token revoked".
func (a *tokenAuthority) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	if a.cache != nil {
		if _, ok := a.cache.Get(token); ok {
			return true, nil
		}
	}
	ok, err := a.b.Contains(ctx, a.set, token)
	if err != nil {
		return false, err
	}
	if ok && a.cache != nil {
		a.cache.SetWithTTL(token, struct{}{}, 1, a.ttl)
	}
	return ok, nil
}

func (a *tokenAuthority) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}
