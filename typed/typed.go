// Package typed layers a typed, single-namespace view on top of a
// kvgate.Store. The core stores opaque bytes; a typed view binds one token
// and a Codec so application code reads and writes its own value type:
//
//	users := typed.New[User](store, token, codec.JSON[User]{})
//	err := users.Set(ctx, "user:1", User{Name: "Alice"}, 0)
//	u, err := users.Get(ctx, "user:1")
package typed

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/kvgate"
	c "github.com/unkn0wn-root/kvgate/codec"
)

// Store is a typed view over one token's namespace.
type Store[V any] struct {
	s     kvgate.Store
	token string
	codec c.Codec[V]
}

func New[V any](s kvgate.Store, token string, codec c.Codec[V]) Store[V] {
	return Store[V]{s: s, token: token, codec: codec}
}

// Get reads and decodes the value under key. A payload that no longer
// decodes as V is reported as kvgate.ErrInternal: the namespace holds
// something this view's codec did not write.
func (t Store[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	raw, err := t.s.Get(ctx, t.token, key)
	if err != nil {
		return zero, err
	}
	v, err := t.codec.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: decode %q: %v", kvgate.ErrInternal, key, err)
	}
	return v, nil
}

func (t Store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := t.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %v", kvgate.ErrInternal, key, err)
	}
	return t.s.Set(ctx, t.token, key, raw, ttl)
}

func (t Store[V]) Delete(ctx context.Context, key string) error {
	return t.s.Delete(ctx, t.token, key)
}

// Keys lists the logical keys under this view's namespace.
func (t Store[V]) Keys(ctx context.Context, prefix string) (*kvgate.Keys, error) {
	return t.s.List(ctx, t.token, prefix)
}
