package kvgate

import (
	"context"
	"time"

	be "github.com/unkn0wn-root/kvgate/backend"
)

// Store is the shared store-access contract every protocol adapter holds.
// All methods are safe for concurrent use; no in-process state is shared
// between requests beyond the backend connection pool.
type Store interface {
	// Get returns the value under key in token's namespace.
	// Fails with ErrUnauthorized, ErrNotFound, ErrInvalidArgument or
	// ErrBackendUnavailable.
	Get(ctx context.Context, token, key string) ([]byte, error)

	// Set writes value under key. ttl > 0 delegates expiry to the backend;
	// ttl == 0 stores without expiry; ttl < 0 is ErrInvalidArgument.
	Set(ctx context.Context, token, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Idempotent: deleting an absent key succeeds.
	Delete(ctx context.Context, token, key string) error

	// List returns a lazy iterator over the logical keys in token's
	// namespace that start with prefix (empty prefix = all). Order is
	// backend-native and not guaranteed. The iterator is finite and not
	// restartable.
	List(ctx context.Context, token, prefix string) (*Keys, error)

	// Health reports backend reachability. Never returns an error; a
	// backend fault is reported as false. Cheap and side-effect free.
	Health(ctx context.Context) bool

	// Close releases the validation cache and the backend connection.
	Close(ctx context.Context) error
}

// DefaultTokenSet is the reserved backend set holding valid tokens.
const DefaultTokenSet = "tokens"

// Options tune the store. Only Backend is required.
type Options struct {
	// Required
	Backend be.Backend

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// TokenSet names the backend set consulted for token validation.
	// "" => DefaultTokenSet.
	TokenSet string

	// OpTimeout bounds every single backend call (pool acquisition
	// included). 0 => 5s.
	OpTimeout time.Duration

	// TokenCacheTTL enables caching of successful token validations for
	// the given duration. Revocation latency is then bounded by this TTL;
	// rejections are never cached. 0 disables the cache, and a removed
	// token is rejected on the very next call.
	TokenCacheTTL time.Duration
}

// New builds a Store around an already-connected backend.
func New(opts Options) (Store, error) {
	return newStore(opts)
}
