package kvgate

import (
	"context"
	"fmt"
	"time"

	be "github.com/unkn0wn-root/kvgate/backend"
	"github.com/unkn0wn-root/kvgate/internal/keyspace"
)

const defaultOpTimeout = 5 * time.Second

type store struct {
	b         be.Backend
	auth      *tokenAuthority
	log       Logger
	hooks     Hooks
	opTimeout time.Duration
}

func newStore(opts Options) (*store, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("kvgate: backend is required")
	}

	s := &store{b: opts.Backend}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.opTimeout = coalesce[time.Duration](opts.OpTimeout, defaultOpTimeout)

	set := coalesce[string](opts.TokenSet, DefaultTokenSet)
	auth, err := newTokenAuthority(opts.Backend, set, opts.TokenCacheTTL)
	if err != nil {
		return nil, err
	}
	s.auth = auth
	return s, nil
}

// opCtx bounds a single backend call. The caller's ctx still applies, so a
// dropped client abandons the in-flight call rather than letting it run
// unbounded.
func (s *store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// authorize gates an operation on token validity. It performs no
// namespaced-key I/O: a rejected token reads nothing and writes nothing.
func (s *store) authorize(ctx context.Context, op, token string) error {
	actx, cancel := s.opCtx(ctx)
	defer cancel()

	ok, err := s.auth.Validate(actx, token)
	if err != nil {
		s.hooks.BackendFault("auth", err)
		s.log.Error("token validation failed", Fields{"op": op, "err": err.Error()})
		return fmt.Errorf("%w: token validation: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		s.hooks.AuthRejected(op)
		s.log.Debug("token rejected", Fields{"op": op})
		return ErrUnauthorized
	}
	return nil
}

func (s *store) Get(ctx context.Context, token, key string) ([]byte, error) {
	if err := s.authorize(ctx, "get", token); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}

	gctx, cancel := s.opCtx(ctx)
	defer cancel()

	v, ok, err := s.b.Get(gctx, keyspace.Encode(token, key))
	if err != nil {
		s.hooks.BackendFault("get", err)
		s.log.Error("get failed", Fields{"err": err.Error()})
		return nil, fmt.Errorf("%w: get: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

func (s *store) Set(ctx context.Context, token, key string, value []byte, ttl time.Duration) error {
	if err := s.authorize(ctx, "set", token); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if ttl < 0 {
		return fmt.Errorf("%w: negative ttl", ErrInvalidArgument)
	}

	sctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.b.Set(sctx, keyspace.Encode(token, key), value, ttl); err != nil {
		s.hooks.BackendFault("set", err)
		s.log.Error("set failed", Fields{"err": err.Error()})
		return fmt.Errorf("%w: set: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, token, key string) error {
	if err := s.authorize(ctx, "delete", token); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}

	dctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.b.Del(dctx, keyspace.Encode(token, key)); err != nil {
		s.hooks.BackendFault("delete", err)
		s.log.Error("delete failed", Fields{"err": err.Error()})
		return fmt.Errorf("%w: delete: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *store) List(ctx context.Context, token, prefix string) (*Keys, error) {
	if err := s.authorize(ctx, "list", token); err != nil {
		return nil, err
	}

	// The scan itself stays on the caller's ctx: pages are fetched lazily
	// while the caller drains the iterator, which can legitimately outlive
	// a single op timeout.
	it := s.b.Scan(ctx, keyspace.Prefix(token, prefix))
	return &Keys{token: token, it: it, hooks: s.hooks}, nil
}

func (s *store) Health(ctx context.Context) bool {
	hctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.b.Ping(hctx); err != nil {
		s.hooks.BackendFault("health", err)
		s.log.Warn("health check failed", Fields{"err": err.Error()})
		return false
	}
	return true
}

func (s *store) Close(ctx context.Context) error {
	s.auth.Close()
	return s.b.Close(ctx)
}
