package kvgate

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	be "github.com/unkn0wn-root/kvgate/backend"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// memBackend is an in-memory Backend for tests. It counts namespaced-key
// operations so token-gating tests can assert that rejected requests never
// touch the keyspace, and it can simulate a full outage.
type memBackend struct {
	m      map[string]memEntry
	sets   map[string]map[string]bool
	now    func() time.Time
	down    bool
	keyOps  int // Get/Set/Del/Scan calls, not Contains/Ping
	authOps int // Contains calls
}

var _ be.Backend = (*memBackend)(nil)

var errDown = errors.New("connection refused")

func newMemBackend() *memBackend {
	return &memBackend{
		m:    make(map[string]memEntry),
		sets: make(map[string]map[string]bool),
		now:  time.Now,
	}
}

func (b *memBackend) addToken(tok string) {
	set := b.sets[DefaultTokenSet]
	if set == nil {
		set = make(map[string]bool)
		b.sets[DefaultTokenSet] = set
	}
	set[tok] = true
}

func (b *memBackend) delToken(tok string) {
	delete(b.sets[DefaultTokenSet], tok)
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.keyOps++
	if b.down {
		return nil, false, errDown
	}
	e, ok := b.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && b.now().After(e.exp) {
		delete(b.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.keyOps++
	if b.down {
		return errDown
	}
	var exp time.Time
	if ttl > 0 {
		exp = b.now().Add(ttl)
	}
	b.m[key] = memEntry{v: value, exp: exp}
	return nil
}

func (b *memBackend) Del(_ context.Context, key string) error {
	b.keyOps++
	if b.down {
		return errDown
	}
	delete(b.m, key)
	return nil
}

func (b *memBackend) Scan(_ context.Context, prefix string) be.Iterator {
	b.keyOps++
	var keys []string
	for k := range b.m {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return &memIterator{b: b, keys: keys}
}

func (b *memBackend) Contains(_ context.Context, set, member string) (bool, error) {
	b.authOps++
	if b.down {
		return false, errDown
	}
	return b.sets[set][member], nil
}

func (b *memBackend) Ping(context.Context) error {
	if b.down {
		return errDown
	}
	return nil
}

func (b *memBackend) Close(context.Context) error { return nil }

// memIterator pages lazily like a real cursor scan: entries are read from
// the backend per Next call, so an outage or expiry that happens after the
// scan opened is still observed mid-drain.
type memIterator struct {
	b    *memBackend
	keys []string
	i    int
	err  error
}

func (it *memIterator) Next(context.Context) bool {
	if it.err != nil {
		return false
	}
	for it.i < len(it.keys) {
		if it.b.down {
			it.err = errDown
			return false
		}
		k := it.keys[it.i]
		it.i++
		e, ok := it.b.m[k]
		if !ok || (!e.exp.IsZero() && it.b.now().After(e.exp)) {
			continue
		}
		return true
	}
	if it.b.down {
		it.err = errDown
	}
	return false
}

func (it *memIterator) Key() string { return it.keys[it.i-1] }
func (it *memIterator) Err() error  { return it.err }

// stallBackend blocks key operations and pings until the call's context
// expires, to prove each backend call carries its own deadline.
type stallBackend struct {
	*memBackend
}

func (b *stallBackend) Get(ctx context.Context, _ string) ([]byte, bool, error) {
	<-ctx.Done()
	return nil, false, ctx.Err()
}

func (b *stallBackend) Set(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *stallBackend) Del(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *stallBackend) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestStore(t *testing.T, b *memBackend, optsOpt func(*Options)) Store {
	t.Helper()
	opts := Options{Backend: b}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("abc123")
	s := newTestStore(t, b, nil)

	values := [][]byte{
		[]byte("Alice"),
		{},
		{0x00, 0xFF, 0x10},
		bytes.Repeat([]byte("x"), 1<<16),
	}
	for _, v := range values {
		if err := s.Set(ctx, "abc123", "user:1", v, 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, "abc123", "user:1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !bytes.Equal(got, v) {
			t.Fatalf("value mismatch: got %d bytes, want %d", len(got), len(v))
		}
	}
}

func TestIsolationBetweenTokens(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t1")
	b.addToken("t2")
	s := newTestStore(t, b, nil)

	if err := s.Set(ctx, "t1", "k", []byte("v1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get(ctx, "t2", "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for t2, got %v", err)
	}
	got, err := s.Get(ctx, "t1", "k")
	if err != nil || string(got) != "v1" {
		t.Fatalf("t1 read back: %q, %v", got, err)
	}
}

func TestIdempotentDelete(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t")
	s := newTestStore(t, b, nil)

	if err := s.Delete(ctx, "t", "absent"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if err := s.Set(ctx, "t", "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete(ctx, "t", "k"); err != nil {
		t.Fatalf("delete present: %v", err)
	}
	if err := s.Delete(ctx, "t", "k"); err != nil {
		t.Fatalf("delete again: %v", err)
	}
}

func TestTokenGating(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("good")
	s := newTestStore(t, b, nil)

	if err := s.Set(ctx, "good", "user:1", []byte("Alice"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	before := b.keyOps

	if _, err := s.Get(ctx, "nope", "user:1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("get: expected ErrUnauthorized, got %v", err)
	}
	if err := s.Set(ctx, "nope", "k", []byte("v"), 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("set: expected ErrUnauthorized, got %v", err)
	}
	if err := s.Delete(ctx, "nope", "k"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("delete: expected ErrUnauthorized, got %v", err)
	}
	if _, err := s.List(ctx, "nope", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("list: expected ErrUnauthorized, got %v", err)
	}
	if _, err := s.Get(ctx, "", "user:1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty token: expected ErrUnauthorized, got %v", err)
	}

	if b.keyOps != before {
		t.Fatalf("rejected requests touched the keyspace: %d ops", b.keyOps-before)
	}
}

func TestListScoping(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	// "a" and "a:b" collide under a bare separator scheme.
	b.addToken("a")
	b.addToken("a:b")
	s := newTestStore(t, b, nil)

	for _, k := range []string{"user:1", "user:2", "order:1"} {
		if err := s.Set(ctx, "a", k, []byte("v"), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := s.Set(ctx, "a:b", "user:9", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	keys, err := s.List(ctx, "a", "user:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got, err := keys.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "user:1" || got[1] != "user:2" {
		t.Fatalf("list = %v, want [user:1 user:2]", got)
	}

	keys, err = s.List(ctx, "a:b", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got, err = keys.Drain(ctx)
	if err != nil || len(got) != 1 || got[0] != "user:9" {
		t.Fatalf("list a:b = %v, %v; want [user:9]", got, err)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t")
	now := time.Now()
	b.now = func() time.Time { return now }
	s := newTestStore(t, b, nil)

	if err := s.Set(ctx, "t", "k", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get(ctx, "t", "k"); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := s.Get(ctx, "t", "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	keys, err := s.List(ctx, "t", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got, _ := keys.Drain(ctx); len(got) != 0 {
		t.Fatalf("expired key visible in list: %v", got)
	}
}

func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t")
	s := newTestStore(t, b, nil)

	if _, err := s.Get(ctx, "t", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("get empty key: %v", err)
	}
	if err := s.Set(ctx, "t", "", []byte("v"), 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("set empty key: %v", err)
	}
	if err := s.Set(ctx, "t", "k", []byte("v"), -time.Second); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("set negative ttl: %v", err)
	}
	if err := s.Delete(ctx, "t", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("delete empty key: %v", err)
	}
}

func TestBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t")
	s := newTestStore(t, b, nil)

	if err := s.Set(ctx, "t", "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	keys, err := s.List(ctx, "t", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	b.down = true

	if _, err := s.Get(ctx, "t", "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("get: expected ErrBackendUnavailable, got %v", err)
	}
	// token validation itself hits the backend; the outage must surface as
	// unavailability, never as a rejection.
	setErr := s.Set(ctx, "t", "k", []byte("v"), 0)
	if !errors.Is(setErr, ErrBackendUnavailable) {
		t.Fatalf("set: expected ErrBackendUnavailable, got %v", setErr)
	}
	if errors.Is(setErr, ErrUnauthorized) {
		t.Fatal("outage misreported as unauthorized")
	}
	for keys.Next(ctx) {
	}
	if err := keys.Err(); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("list drain: expected ErrBackendUnavailable, got %v", err)
	}
	if s.Health(ctx) {
		t.Fatal("health must be false while backend is down")
	}

	b.down = false
	if !s.Health(ctx) {
		t.Fatal("health must recover with the backend")
	}
}

// The two wire-level walkthroughs every adapter relies on.
func TestScenarios(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("abc123")
	s := newTestStore(t, b, nil)

	if err := s.Set(ctx, "abc123", "user:1", []byte("Alice"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "abc123", "user:1")
	if err != nil || string(v) != "Alice" {
		t.Fatalf("Get = %q, %v", v, err)
	}
	if err := s.Delete(ctx, "abc123", "user:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "abc123", "user:1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := s.Get(ctx, "nope", "user:1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenCacheStillValidates(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t")
	s := newTestStore(t, b, func(o *Options) { o.TokenCacheTTL = time.Minute })

	if err := s.Set(ctx, "t", "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set with cache: %v", err)
	}
	if _, err := s.Get(ctx, "bad", "k"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("rejections must not be cached away: %v", err)
	}
	// A rejection is never cached: provisioning the token must take effect
	// on the very next call.
	b.addToken("bad")
	if err := s.Set(ctx, "bad", "k", []byte("v"), 0); err != nil {
		t.Fatalf("freshly provisioned token rejected: %v", err)
	}
}

func TestTokenCacheSkipsBackend(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t")

	a, err := newTokenAuthority(b, DefaultTokenSet, time.Minute)
	if err != nil {
		t.Fatalf("newTokenAuthority: %v", err)
	}
	defer a.Close()

	ok, err := a.Validate(ctx, "t")
	if err != nil || !ok {
		t.Fatalf("Validate = %v, %v", ok, err)
	}
	a.cache.Wait() // ristretto admits asynchronously

	before := b.authOps
	ok, err = a.Validate(ctx, "t")
	if err != nil || !ok {
		t.Fatalf("cached Validate = %v, %v", ok, err)
	}
	if b.authOps != before {
		t.Fatalf("cache hit still reached the backend: %d lookups", b.authOps-before)
	}

	// Revocation is visible at worst one TTL later; until then the cached
	// positive answer stands.
	b.delToken("t")
	if ok, _ := a.Validate(ctx, "t"); !ok {
		t.Fatal("cached token rejected before the TTL elapsed")
	}
}

func TestTokenCacheExpiry(t *testing.T) {
	ctx := context.Background()
	b := newMemBackend()
	b.addToken("t")

	a, err := newTokenAuthority(b, DefaultTokenSet, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("newTokenAuthority: %v", err)
	}
	defer a.Close()

	if ok, err := a.Validate(ctx, "t"); err != nil || !ok {
		t.Fatalf("Validate = %v, %v", ok, err)
	}
	a.cache.Wait()

	b.delToken("t")
	time.Sleep(60 * time.Millisecond)
	if ok, err := a.Validate(ctx, "t"); err != nil || ok {
		t.Fatalf("revoked token accepted after cache TTL: %v, %v", ok, err)
	}
}

func TestOpTimeout(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	mb.addToken("t")
	b := &stallBackend{memBackend: mb}

	s, err := New(Options{Backend: b, OpTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	start := time.Now()
	if _, err := s.Get(ctx, "t", "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("get on stalled backend: expected ErrBackendUnavailable, got %v", err)
	}
	if err := s.Set(ctx, "t", "k", []byte("v"), 0); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("set on stalled backend: expected ErrBackendUnavailable, got %v", err)
	}
	if err := s.Delete(ctx, "t", "k"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("delete on stalled backend: expected ErrBackendUnavailable, got %v", err)
	}
	if s.Health(ctx) {
		t.Fatal("health must be false while pings hang")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("ops did not honor OpTimeout, took %v", elapsed)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrUnauthorized, KindUnauthorized},
		{ErrNotFound, KindNotFound},
		{ErrInvalidArgument, KindInvalidArgument},
		{ErrBackendUnavailable, KindBackendUnavailable},
		{ErrInternal, KindInternal},
		{errors.New("other"), KindUnknown},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Fatalf("KindOf(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
