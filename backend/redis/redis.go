// Package redis implements the backend connector on top of go-redis.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/kvgate/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 256

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// Connect dials the engine at addr ("redis://host:port/db" or anything
// go-redis ParseURL accepts) and verifies reachability with a ping.
// Transient failures are retried by the client itself: up to three retries
// with capped exponential backoff before an operation surfaces an error.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	opt, err := goredis.ParseURL(addr)
	if err != nil {
		return nil, err
	}
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{rdb: client, closeClient: true}, nil
}

func (b *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return v, true, nil
}

func (b *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0 // no expiry
	}
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b *Redis) Del(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// Scan walks the keyspace with SCAN MATCH. The literal prefix is
// glob-escaped first so keys containing *, ?, [ or ] match themselves
// instead of acting as patterns.
func (b *Redis) Scan(ctx context.Context, prefix string) backend.Iterator {
	pattern := escapeGlob(prefix) + "*"
	return &scanIterator{it: b.rdb.Scan(ctx, 0, pattern, scanCount).Iterator()}
}

func (b *Redis) Contains(ctx context.Context, set, member string) (bool, error) {
	return b.rdb.SIsMember(ctx, set, member).Result()
}

func (b *Redis) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close releases the underlying client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (b *Redis) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type scanIterator struct {
	it *goredis.ScanIterator
}

func (s *scanIterator) Next(ctx context.Context) bool { return s.it.Next(ctx) }
func (s *scanIterator) Key() string                   { return s.it.Val() }
func (s *scanIterator) Err() error                    { return s.it.Err() }

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
