// Package bigcache implements the backend connector on an in-process
// bigcache instance. It exists for development setups and adapter tests
// where a network engine is unwanted; the Redis connector is the production
// path.
//
// bigcache only supports one global lifetime, so per-entry TTLs are carried
// inside a wire envelope and enforced on read and scan. Set membership is
// modelled as presence of a "set:<name>:<member>" key; members are managed
// through AddMember/RemoveMember on the concrete type.
package bigcache

import (
	"context"
	"errors"
	"strings"
	"time"

	big "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/kvgate/backend"
	"github.com/unkn0wn-root/kvgate/internal/wire"
)

// defaultLifetime caps how long any entry may live, TTL or not. bigcache
// evicts by age globally; per-entry TTLs shorter than this are honored
// exactly, longer ones are truncated to it.
const defaultLifetime = 24 * time.Hour

type Config struct {
	// MaxEntryLifetime bounds every entry's life. 0 => 24h.
	MaxEntryLifetime time.Duration
	// HardMaxCacheSize is the memory cap in MB. 0 => bigcache default (none).
	HardMaxCacheSize int
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

type Store struct {
	c   *big.BigCache
	now func() time.Time
}

var _ backend.Backend = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	life := cfg.MaxEntryLifetime
	if life <= 0 {
		life = defaultLifetime
	}
	bcfg := big.DefaultConfig(life)
	bcfg.HardMaxCacheSize = cfg.HardMaxCacheSize

	c, err := big.New(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Store{c: c, now: now}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.c.Get(key)
	if errors.Is(err, big.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	payload, exp, err := wire.Decode(raw)
	if err != nil {
		_ = s.c.Delete(key) // self-heal corrupt
		return nil, false, nil
	}
	if wire.Expired(exp, s.now()) {
		_ = s.c.Delete(key)
		return nil, false, nil
	}
	return payload, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	return s.c.Set(key, wire.Encode(value, exp))
}

func (s *Store) Del(ctx context.Context, key string) error {
	err := s.c.Delete(key)
	if errors.Is(err, big.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *Store) Scan(ctx context.Context, prefix string) backend.Iterator {
	return &scanIterator{s: s, it: s.c.Iterator(), prefix: prefix}
}

func (s *Store) Contains(ctx context.Context, set, member string) (bool, error) {
	_, err := s.c.Get(setKey(set, member))
	if errors.Is(err, big.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddMember inserts member into the named set. Not part of the Backend
// contract: membership is provisioned out of band, and for an in-process
// store out of band means the embedding code.
func (s *Store) AddMember(set, member string) error {
	return s.c.Set(setKey(set, member), wire.Encode(nil, time.Time{}))
}

// RemoveMember removes member from the named set.
func (s *Store) RemoveMember(set, member string) error {
	err := s.c.Delete(setKey(set, member))
	if errors.Is(err, big.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close(ctx context.Context) error { return s.c.Close() }

func setKey(set, member string) string { return "set:" + set + ":" + member }

type scanIterator struct {
	s      *Store
	it     *big.EntryInfoIterator
	prefix string
	cur    string
	err    error
}

func (s *scanIterator) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	for s.it.SetNext() {
		if err := ctx.Err(); err != nil {
			s.err = err
			return false
		}
		e, err := s.it.Value()
		if err != nil {
			continue // entry evicted mid-scan
		}
		if !strings.HasPrefix(e.Key(), s.prefix) {
			continue
		}
		_, exp, err := wire.Decode(e.Value())
		if err != nil || wire.Expired(exp, s.s.now()) {
			continue
		}
		s.cur = e.Key()
		return true
	}
	return false
}

func (s *scanIterator) Key() string { return s.cur }
func (s *scanIterator) Err() error  { return s.err }
