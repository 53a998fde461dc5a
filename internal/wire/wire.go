// Package wire frames backend entries for stores without native per-entry
// expiry. The Redis connector never needs it; the bigcache connector wraps
// every value so TTLs survive inside a store that only supports one global
// lifetime.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1
	kindVal byte = 1
)

var (
	ErrCorrupt = errors.New("wire: corrupt entry")
	magic4     = [...]byte{'K', 'V', 'G', 'E'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload with an optional absolute expiry.
// A zero exp means the entry never expires.
//
// Layout: magic(4) | ver(1) | kind(1) | exp(u64 be, unix nanos; 0 = none) | vlen(u32 be) | payload(vlen)
func Encode(payload []byte, exp time.Time) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindVal)

	var u8 [8]byte
	var u4 [4]byte

	var nanos uint64
	if !exp.IsZero() {
		nanos = uint64(exp.UnixNano())
	}
	binary.BigEndian.PutUint64(u8[:], nanos)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode unframes an entry. exp is zero when the entry has no expiry.
// Trailing bytes after the declared payload are treated as corruption.
func Decode(b []byte) (payload []byte, exp time.Time, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindVal {
		return nil, time.Time{}, ErrCorrupt
	}

	off := 6

	nanos := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return nil, time.Time{}, ErrCorrupt
	}

	if nanos != 0 {
		exp = time.Unix(0, int64(nanos))
	}
	return b[off : off+vlen], exp, nil
}

// Expired reports whether a decoded expiry has passed at time now.
func Expired(exp, now time.Time) bool {
	return !exp.IsZero() && now.After(exp)
}
