// Package keyspace maps (token, logical key) pairs onto the backend keyspace.
//
// Layout:
//
//	kv:<len>:<token>:<key>
//
// where <len> is the decimal byte length of the token. The length prefix
// makes the mapping injective for arbitrary token and key bytes: a token
// containing the separator cannot shift the prefix boundary, so no two
// distinct (token, key) pairs encode to the same backend key.
//
// Keys under the "kv:" prefix are owned by this package. External code must
// not write values under it.
package keyspace

import (
	"strconv"
	"strings"
)

// Head returns the namespace prefix shared by every backend key of token.
func Head(token string) string {
	var b strings.Builder
	b.Grow(3 + 20 + 1 + len(token) + 1)
	b.WriteString("kv:")
	b.WriteString(strconv.Itoa(len(token)))
	b.WriteByte(':')
	b.WriteString(token)
	b.WriteByte(':')
	return b.String()
}

// Encode derives the backend key for a logical key within token's namespace.
func Encode(token, key string) string {
	return Head(token) + key
}

// Prefix returns the backend-key prefix covering every logical key that
// starts with keyPrefix. An empty keyPrefix covers the whole namespace.
func Prefix(token, keyPrefix string) string {
	return Head(token) + keyPrefix
}

// Decode strips token's namespace prefix from a backend key.
// Returns ok=false when backendKey does not belong to token's namespace.
func Decode(token, backendKey string) (key string, ok bool) {
	head := Head(token)
	if !strings.HasPrefix(backendKey, head) {
		return "", false
	}
	return backendKey[len(head):], true
}
