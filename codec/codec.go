// Package codec holds the value serializers used by typed views. The store
// core only ever sees []byte; a Codec decides how a V becomes that payload
// and back.
package codec

// Codec converts values of type V to and from their stored byte form.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
