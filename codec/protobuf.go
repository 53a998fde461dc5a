package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes proto.Message values. Decode needs a fresh concrete
// message to unmarshal into, so the codec carries a constructor; build it
// with NewProtobuf.
type Protobuf[T proto.Message] struct {
	new func() T
}

// NewProtobuf binds a message constructor, typically
// func() *pb.User { return &pb.User{} }.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
