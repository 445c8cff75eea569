package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errNoCtor = errors.New("codec: protobuf codec has no message constructor")

// Protobuf stores generated messages in wire format. Maps are marshaled in key
// order so equal messages produce equal payloads.
type Protobuf[T proto.Message] struct {
	ctor func() T
}

// NewProtobuf takes the allocator Decode unmarshals into,
// e.g. func() *pb.User { return new(pb.User) }.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{ctor: ctor}
}

var pbMarshal = proto.MarshalOptions{Deterministic: true}

func (Protobuf[T]) Encode(m T) ([]byte, error) { return pbMarshal.Marshal(m) }

func (p Protobuf[T]) Decode(b []byte) (T, error) {
	if p.ctor == nil {
		var zero T
		return zero, errNoCtor
	}
	m := p.ctor()
	if err := proto.Unmarshal(b, m); err != nil {
		return m, err
	}
	return m, nil
}
