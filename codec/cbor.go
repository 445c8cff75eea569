package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR stores values as RFC 8949 CBOR. It holds prebuilt modes, so obtain one
// from NewCBOR or MustCBOR; a zero CBOR panics.
//
// Canonical mode sorts map keys and picks the shortest encodings, and its
// decoder rejects duplicate map keys. Times are always RFC3339Nano strings.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](canonical bool) (CBOR[V], error) {
	eo, do := cbor.PreferredUnsortedEncOptions(), cbor.DecOptions{}
	if canonical {
		eo = cbor.CoreDetEncOptions()
		do.DupMapKey = cbor.DupMapKeyEnforcedAPF
	}
	eo.Time = cbor.TimeRFC3339Nano

	var out CBOR[V]
	var err error
	if out.enc, err = eo.EncMode(); err != nil {
		return CBOR[V]{}, err
	}
	if out.dec, err = do.DecMode(); err != nil {
		return CBOR[V]{}, err
	}
	return out, nil
}

// MustCBOR panics where NewCBOR would fail.
func MustCBOR[V any](canonical bool) CBOR[V] {
	cb, err := NewCBOR[V](canonical)
	if err != nil {
		panic(err)
	}
	return cb
}

func (cb CBOR[V]) Encode(v V) ([]byte, error) { return cb.enc.Marshal(v) }

func (cb CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := cb.dec.Unmarshal(b, &v)
	return v, err
}
