// Package codec converts cache values to and from the bytes a backend stores.
//
// Every type here satisfies Codec[V]. Wrappers (Limit, Zstd, LZ4) take another
// codec as Inner and can be stacked:
//
//	codec.Limit[User]{Inner: codec.Zstd[User]{Inner: codec.JSON[User]{}}, MaxDecode: 1 << 20}
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
