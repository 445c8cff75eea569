package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressed payload layout, shared by Zstd and LZ4:
//
//	mode(1) | rawLen(u32 le) | data
//
// mode 0 stores data as is, used when compression would not shrink it
// by at least 10%.
const (
	modeStored     byte = 0
	modeCompressed byte = 1
	frameHeader         = 1 + 4

	// MinCompressSize is the smallest payload worth compressing.
	MinCompressSize = 64

	maxRawLen = 256 << 20
)

var ErrFrame = errors.New("codec: malformed compressed payload")

var (
	zstdEncPool = sync.Pool{New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	}}
	zstdDecPool = sync.Pool{New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	}}
)

// Zstd compresses the output of Inner with klauspost/compress/zstd.
type Zstd[V any] struct {
	Inner Codec[V]
}

var _ Codec[struct{}] = Zstd[struct{}]{}

func (c Zstd[V]) Encode(v V) ([]byte, error) {
	raw, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if len(raw) < MinCompressSize {
		return frame(modeStored, len(raw), raw), nil
	}
	enc := zstdEncPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(raw, nil)
	zstdEncPool.Put(enc)
	return pick(raw, out), nil
}

func (c Zstd[V]) Decode(b []byte) (V, error) {
	var zero V
	mode, n, data, err := unframe(b)
	if err != nil {
		return zero, err
	}
	raw := data
	if mode == modeCompressed {
		dec := zstdDecPool.Get().(*zstd.Decoder)
		raw, err = dec.DecodeAll(data, make([]byte, 0, n))
		zstdDecPool.Put(dec)
		if err != nil {
			return zero, fmt.Errorf("codec: zstd: %w", err)
		}
		if len(raw) != n {
			return zero, ErrFrame
		}
	}
	return c.Inner.Decode(raw)
}

// LZ4 compresses the output of Inner with LZ4 block compression. Faster than
// Zstd, with a lower ratio.
type LZ4[V any] struct {
	Inner Codec[V]
}

var _ Codec[struct{}] = LZ4[struct{}]{}

func (c LZ4[V]) Encode(v V) ([]byte, error) {
	raw, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if len(raw) < MinCompressSize {
		return frame(modeStored, len(raw), raw), nil
	}
	buf := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: lz4: %w", err)
	}
	if n == 0 { // incompressible
		return frame(modeStored, len(raw), raw), nil
	}
	return pick(raw, buf[:n]), nil
}

func (c LZ4[V]) Decode(b []byte) (V, error) {
	var zero V
	mode, n, data, err := unframe(b)
	if err != nil {
		return zero, err
	}
	raw := data
	if mode == modeCompressed {
		raw = make([]byte, n)
		got, err := lz4.UncompressBlock(data, raw)
		if err != nil {
			return zero, fmt.Errorf("codec: lz4: %w", err)
		}
		if got != n {
			return zero, ErrFrame
		}
	}
	return c.Inner.Decode(raw)
}

func pick(raw, compressed []byte) []byte {
	if len(compressed) == 0 || len(compressed)*10 > len(raw)*9 {
		return frame(modeStored, len(raw), raw)
	}
	return frame(modeCompressed, len(raw), compressed)
}

func frame(mode byte, rawLen int, data []byte) []byte {
	out := make([]byte, frameHeader+len(data))
	out[0] = mode
	binary.LittleEndian.PutUint32(out[1:], uint32(rawLen))
	copy(out[frameHeader:], data)
	return out
}

func unframe(b []byte) (mode byte, rawLen int, data []byte, err error) {
	if len(b) < frameHeader {
		return 0, 0, nil, ErrFrame
	}
	mode = b[0]
	rawLen = int(binary.LittleEndian.Uint32(b[1:]))
	if rawLen > maxRawLen {
		return 0, 0, nil, ErrFrame
	}
	data = b[frameHeader:]
	switch mode {
	case modeStored:
		if len(data) != rawLen {
			return 0, 0, nil, ErrFrame
		}
	case modeCompressed:
	default:
		return 0, 0, nil, ErrFrame
	}
	return mode, rawLen, data, nil
}
