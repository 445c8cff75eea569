package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1
)

var (
	ErrCorrupt  = errors.New("nscache: corrupt entry")
	ErrKeyRange = errors.New("nscache: entry key length out of range")
	magic4      = [...]byte{'N', 'S', 'C', 'E'}
)

// Entry is a framed cache value for stores without native per-key TTL
// (file, bigcache, object storage). Key is carried so a reader can detect
// digest collisions when the store addresses entries by hash.
type Entry struct {
	Key       string
	ExpiresAt time.Time // zero => never
	Payload   []byte
}

// Expired reports whether the entry has a deadline at or before now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Deadline converts a relative ttl into an absolute expiry. ttl<=0 => zero time.
func Deadline(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

const header = 4 + 1 + 1 + 8 + 2

// Encode frames e as:
//
//	magic(4) | ver(1) | kind(1) | expiresAt(i64 be, unix nanos, 0=never) |
//	keyLen(u16 be) | key(keyLen) | vlen(u32 be) | payload(vlen)
func Encode(e Entry) ([]byte, error) {
	if l := len(e.Key); l == 0 || l > 0xFFFF {
		return nil, ErrKeyRange
	}

	var buf bytes.Buffer
	buf.Grow(header + len(e.Key) + 4 + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	var exp int64
	if !e.ExpiresAt.IsZero() {
		exp = e.ExpiresAt.UnixNano()
	}
	binary.BigEndian.PutUint64(u8[:], uint64(exp))
	buf.Write(u8[:])

	binary.BigEndian.PutUint16(u2[:], uint16(len(e.Key)))
	buf.Write(u2[:])
	buf.WriteString(e.Key)

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)

	return buf.Bytes(), nil
}

// Decode parses a frame produced by Encode. Payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < header || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}
	off := 6

	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	klen := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2
	if klen == 0 || klen > len(b)-off {
		return Entry{}, ErrCorrupt
	}
	key := string(b[off : off+klen])
	off += klen

	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // exact: no trailing bytes
		return Entry{}, ErrCorrupt
	}

	e := Entry{Key: key, Payload: b[off : off+vlen]}
	if exp != 0 {
		e.ExpiresAt = time.Unix(0, exp)
	}
	return e, nil
}
