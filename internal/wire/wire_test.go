package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"time"
)

func mustEncode(t *testing.T, e Entry) []byte {
	t.Helper()
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	return b
}

func mustDecode(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return e
}

func TestEntryRoundTrip(t *testing.T) {
	exp := time.Unix(1700000000, 123456789)
	cases := []Entry{
		{Key: "k", Payload: nil},
		{Key: "users[42][1]", Payload: []byte("Alice")},
		{Key: "x", ExpiresAt: exp, Payload: []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		got := mustDecode(t, mustEncode(t, tc))
		if got.Key != tc.Key {
			t.Fatalf("key mismatch: got %q want %q", got.Key, tc.Key)
		}
		if !got.ExpiresAt.Equal(tc.ExpiresAt) {
			t.Fatalf("expiry mismatch: got %v want %v", got.ExpiresAt, tc.ExpiresAt)
		}
		if !bytes.Equal(got.Payload, tc.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, tc.Payload)
		}
	}
}

func TestEncodeKeyLengthValidation(t *testing.T) {
	if _, err := Encode(Entry{Key: ""}); err != ErrKeyRange {
		t.Fatalf("expected ErrKeyRange on empty key, got %v", err)
	}
	if _, err := Encode(Entry{Key: strings.Repeat("a", 0x10000)}); err != ErrKeyRange {
		t.Fatalf("expected ErrKeyRange on key length > 0xFFFF, got %v", err)
	}
	if _, err := Encode(Entry{Key: strings.Repeat("b", 0xFFFF)}); err != nil {
		t.Fatalf("boundary key length should succeed: %v", err)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	enc := mustEncode(t, Entry{Key: "k", Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestDecodeCorruptHeadersAndLengths(t *testing.T) {
	enc := mustEncode(t, Entry{Key: "k", Payload: []byte("abc")})

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = kindEntry + 1
	if _, err := Decode(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// klen is at offset 14..15 (4 magic +1 ver +1 kind +8 exp)
	badKlen := append([]byte(nil), enc...)
	binary.BigEndian.PutUint16(badKlen[14:16], 200)
	if _, err := Decode(badKlen); err == nil {
		t.Fatalf("expected error on klen beyond buffer")
	}

	// vlen follows the 1-byte key
	badVlen := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(badVlen[17:21], uint32(len("abc")+1))
	if _, err := Decode(badVlen); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
}

func TestExpiredAndDeadline(t *testing.T) {
	now := time.Now()
	if !Deadline(now, 0).IsZero() || !Deadline(now, -time.Second).IsZero() {
		t.Fatalf("non-positive ttl must produce zero deadline")
	}
	e := Entry{Key: "k", ExpiresAt: Deadline(now, time.Minute)}
	if e.Expired(now) {
		t.Fatalf("entry should not be expired yet")
	}
	if !e.Expired(now.Add(time.Minute)) {
		t.Fatalf("entry should be expired at its deadline")
	}
	if (Entry{Key: "k"}).Expired(now.Add(100 * 365 * 24 * time.Hour)) {
		t.Fatalf("entry without deadline never expires")
	}
}

func TestDecodeZeroCopyPayload(t *testing.T) {
	enc := mustEncode(t, Entry{Key: "k", Payload: []byte("Z")})
	e := mustDecode(t, enc)
	e.Payload[0] = 'Q'
	if mustDecode(t, enc).Payload[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}
