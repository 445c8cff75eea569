package codec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type user struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

func sample() user {
	return user{ID: "42", Name: "Alice", Created: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCodecsRoundTrip(t *testing.T) {
	cases := map[string]Codec[user]{
		"json":          JSON[user]{},
		"json-strict":   JSON[user]{Strict: true},
		"msgpack":       Msgpack[user]{},
		"msgpack-json":  Msgpack[user]{JSONTags: true},
		"cbor":          MustCBOR[user](false),
		"cbor-det":      MustCBOR[user](true),
		"zstd":          Zstd[user]{Inner: JSON[user]{}},
		"lz4":           LZ4[user]{Inner: Msgpack[user]{}},
		"limit":         Limit[user]{Inner: JSON[user]{}, MaxDecode: 1 << 10},
		"limit-no-max":  Limit[user]{Inner: JSON[user]{}},
		"stacked":       Limit[user]{Inner: Zstd[user]{Inner: MustCBOR[user](true)}, MaxDecode: 1 << 10},
		"lz4-over-cbor": LZ4[user]{Inner: MustCBOR[user](false)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(sample())
			require.NoError(t, err)
			got, err := c.Decode(b)
			require.NoError(t, err)
			require.Equal(t, sample().ID, got.ID)
			require.Equal(t, sample().Name, got.Name)
			require.True(t, sample().Created.Equal(got.Created))
		})
	}
}

func TestCBORDeterministic(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	m := map[string]int{"b": 2, "a": 1, "c": 3, "d": 4}
	first, err := c.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := c.Encode(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestMsgpackJSONTags(t *testing.T) {
	b, err := Msgpack[user]{JSONTags: true}.Encode(sample())
	require.NoError(t, err)
	require.True(t, bytes.Contains(b, []byte("created")), "json tag names expected in payload")
}

func TestRawCodecs(t *testing.T) {
	b, err := Bytes{}.Encode([]byte{1, 2})
	require.NoError(t, err)
	got, err := Bytes{}.Decode(b)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, got)

	s, err := String{}.Decode([]byte("Alice"))
	require.NoError(t, err)
	require.Equal(t, "Alice", s)
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}
	_, err := c.Decode([]byte("12345"))
	var tl *TooLargeError
	require.True(t, errors.As(err, &tl))
	require.Equal(t, 5, tl.Size)
	require.Equal(t, 4, tl.Max)

	got, err := c.Decode([]byte("1234"))
	require.NoError(t, err)
	require.Equal(t, "1234", got)
}

func TestCompressionShrinksRepetitivePayloads(t *testing.T) {
	long := strings.Repeat("namespace-versioned ", 200)
	for name, c := range map[string]Codec[string]{
		"zstd": Zstd[string]{Inner: String{}},
		"lz4":  LZ4[string]{Inner: String{}},
	} {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode(long)
			require.NoError(t, err)
			require.Equal(t, modeCompressed, b[0])
			require.Less(t, len(b), len(long)/2)

			got, err := c.Decode(b)
			require.NoError(t, err)
			require.Equal(t, long, got)
		})
	}
}

func TestCompressionStoresSmallPayloads(t *testing.T) {
	for name, c := range map[string]Codec[string]{
		"zstd": Zstd[string]{Inner: String{}},
		"lz4":  LZ4[string]{Inner: String{}},
	} {
		t.Run(name, func(t *testing.T) {
			b, err := c.Encode("Alice")
			require.NoError(t, err)
			require.Equal(t, modeStored, b[0])
			require.Len(t, b, frameHeader+len("Alice"))

			got, err := c.Decode(b)
			require.NoError(t, err)
			require.Equal(t, "Alice", got)
		})
	}
}

func TestCompressionRejectsMalformed(t *testing.T) {
	z := Zstd[string]{Inner: String{}}
	l := LZ4[string]{Inner: String{}}

	for _, b := range [][]byte{
		nil,
		{modeStored},
		{modeStored, 9, 0, 0, 0, 'x'},   // rawLen mismatch
		{7, 1, 0, 0, 0, 'x'},            // unknown mode
		{modeCompressed, 1, 0, 0, 0},    // no data
		{modeCompressed, 3, 0, 0, 0, 1}, // garbage block
	} {
		_, err := z.Decode(b)
		require.Error(t, err, "zstd %x", b)
		_, err = l.Decode(b)
		require.Error(t, err, "lz4 %x", b)
	}
}

func TestJSONStrict(t *testing.T) {
	loose, strict := JSON[user]{}, JSON[user]{Strict: true}

	extra := []byte(`{"id":"42","name":"Alice","email":"a@x"}`)
	got, err := loose.Decode(extra)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)
	_, err = strict.Decode(extra)
	require.Error(t, err)

	_, err = strict.Decode([]byte(`{"id":"42"} {"id":"43"}`))
	require.ErrorIs(t, err, errTrailingJSON)
}

func TestCBORCanonicalRejectsDuplicateKeys(t *testing.T) {
	dup := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02} // {"a":1,"a":2}

	_, err := MustCBOR[map[string]int](false).Decode(dup)
	require.NoError(t, err)
	_, err = MustCBOR[map[string]int](true).Decode(dup)
	require.Error(t, err)
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("Alice"))
	require.NoError(t, err)
	got, err := c.Decode(b)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.GetValue())

	_, err = Protobuf[*wrapperspb.StringValue]{}.Decode(b)
	require.ErrorIs(t, err, errNoCtor)
}
