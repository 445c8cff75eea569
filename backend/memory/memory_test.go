package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := New()

	ok, err := p.Contains(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	_, hit, err := p.Fetch(ctx, "k")
	require.NoError(t, err)
	require.False(t, hit)

	saved, err := p.Save(ctx, "k", []byte("v"), 0)
	require.NoError(t, err)
	require.True(t, saved)

	v, hit, err := p.Fetch(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, []byte("v"), v)

	removed, err := p.Delete(ctx, "k")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = p.Delete(ctx, "k")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestMemoryDistinguishesEmptyValueFromMiss(t *testing.T) {
	ctx := context.Background()
	p := New()

	_, err := p.Save(ctx, "empty", []byte{}, 0)
	require.NoError(t, err)

	v, hit, err := p.Fetch(ctx, "empty")
	require.NoError(t, err)
	require.True(t, hit)
	require.Empty(t, v)
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	p := New()
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	_, err := p.Save(ctx, "short", []byte("x"), time.Second)
	require.NoError(t, err)
	_, err = p.Save(ctx, "forever", []byte("y"), 0)
	require.NoError(t, err)

	ok, _ := p.Contains(ctx, "short")
	require.True(t, ok)

	now = now.Add(time.Second)

	ok, _ = p.Contains(ctx, "short")
	require.False(t, ok)
	ok, _ = p.Contains(ctx, "forever")
	require.True(t, ok)
	require.Equal(t, 1, p.Len())
}

func TestMemoryDoesNotShareSlices(t *testing.T) {
	ctx := context.Background()
	p := New()

	buf := []byte("hello")
	_, err := p.Save(ctx, "k", buf, 0)
	require.NoError(t, err)
	buf[0] = 'J'

	v, hit, err := p.Fetch(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	v[1] = 'X'

	v, _, err = p.Fetch(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "hello", string(v))
}
