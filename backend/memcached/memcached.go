// Package memcached is the "memcached" driver: a sharded memcache client over a
// static server list.
package memcached

import (
	"context"
	"hash/crc32"
	"time"

	"github.com/dropbox/godropbox/memcache"
	"github.com/dropbox/godropbox/net2"

	"github.com/unkn0wn-root/nscache/backend"
	"github.com/unkn0wn-root/nscache/internal/keys"
)

// memcache treats relative expirations above 30 days as absolute unix times.
const maxRelativeExpiration = 30 * 24 * time.Hour

type Memcached struct {
	c   memcache.Client
	now func() time.Time
}

var _ backend.Backend = (*Memcached)(nil)

type Config struct {
	// Client is used as is when set; Servers is ignored.
	Client memcache.Client

	Servers              []string // host:port
	MaxActiveConnections int32
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	UseASCII             bool
}

func New(cfg Config) (*Memcached, error) {
	if cfg.Client != nil {
		return &Memcached{c: cfg.Client, now: time.Now}, nil
	}
	if len(cfg.Servers) == 0 {
		return nil, backend.ErrNilClient
	}
	manager := memcache.NewStaticShardManager(
		cfg.Servers,
		func(key string, numShard int) int {
			return int(crc32.ChecksumIEEE([]byte(key)) % uint32(numShard))
		},
		net2.ConnectionOptions{
			MaxActiveConnections: cfg.MaxActiveConnections,
			ReadTimeout:          cfg.ReadTimeout,
			WriteTimeout:         cfg.WriteTimeout,
		})
	builder := memcache.NewRawBinaryClient
	if cfg.UseASCII {
		builder = memcache.NewRawAsciiClient
	}
	return &Memcached{c: memcache.NewShardedClient(manager, builder), now: time.Now}, nil
}

func (p *Memcached) expiration(ttl time.Duration) uint32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > maxRelativeExpiration {
		return uint32(p.now().Add(ttl).Unix())
	}
	secs := ttl / time.Second
	if ttl%time.Second != 0 {
		secs++ // never round a live entry down to "no expiry"
	}
	return uint32(secs)
}

func (p *Memcached) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Fetch(ctx, key)
	return ok, err
}

func (p *Memcached) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	resp := p.c.Get(keys.Memcache(key))
	if err := resp.Error(); err != nil {
		return nil, false, err
	}
	if resp.Status() == memcache.StatusKeyNotFound {
		return nil, false, nil
	}
	return resp.Value(), true, nil
}

func (p *Memcached) Save(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	resp := p.c.Set(&memcache.Item{
		Key:        keys.Memcache(key),
		Value:      value,
		Expiration: p.expiration(ttl),
	})
	switch resp.Status() {
	case memcache.StatusItemNotStored, memcache.StatusValueTooLarge, memcache.StatusOutOfMemory:
		return false, nil
	}
	if err := resp.Error(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcached) Delete(_ context.Context, key string) (bool, error) {
	resp := p.c.Delete(keys.Memcache(key))
	if resp.Status() == memcache.StatusKeyNotFound {
		return false, nil
	}
	if err := resp.Error(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcached) Close(_ context.Context) error { return nil }
