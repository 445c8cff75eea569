// Package memcache is the "memcache" driver: a single memcached server reached
// through bradfitz/gomemcache.
package memcache

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	gomc "github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/nscache/backend"
	"github.com/unkn0wn-root/nscache/internal/keys"
)

const maxRelativeExpiration = 30 * 24 * time.Hour

// Client is the subset of *gomemcache.Client used here.
type Client interface {
	Get(key string) (*gomc.Item, error)
	Set(item *gomc.Item) error
	Delete(key string) error
}

type Memcache struct {
	c   Client
	now func() time.Time
}

var _ backend.Backend = (*Memcache)(nil)

type Config struct {
	Client Client // used as is when set

	Host    string // default 127.0.0.1
	Port    int    // default 11211
	Timeout time.Duration
}

func New(cfg Config) (*Memcache, error) {
	if cfg.Client != nil {
		return &Memcache{c: cfg.Client, now: time.Now}, nil
	}
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 11211
	}
	mc := gomc.New(net.JoinHostPort(host, strconv.Itoa(port)))
	if cfg.Timeout > 0 {
		mc.Timeout = cfg.Timeout
	}
	return &Memcache{c: mc, now: time.Now}, nil
}

func (p *Memcache) expiration(ttl time.Duration) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > maxRelativeExpiration {
		return int32(p.now().Add(ttl).Unix())
	}
	secs := ttl / time.Second
	if ttl%time.Second != 0 {
		secs++
	}
	return int32(secs)
}

func (p *Memcache) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Fetch(ctx, key)
	return ok, err
}

func (p *Memcache) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	it, err := p.c.Get(keys.Memcache(key))
	if errors.Is(err, gomc.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if it.Value == nil {
		return []byte{}, true, nil
	}
	return it.Value, true, nil
}

func (p *Memcache) Save(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := p.c.Set(&gomc.Item{
		Key:        keys.Memcache(key),
		Value:      value,
		Expiration: p.expiration(ttl),
	})
	if errors.Is(err, gomc.ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcache) Delete(_ context.Context, key string) (bool, error) {
	err := p.c.Delete(keys.Memcache(key))
	if errors.Is(err, gomc.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the client when it supports it (gomemcache >= 2023).
func (p *Memcache) Close(_ context.Context) error {
	if c, ok := p.c.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
