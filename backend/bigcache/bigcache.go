package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/nscache/backend"
	"github.com/unkn0wn-root/nscache/internal/wire"
)

// BigCache has no per-entry TTL, only the global LifeWindow. Values are
// framed with their own deadline so a shorter TTL is still honored on read.
type BigCache struct {
	c   *bc.BigCache
	now func() time.Time
}

var _ backend.Backend = (*BigCache)(nil)

type Config struct {
	LifeWindow         time.Duration // upper bound for every entry; 0 => 24h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*BigCache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c, now: time.Now}, nil
}

func (p *BigCache) load(key string) ([]byte, bool, error) {
	raw, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	e, err := wire.Decode(raw)
	if err != nil || e.Key != key {
		_ = p.c.Delete(key) // foreign or corrupt bytes
		return nil, false, nil
	}
	if e.Expired(p.now()) {
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	return e.Payload, true, nil
}

func (p *BigCache) Contains(_ context.Context, key string) (bool, error) {
	_, ok, err := p.load(key)
	return ok, err
}

func (p *BigCache) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	return p.load(key)
}

func (p *BigCache) Save(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	b, err := wire.Encode(wire.Entry{Key: key, ExpiresAt: wire.Deadline(p.now(), ttl), Payload: value})
	if err != nil {
		return false, err
	}
	if err := p.c.Set(key, b); err != nil {
		return false, err
	}
	return true, nil
}

func (p *BigCache) Delete(_ context.Context, key string) (bool, error) {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *BigCache) Close(_ context.Context) error {
	return p.c.Close()
}
