// Package ristretto backs the "apc" driver: a bounded, process-wide cache
// shared by every namespace opened on it.
package ristretto

import (
	"bytes"
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/nscache/backend"
)

type Ristretto struct {
	c    *rc.Cache
	cost func(key string, value []byte) int64
}

var _ backend.Backend = (*Ristretto)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost of one entry. nil => 1 per entry (MaxCost is then an item count).
	Cost func(key string, value []byte) int64
}

// DefaultConfig sizes the cache for roughly maxItems entries.
func DefaultConfig(maxItems int64) Config {
	return Config{NumCounters: maxItems * 10, MaxCost: maxItems, BufferItems: 64}
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(string, []byte) int64 { return 1 }
	}
	return &Ristretto{c: c, cost: cost}, nil
}

func (p *Ristretto) get(key string) ([]byte, bool) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	if !ok {
		// drop unexpected entry shape
		p.c.Del(key)
		return nil, false
	}
	return b, true
}

func (p *Ristretto) Contains(_ context.Context, key string) (bool, error) {
	_, ok := p.get(key)
	return ok, nil
}

func (p *Ristretto) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := p.get(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(b), true, nil
}

// Save returns ristretto's admission result. Wait makes an admitted write
// visible to the next read.
func (p *Ristretto) Save(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	value = bytes.Clone(value)
	ok := p.c.SetWithTTL(key, value, p.cost(key, value), ttl)
	p.c.Wait()
	return ok, nil
}

func (p *Ristretto) Delete(_ context.Context, key string) (bool, error) {
	_, ok := p.c.Get(key)
	p.c.Del(key)
	return ok, nil
}

func (p *Ristretto) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto counters (nil unless Config.Metrics).
func (p *Ristretto) Metrics() *rc.Metrics { return p.c.Metrics }
