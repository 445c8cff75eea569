// Package memory is the "array" driver: an exact, non-evicting in-process map.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/nscache/backend"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// Memory keeps entries in a map guarded by a RWMutex. Expired entries are
// dropped lazily on access. Values are copied in and out, so callers never
// share a slice with the store.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

var _ backend.Backend = (*Memory)(nil)

func New() *Memory {
	return &Memory{m: make(map[string]entry), now: time.Now}
}

func (p *Memory) lookup(key string) ([]byte, bool) {
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && !p.now().Before(e.exp) {
		p.mu.Lock()
		// re-check: a concurrent Save may have replaced it
		if cur, ok := p.m[key]; ok && cur.exp.Equal(e.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false
	}
	return e.v, true
}

func (p *Memory) Contains(_ context.Context, key string) (bool, error) {
	_, ok := p.lookup(key)
	return ok, nil
}

func (p *Memory) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (p *Memory) Save(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = entry{v: bytes.Clone(value), exp: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *Memory) Delete(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	_, ok := p.m[key]
	delete(p.m, key)
	p.mu.Unlock()
	return ok, nil
}

// Len returns the number of stored entries, expired ones included.
func (p *Memory) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

// Keys returns a snapshot of stored keys, expired ones included.
func (p *Memory) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		out = append(out, k)
	}
	return out
}

func (p *Memory) Close(_ context.Context) error { return nil }
