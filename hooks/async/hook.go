// Package asynchook moves nscache hook calls off the caller's goroutine.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{ComputedEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	users, _ := nscache.New[User](nscache.Options[User]{
//	    Namespace: "users",
//	    Backend:   b,
//	    Codec:     codec.JSON[User]{},
//	    Hooks:     hooks, // or raw to run inline
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/nscache"
)

// Hooks queues each event for a fixed pool of workers. When the queue is full
// the event is dropped and counted; callers never block.
type Hooks struct {
	inner   nscache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ nscache.Hooks = (*Hooks)(nil)

func New(inner nscache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}
	if inner == nil {
		inner = nscache.NopHooks{}
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) VersionInitialized(ns string, v uint64) {
	h.try(func() { h.inner.VersionInitialized(ns, v) })
}
func (h *Hooks) VersionLoaded(ns string, v uint64) { h.try(func() { h.inner.VersionLoaded(ns, v) }) }
func (h *Hooks) VersionBumped(ns string, from, to uint64) {
	h.try(func() { h.inner.VersionBumped(ns, from, to) })
}
func (h *Hooks) RememberComputed(ns, key string) { h.try(func() { h.inner.RememberComputed(ns, key) }) }
func (h *Hooks) ProducerFailed(ns, key string, err error) {
	h.try(func() { h.inner.ProducerFailed(ns, key, err) })
}
func (h *Hooks) SaveRejected(k string) { h.try(func() { h.inner.SaveRejected(k) }) }
