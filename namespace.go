package nscache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/unkn0wn-root/nscache/backend"
	c "github.com/unkn0wn-root/nscache/codec"
)

const firstVersion uint64 = 1

// VersionKey is the backend key holding the version of namespace. It lives in the
// unnamespaced keyspace.
func VersionKey(namespace string) string {
	return "CacheNamespaceVersion[" + namespace + "]"
}

// NamespacedKey is the backend key of key within namespace at version.
func NamespacedKey(namespace, key string, version uint64) string {
	return namespace + "[" + key + "][" + strconv.FormatUint(version, 10) + "]"
}

type cache[V any] struct {
	ns           string
	backend      backend.Backend
	codec        c.Codec[V]
	log          Logger
	hooks        Hooks
	defaultTTL   time.Duration
	closeBackend bool

	// lazily loaded, then sticky; only IncrementNamespaceVersion changes it
	mu      sync.Mutex
	version uint64
	loaded  bool
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("nscache: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("nscache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("nscache: namespace is required")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("nscache: negative default ttl %v", opts.DefaultTTL)
	}

	return &cache[V]{
		ns:           opts.Namespace,
		backend:      opts.Backend,
		codec:        opts.Codec,
		log:          coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:        coalesce[Hooks](opts.Hooks, NopHooks{}),
		defaultTTL:   opts.DefaultTTL,
		closeBackend: opts.CloseBackend,
	}, nil
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func (c *cache[V]) Namespace() string { return c.ns }

func (c *cache[V]) Close(ctx context.Context) error {
	if c.closeBackend {
		return c.backend.Close(ctx)
	}
	return nil
}

func (c *cache[V]) Contains(ctx context.Context, key string) (bool, error) {
	k, err := c.storageKey(ctx, key)
	if err != nil {
		return false, err
	}
	return c.backend.Contains(ctx, k)
}

func (c *cache[V]) Fetch(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k, err := c.storageKey(ctx, key)
	if err != nil {
		return zero, false, err
	}
	raw, ok, err := c.backend.Fetch(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		return zero, false, &DecodeError{StorageKey: k, Err: err}
	}
	return v, true, nil
}

func (c *cache[V]) Save(ctx context.Context, key string, value V, ttl time.Duration) (bool, error) {
	switch {
	case ttl == 0:
		ttl = c.defaultTTL
	case ttl < 0:
		ttl = 0
	}
	k, err := c.storageKey(ctx, key)
	if err != nil {
		return false, err
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		return false, err
	}
	ok, err := c.backend.Save(ctx, k, payload, ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		c.log.Debug("save rejected by backend", Fields{"key": k})
		c.hooks.SaveRejected(k)
	}
	return ok, nil
}

func (c *cache[V]) Delete(ctx context.Context, key string) (bool, error) {
	k, err := c.storageKey(ctx, key)
	if err != nil {
		return false, err
	}
	return c.backend.Delete(ctx, k)
}

// Remember returns the computed value together with a Save error, so a caller
// can still serve it when only the write failed.
func (c *cache[V]) Remember(ctx context.Context, key string, produce Producer[V], ttl time.Duration) (V, error) {
	var zero V
	if produce == nil {
		return zero, ErrNilProducer
	}
	ok, err := c.Contains(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		v, hit, err := c.Fetch(ctx, key)
		if err != nil {
			return zero, err
		}
		if hit {
			return v, nil
		}
		// expired between Contains and Fetch; compute
	}

	v, err := produce(ctx)
	if err != nil {
		c.hooks.ProducerFailed(c.ns, key, err)
		return zero, err
	}
	if _, err := c.Save(ctx, key, v, ttl); err != nil {
		return v, err
	}
	c.log.Debug("remember computed", Fields{"ns": c.ns, "key": key})
	c.hooks.RememberComputed(c.ns, key)
	return v, nil
}

// IncrementNamespaceVersion bumps the in-memory version, then overwrites the
// persisted one. This is a read-then-write, not an atomic increment: racing
// instances may each write the same next version. If the write fails the
// in-memory bump is kept, so this instance stops addressing old entries either way.
func (c *cache[V]) IncrementNamespaceVersion(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.loadVersionLocked(ctx)
	if err != nil {
		return err
	}
	next := cur + 1
	c.version = next

	vk := VersionKey(c.ns)
	ok, err := c.backend.Save(ctx, vk, formatVersion(next), 0)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Warn("namespace version write rejected by backend", Fields{"ns": c.ns, "version": next})
		c.hooks.SaveRejected(vk)
	}
	c.log.Debug("namespace version bumped", Fields{"ns": c.ns, "from": cur, "to": next})
	c.hooks.VersionBumped(c.ns, cur, next)
	return nil
}

func (c *cache[V]) storageKey(ctx context.Context, key string) (string, error) {
	v, err := c.currentVersion(ctx)
	if err != nil {
		return "", err
	}
	return NamespacedKey(c.ns, key, v), nil
}

func (c *cache[V]) currentVersion(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadVersionLocked(ctx)
}

// loadVersionLocked requires c.mu. The backend is consulted at most once per
// successful load.
func (c *cache[V]) loadVersionLocked(ctx context.Context) (uint64, error) {
	if c.loaded {
		return c.version, nil
	}
	vk := VersionKey(c.ns)
	raw, ok, err := c.backend.Fetch(ctx, vk)
	if err != nil {
		return 0, err
	}
	if !ok {
		saved, err := c.backend.Save(ctx, vk, formatVersion(firstVersion), 0)
		if err != nil {
			return 0, err
		}
		if !saved {
			c.log.Warn("namespace version write rejected by backend", Fields{"ns": c.ns, "version": firstVersion})
			c.hooks.SaveRejected(vk)
		}
		c.version, c.loaded = firstVersion, true
		c.log.Debug("namespace version initialized", Fields{"ns": c.ns, "version": firstVersion})
		c.hooks.VersionInitialized(c.ns, firstVersion)
		return firstVersion, nil
	}

	v, err := parseVersion(raw)
	if err != nil {
		return 0, &VersionError{Namespace: c.ns, Key: vk, Raw: raw, Err: err}
	}
	c.version, c.loaded = v, true
	c.log.Debug("namespace version loaded", Fields{"ns": c.ns, "version": v})
	c.hooks.VersionLoaded(c.ns, v)
	return v, nil
}

func formatVersion(v uint64) []byte { return strconv.AppendUint(nil, v, 10) }

func parseVersion(raw []byte) (uint64, error) {
	return strconv.ParseUint(string(raw), 10, 64)
}
