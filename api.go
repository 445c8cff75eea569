package nscache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/nscache/backend"
	c "github.com/unkn0wn-root/nscache/codec"
)

// NoExpiration passed as a ttl stores the entry without expiry even when
// Options.DefaultTTL is set.
const NoExpiration time.Duration = -1

// Producer computes a value on a Remember miss.
type Producer[V any] func(ctx context.Context) (V, error)

// Cache is a namespaced, version-invalidatable view over a Backend.
// V is the caller's value type. Serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	Namespace() string

	Contains(ctx context.Context, key string) (bool, error)
	// Fetch returns ok=false on a miss.
	Fetch(ctx context.Context, key string) (v V, ok bool, err error)
	// Save returns the backend's acceptance of the write. ttl 0 => DefaultTTL,
	// NoExpiration (any negative ttl) => no expiry.
	Save(ctx context.Context, key string, value V, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)

	// Remember returns the cached value for key, or runs produce once, saves the
	// result with ttl and returns it. A producer error is returned as is and
	// nothing is written.
	Remember(ctx context.Context, key string, produce Producer[V], ttl time.Duration) (V, error)

	// IncrementNamespaceVersion makes every entry written so far unreachable.
	IncrementNamespaceVersion(ctx context.Context) error

	Close(context.Context) error
}

// Options configure a Cache.
// Namespace, Backend and Codec are required.
type Options[V any] struct {
	// Required
	Namespace string // e.g. "users", "app:prod:orders"
	Backend   backend.Backend
	Codec     c.Codec[V]

	Logger       Logger        // if nil, NopLogger is used
	Hooks        Hooks         // if nil, NopHooks is used
	DefaultTTL   time.Duration // used when a call passes ttl 0; 0 => no expiration. Pass NoExpiration to opt out per call
	CloseBackend bool          // Close also closes Backend
}

func New[V any](opts Options[V]) (Cache[V], error) {
	cc, err := newCache[V](opts)
	if err != nil {
		return nil, err
	}
	return cc, nil
}
