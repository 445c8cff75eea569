// Package backend defines the storage contract consumed by nscache.
//
// Implementations MUST be byte-for-byte transparent: Fetch must return exactly the
// bytes previously passed to Save for a key. Stores that frame values internally
// (e.g. to carry an expiry) must strip that framing before returning.
//
// Keys are opaque strings and MUST NOT be truncated or reinterpreted. A store whose
// native key syntax is restricted may map a key through a deterministic digest, but
// two distinct keys must never address the same entry.
//
// The key "CacheNamespaceVersion[<namespace>]" and every key of the form
// "<namespace>[<key>][<version>]" are owned by nscache when a namespace is in use.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrNilClient is returned by constructors that wrap an externally created client.
var ErrNilClient = errors.New("backend: nil client")

// Backend is a string-keyed byte store with optional TTLs.
// Must be safe for concurrent use.
type Backend interface {
	// Contains reports whether a live entry exists for key.
	Contains(ctx context.Context, key string) (bool, error)

	// Fetch returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Fetch(ctx context.Context, key string) ([]byte, bool, error)

	// Save stores value with the given TTL. ttl<=0 means no expiration.
	// Returns ok=false when the store refused the write (pressure, admission).
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Delete removes key. ok reports whether the store removed something; stores
	// that cannot tell report true on success.
	Delete(ctx context.Context, key string) (ok bool, err error)

	// Close releases resources.
	Close(ctx context.Context) error
}
