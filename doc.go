// Package nscache provides non-conflicting, version-invalidatable access to a shared
// cache backend (Redis, memcache, files, MongoDB, in-process stores, ...).
//
// Components:
//   - Backend: string-keyed byte store with TTL (see package backend and its drivers).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Cache[V]: the namespaced view. Every key is rewritten before it reaches the backend.
//
// Keys:
//
//	<ns>[<key>][<version>]          - entries
//	CacheNamespaceVersion[<ns>]     - the namespace version (base-10 integer, no TTL)
//
// The version is read lazily on first use and then kept in memory. Bumping it makes
// every existing entry of the namespace unreachable without deleting anything:
//
//	users, _ := nscache.New[User](nscache.Options[User]{Namespace: "users", Backend: b, Codec: codec.JSON[User]{}})
//	u, err := users.Remember(ctx, "42", loadUser, time.Hour)
//	_ = users.IncrementNamespaceVersion(ctx) // drop all cached users at once
//
// Instances do not coordinate. Concurrent increments from different processes may
// collapse into one (last write wins) and concurrent Remember calls on a miss may
// all run their producer.
package nscache
