package config

import (
	"fmt"
	"strings"
)

// Driver names a backend implementation.
type Driver string

const (
	Array     Driver = "array"     // in-process map (backend/memory)
	APC       Driver = "apc"       // shared in-process cache (backend/ristretto)
	BigCache  Driver = "bigcache"  // backend/bigcache
	File      Driver = "file"      // backend/file
	Redis     Driver = "redis"     // backend/redis
	Memcache  Driver = "memcache"  // single server, backend/memcache
	Memcached Driver = "memcached" // sharded pool, backend/memcached
	MongoDB   Driver = "mongodb"   // backend/mongodb
	Minio     Driver = "minio"     // S3-compatible object storage, backend/minio
)

var drivers = map[string]Driver{
	"array":      Array,
	"apc":        APC,
	"apcu":       APC,
	"xcache":     APC,
	"ristretto":  APC,
	"bigcache":   BigCache,
	"file":       File,
	"filesystem": File,
	"redis":      Redis,
	"memcache":   Memcache,
	"memcached":  Memcached,
	"mongodb":    MongoDB,
	"mongo":      MongoDB,
	"minio":      Minio,
	"s3":         Minio,
}

// ParseDriver resolves a driver name or alias, ignoring case and surrounding
// spaces.
func ParseDriver(s string) (Driver, error) {
	d, ok := drivers[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDriver, s)
	}
	return d, nil
}

func (d Driver) String() string { return string(d) }
