package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return Load(v)
}

const full = `
cache:
  default: Main
  namespace: app
  stores:
    main:
      driver: redis
      db: 2
    mc:
      driver: memcached
      servers:
        - { host: 10.0.0.1, port: 11211 }
        - { host: 10.0.0.2, port: 11212 }
    single:
      driver: Memcache
    disk:
      driver: filesystem
      path: /var/cache/app
      namespace: files
    docs:
      driver: mongodb
      server: mongodb://localhost
      name: cache
      collection: entries
    local:
      driver: array
    shared:
      driver: apcu
      max_size: 256MB
    big:
      driver: bigcache
      max_size: 1 GiB
      life_window: 10m
      default_ttl: 30s
    blobs:
      driver: minio
      endpoint: localhost:9000
      bucket: cache
`

func TestLoadFull(t *testing.T) {
	cfg, err := load(t, full)
	require.NoError(t, err)

	require.Equal(t, "main", cfg.Default)
	require.Equal(t, []string{"big", "blobs", "disk", "docs", "local", "main", "mc", "shared", "single"}, cfg.Names())

	main, err := cfg.Store("MAIN")
	require.NoError(t, err)
	require.Equal(t, Redis, main.Driver)
	require.Equal(t, "127.0.0.1", main.Host)
	require.Equal(t, 6379, main.Port)
	require.Equal(t, 2, main.DB)

	single := cfg.Stores["single"]
	require.Equal(t, Memcache, single.Driver)
	require.Equal(t, "127.0.0.1", single.Host)
	require.Equal(t, 11211, single.Port)

	mc := cfg.Stores["mc"]
	require.Len(t, mc.Servers, 2)
	require.Equal(t, "10.0.0.2:11212", mc.Servers[1].Addr())

	require.Equal(t, File, cfg.Stores["disk"].Driver)
	require.Equal(t, APC, cfg.Stores["shared"].Driver)
	require.Equal(t, ByteSize(256_000_000), cfg.Stores["shared"].MaxSize)

	big := cfg.Stores["big"]
	require.Equal(t, ByteSize(1<<30), big.MaxSize)
	require.Equal(t, 10*time.Minute, big.LifeWindow)
	require.Equal(t, 30*time.Second, big.DefaultTTL)
}

func TestNamespaceMerge(t *testing.T) {
	cfg, err := load(t, full)
	require.NoError(t, err)
	require.Equal(t, "files", cfg.NamespaceFor("disk"))
	require.Equal(t, "app", cfg.NamespaceFor("main"))

	cfg.Namespace = ""
	require.Equal(t, "main", cfg.NamespaceFor("Main"))
}

func TestLegacyOptionsKey(t *testing.T) {
	cfg, err := load(t, `
cache:
  options:
    default:
      driver: array
`)
	require.NoError(t, err)
	require.Equal(t, DefaultStore, cfg.Default)
	require.Equal(t, Array, cfg.Stores["default"].Driver)
}

func TestUnknownDriver(t *testing.T) {
	_, err := load(t, `
cache:
  stores:
    default:
      driver: couchbase
`)
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestUnknownDefaultStore(t *testing.T) {
	_, err := load(t, `
cache:
  default: nope
  stores:
    main:
      driver: array
`)
	require.ErrorIs(t, err, ErrUnknownStore)

	cfg, err := load(t, `
cache:
  default: main
  stores:
    main:
      driver: array
`)
	require.NoError(t, err)
	_, err = cfg.Store("other")
	require.ErrorIs(t, err, ErrUnknownStore)
}

func TestMissingOptions(t *testing.T) {
	_, err := load(t, `
cache:
  default: disk
  stores:
    disk:
      driver: file
    docs:
      driver: mongodb
      server: mongodb://localhost
`)
	require.Error(t, err)

	var oe *OptionError
	require.True(t, errors.As(err, &oe))
	require.Equal(t, "disk", oe.Store)
	require.Equal(t, File, oe.Driver)
	require.Contains(t, err.Error(), `"path"`)
	require.Contains(t, err.Error(), `"server", "name" and "collection"`)
}

func TestBadByteSize(t *testing.T) {
	_, err := load(t, `
cache:
  stores:
    default:
      driver: bigcache
      max_size: lots
`)
	require.Error(t, err)
}

func TestParseDriver(t *testing.T) {
	for in, want := range map[string]Driver{
		"array": Array, " APC ": APC, "xcache": APC, "apcu": APC,
		"redis": Redis, "mongo": MongoDB, "s3": Minio, "memcached": Memcached,
	} {
		got, err := ParseDriver(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseDriver("")
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestReadFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(full), 0o644))

	t.Setenv("NSCACHE_CACHE_DEFAULT", "local")
	cfg, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Default)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
