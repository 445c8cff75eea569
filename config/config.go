// Package config loads cache store definitions with viper.
//
//	cache:
//	  default: main
//	  namespace: app
//	  stores:
//	    main:  { driver: redis, host: 10.0.0.5 }
//	    local: { driver: apc, max_items: 100000 }
//	    disk:  { driver: file, path: /var/cache/app, namespace: disk }
//
// Store names are case-insensitive (viper lower-cases keys).
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	KeyDefault   = "cache.default"
	KeyNamespace = "cache.namespace"
	KeyStores    = "cache.stores"
	// KeyOptions is the legacy name of KeyStores, read only when KeyStores is unset.
	KeyOptions = "cache.options"

	DefaultStore = "default"
	EnvPrefix    = "NSCACHE"
)

// ByteSize is a size in bytes. It decodes from integers or humanized strings
// such as "256MB" or "1 GiB".
type ByteSize uint64

// Server is one memcached node.
type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (s Server) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// Store is one named backend definition. Only the options of its Driver are read.
type Store struct {
	Driver    Driver `mapstructure:"driver"`
	Namespace string `mapstructure:"namespace"`
	// DefaultTTL applies to saves that pass ttl 0.
	DefaultTTL time.Duration `mapstructure:"default_ttl"`

	// redis, memcache
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	DB       int           `mapstructure:"db"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// memcached
	Servers        []Server `mapstructure:"servers"`
	MaxConnections int32    `mapstructure:"max_connections"`

	// file
	Path string `mapstructure:"path"`

	// mongodb
	Server     string `mapstructure:"server"`
	Name       string `mapstructure:"name"`
	Collection string `mapstructure:"collection"`
	TTLIndex   bool   `mapstructure:"ttl_index"`

	// minio
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Secure       bool   `mapstructure:"secure"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	CreateBucket bool   `mapstructure:"create_bucket"`

	// apc, bigcache
	MaxItems   int64         `mapstructure:"max_items"`
	MaxSize    ByteSize      `mapstructure:"max_size"`
	LifeWindow time.Duration `mapstructure:"life_window"`
}

type Config struct {
	Default   string
	Namespace string
	Stores    map[string]Store
}

// SetDefaults registers the top-level defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDefault, DefaultStore)
}

// ReadFile loads path (any format viper understands). Environment variables
// prefixed with NSCACHE_ override file values, e.g. NSCACHE_CACHE_DEFAULT.
func ReadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Load(v)
}

// Load decodes, normalizes and validates the cache section of v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	storesKey := KeyStores
	if !v.IsSet(KeyStores) && v.IsSet(KeyOptions) {
		storesKey = KeyOptions
	}

	cfg := &Config{
		Default:   strings.ToLower(v.GetString(KeyDefault)),
		Namespace: v.GetString(KeyNamespace),
		Stores:    map[string]Store{},
	}
	if err := v.UnmarshalKey(storesKey, &cfg.Stores, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", storesKey, err)
	}

	for name, s := range cfg.Stores {
		d, err := ParseDriver(string(s.Driver))
		if err != nil {
			return nil, fmt.Errorf("config: store %q: %w", name, err)
		}
		s.Driver = d
		if err := mergo.Merge(&s, driverDefaults(d)); err != nil {
			return nil, fmt.Errorf("config: store %q: %w", name, err)
		}
		cfg.Stores[name] = s
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

var byteSizeType = reflect.TypeOf(ByteSize(0))

func byteSizeHook(from, to reflect.Type, data any) (any, error) {
	if to != byteSizeType || from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return ByteSize(0), nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return nil, err
	}
	return ByteSize(n), nil
}

// driverDefaults holds option values used when a store leaves them unset.
func driverDefaults(d Driver) Store {
	switch d {
	case Redis:
		return Store{Host: "127.0.0.1", Port: 6379}
	case Memcache:
		return Store{Host: "127.0.0.1", Port: 11211}
	case Memcached:
		return Store{Servers: []Server{{Host: "127.0.0.1", Port: 11211}}}
	case APC:
		return Store{MaxItems: 1 << 16}
	case BigCache:
		return Store{LifeWindow: 24 * time.Hour}
	}
	return Store{}
}

// Validate checks that the default store exists and every store carries the
// options its driver requires.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := c.Stores[c.Default]; !ok && len(c.Stores) > 0 {
		errs = append(errs, fmt.Errorf("%w: default %q", ErrUnknownStore, c.Default))
	}
	for _, name := range c.Names() {
		s := c.Stores[name]
		if msg := s.missing(); msg != "" {
			errs = append(errs, &OptionError{Store: name, Driver: s.Driver, Msg: msg})
		}
	}
	return errors.Join(errs...)
}

func (s Store) missing() string {
	switch s.Driver {
	case File:
		if s.Path == "" {
			return `you must specify "path"`
		}
	case MongoDB:
		if s.Server == "" || s.Name == "" || s.Collection == "" {
			return `you must specify "server", "name" and "collection"`
		}
	case Minio:
		if s.Endpoint == "" || s.Bucket == "" {
			return `you must specify "endpoint" and "bucket"`
		}
	case Memcached:
		for _, srv := range s.Servers {
			if srv.Host == "" || srv.Port <= 0 {
				return `every entry of "servers" needs "host" and "port"`
			}
		}
	}
	return ""
}

// Store returns the named store definition.
func (c *Config) Store(name string) (Store, error) {
	s, ok := c.Stores[strings.ToLower(name)]
	if !ok {
		return Store{}, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}
	return s, nil
}

// NamespaceFor returns the namespace of a store: its own namespace when set,
// else the global one, else the store name.
func (c *Config) NamespaceFor(name string) string {
	name = strings.ToLower(name)
	if s, ok := c.Stores[name]; ok && s.Namespace != "" {
		return s.Namespace
	}
	if c.Namespace != "" {
		return c.Namespace
	}
	return name
}

// Names returns the store names in sorted order.
func (c *Config) Names() []string {
	out := make([]string, 0, len(c.Stores))
	for name := range c.Stores {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
