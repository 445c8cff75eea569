package manager

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nscache/backend"
	"github.com/unkn0wn-root/nscache/backend/bigcache"
	"github.com/unkn0wn-root/nscache/backend/file"
	"github.com/unkn0wn-root/nscache/backend/memcache"
	"github.com/unkn0wn-root/nscache/backend/memcached"
	"github.com/unkn0wn-root/nscache/backend/memory"
	"github.com/unkn0wn-root/nscache/backend/minio"
	"github.com/unkn0wn-root/nscache/backend/mongodb"
	"github.com/unkn0wn-root/nscache/backend/redis"
	"github.com/unkn0wn-root/nscache/backend/ristretto"
	"github.com/unkn0wn-root/nscache/config"
)

func (m *Manager) build(ctx context.Context, st config.Store) (backend.Backend, error) {
	switch st.Driver {
	case config.Array:
		return memory.New(), nil

	case config.APC:
		rc := ristretto.DefaultConfig(st.MaxItems)
		if st.MaxSize > 0 {
			// weigh entries by size; MaxItems still sizes the admission counters
			rc.MaxCost = int64(st.MaxSize)
			rc.Cost = func(key string, value []byte) int64 { return int64(len(key) + len(value)) }
		}
		return ristretto.New(rc)

	case config.BigCache:
		return bigcache.New(ctx, bigcache.Config{
			LifeWindow:         st.LifeWindow,
			MaxEntriesInWindow: int(st.MaxItems),
			HardMaxCacheSizeMB: int(st.MaxSize >> 20),
		})

	case config.File:
		return file.New(file.Config{Path: st.Path, Fs: m.fs})

	case config.Redis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:        hostPort(st.Host, st.Port),
			Password:    st.Password,
			DB:          st.DB,
			DialTimeout: st.Timeout,
			ReadTimeout: st.Timeout,
		})
		return redis.New(redis.Config{Client: rdb, CloseClient: true})

	case config.Memcache:
		return memcache.New(memcache.Config{Host: st.Host, Port: st.Port, Timeout: st.Timeout})

	case config.Memcached:
		addrs := make([]string, 0, len(st.Servers))
		for _, s := range st.Servers {
			addrs = append(addrs, s.Addr())
		}
		return memcached.New(memcached.Config{
			Servers:              addrs,
			MaxActiveConnections: st.MaxConnections,
			ReadTimeout:          st.Timeout,
			WriteTimeout:         st.Timeout,
		})

	case config.MongoDB:
		return mongodb.New(ctx, mongodb.Config{
			Server:     st.Server,
			Name:       st.Name,
			Collection: st.Collection,
			TTLIndex:   st.TTLIndex,
		})

	case config.Minio:
		return minio.New(ctx, minio.Config{
			Endpoint:     st.Endpoint,
			AccessKey:    st.AccessKey,
			SecretKey:    st.SecretKey,
			Secure:       st.Secure,
			Bucket:       st.Bucket,
			Prefix:       st.Prefix,
			CreateBucket: st.CreateBucket,
		})
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, st.Driver)
}
