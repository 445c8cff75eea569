// Package manager opens the stores declared in a config.Config and hands out
// namespaced caches over them.
//
//	cfg, _ := config.ReadFile("cache.yaml")
//	m := manager.New(cfg, manager.WithLogger(zaplog.New(logger)))
//	defer m.Close(ctx)
//
//	users, _ := manager.Namespaced[User](ctx, m, "main", codec.JSON[User]{})
//
// Stores are opened on first use and shared by every cache built on them.
package manager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/nscache"
	"github.com/unkn0wn-root/nscache/backend"
	c "github.com/unkn0wn-root/nscache/codec"
	"github.com/unkn0wn-root/nscache/config"
)

type Manager struct {
	cfg *config.Config
	log nscache.Logger
	fs  afero.Fs

	open   singleflight.Group
	mu     sync.Mutex
	stores map[string]backend.Backend
	closed bool
}

type Option func(*Manager)

// WithLogger sets the logger used by the manager and by caches from Namespaced.
func WithLogger(l nscache.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithFs sets the filesystem file stores are rooted in. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) {
		if fs != nil {
			m.fs = fs
		}
	}
}

var ErrClosed = errors.New("manager: closed")

func New(cfg *config.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		log:    nscache.NopLogger{},
		fs:     afero.NewOsFs(),
		stores: make(map[string]backend.Backend),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Config() *config.Config { return m.cfg }

// Default returns the backend of the configured default store.
func (m *Manager) Default(ctx context.Context) (backend.Backend, error) {
	return m.Backend(ctx, m.cfg.Default)
}

// Backend returns the named store, opening it on first use. Concurrent first
// calls share one open.
func (m *Manager) Backend(ctx context.Context, name string) (backend.Backend, error) {
	name = strings.ToLower(name)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if b, ok := m.stores[name]; ok {
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	st, err := m.cfg.Store(name)
	if err != nil {
		return nil, err
	}

	v, err, _ := m.open.Do(name, func() (any, error) {
		m.mu.Lock()
		if b, ok := m.stores[name]; ok {
			m.mu.Unlock()
			return b, nil
		}
		m.mu.Unlock()

		b, err := m.build(ctx, st)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			_ = b.Close(ctx)
			return nil, ErrClosed
		}
		m.stores[name] = b
		m.log.Info("cache store opened", nscache.Fields{"store": name, "driver": st.Driver.String()})
		return b, nil
	})
	if err != nil {
		m.log.Error("cache store open failed", nscache.Fields{"store": name, "driver": st.Driver.String(), "err": err})
		return nil, fmt.Errorf("manager: store %q: %w", name, err)
	}
	return v.(backend.Backend), nil
}

// Warm opens every configured store concurrently and returns the first error.
func (m *Manager) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range m.cfg.Names() {
		name := name
		g.Go(func() error {
			_, err := m.Backend(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// Close closes every opened store concurrently. Errors are joined. The manager
// cannot be used afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	stores := m.stores
	m.stores = map[string]backend.Backend{}
	m.mu.Unlock()

	var (
		g    errgroup.Group
		emu  sync.Mutex
		errs []error
	)
	for name, b := range stores {
		name, b := name, b
		g.Go(func() error {
			if err := b.Close(ctx); err != nil {
				emu.Lock()
				errs = append(errs, fmt.Errorf("manager: close %q: %w", name, err))
				emu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Namespaced returns a cache over store using the namespace configured for it.
// The cache does not own the backend; close the Manager instead.
func Namespaced[V any](ctx context.Context, m *Manager, store string, codec c.Codec[V]) (nscache.Cache[V], error) {
	if store == "" {
		store = m.cfg.Default
	}
	b, err := m.Backend(ctx, store)
	if err != nil {
		return nil, err
	}
	st, err := m.cfg.Store(store)
	if err != nil {
		return nil, err
	}
	return nscache.New[V](nscache.Options[V]{
		Namespace:  m.cfg.NamespaceFor(store),
		Backend:    b,
		Codec:      codec,
		Logger:     m.log,
		DefaultTTL: st.DefaultTTL,
	})
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
