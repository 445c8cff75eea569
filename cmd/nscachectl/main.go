// Command nscachectl inspects and edits namespaced cache entries of the stores
// declared in a config file.
//
//	nscachectl -config cache.yaml [-store name] [-namespace ns] [-debug] <command> [args]
//
// Commands:
//
//	get <key>                 print the value of key
//	set <key> <value> [ttl]   store value; ttl is a Go duration, e.g. 10m
//	del <key>                 delete key
//	has <key>                 exit 0 if key is cached, 1 otherwise
//	bump                      increment the namespace version
//	version                   print the persisted namespace version
//	sweep                     remove expired entries (file stores only)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/nscache"
	"github.com/unkn0wn-root/nscache/backend"
	"github.com/unkn0wn-root/nscache/codec"
	"github.com/unkn0wn-root/nscache/config"
	zaplog "github.com/unkn0wn-root/nscache/log/zap"
	"github.com/unkn0wn-root/nscache/manager"
)

const (
	exitOK    = 0
	exitErr   = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

// errMiss is returned by get and has when the key is not cached.
var errMiss = errors.New("not cached")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	config    string
	store     string
	namespace string
	debug     bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var o options
	fs := flag.NewFlagSet("nscachectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.config, "config", "cache.yaml", "config file")
	fs.StringVar(&o.store, "store", "", "store name (default: the configured default store)")
	fs.StringVar(&o.namespace, "namespace", "", "namespace override")
	fs.BoolVar(&o.debug, "debug", false, "development logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: nscachectl [flags] get|set|del|has|bump|version|sweep [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	logger := newLogger(o.debug, stderr)
	defer func() { _ = logger.Sync() }()

	err := execute(ctx, o, fs.Args(), stdout, logger)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fs.Usage()
		return exitUsage
	case errors.Is(err, errMiss):
		return exitErr
	default:
		logger.Error("command failed", zap.String("command", fs.Arg(0)), zap.Error(err))
		return exitErr
	}
}

func newLogger(debug bool, w io.Writer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	level := zapcore.InfoLevel
	if debug {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

func execute(ctx context.Context, o options, args []string, stdout io.Writer, logger *zap.Logger) error {
	cfg, err := config.ReadFile(o.config)
	if err != nil {
		return err
	}
	if o.namespace != "" {
		name := o.store
		if name == "" {
			name = cfg.Default
		}
		st, err := cfg.Store(name)
		if err != nil {
			return err
		}
		st.Namespace = o.namespace
		cfg.Stores[strings.ToLower(name)] = st
	}

	m := manager.New(cfg, manager.WithLogger(zaplog.New(logger)))
	defer func() {
		if err := m.Close(context.Background()); err != nil {
			logger.Warn("close stores", zap.Error(err))
		}
	}()

	cache, err := manager.Namespaced[string](ctx, m, o.store, codec.String{})
	if err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "get":
		if len(rest) != 1 {
			return errUsage
		}
		v, ok, err := cache.Fetch(ctx, rest[0])
		if err != nil {
			return err
		}
		if !ok {
			return errMiss
		}
		fmt.Fprintln(stdout, v)

	case "set":
		if len(rest) < 2 || len(rest) > 3 {
			return errUsage
		}
		var ttl time.Duration
		if len(rest) == 3 {
			if ttl, err = time.ParseDuration(rest[2]); err != nil || ttl < 0 {
				return fmt.Errorf("%w: bad ttl %q", errUsage, rest[2])
			}
		}
		ok, err := cache.Save(ctx, rest[0], rest[1], ttl)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("store rejected %q", rest[0])
		}

	case "del":
		if len(rest) != 1 {
			return errUsage
		}
		ok, err := cache.Delete(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, ok)

	case "has":
		if len(rest) != 1 {
			return errUsage
		}
		ok, err := cache.Contains(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, ok)
		if !ok {
			return errMiss
		}

	case "bump":
		if len(rest) != 0 {
			return errUsage
		}
		if err := cache.IncrementNamespaceVersion(ctx); err != nil {
			return err
		}
		logger.Info("namespace version bumped", zap.String("namespace", cache.Namespace()))

	case "version":
		if len(rest) != 0 {
			return errUsage
		}
		return printVersion(ctx, m, o.store, cache.Namespace(), stdout)

	case "sweep":
		if len(rest) != 0 {
			return errUsage
		}
		return sweep(ctx, m, o.store, stdout)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}

// printVersion reads the version key directly so it reports what other
// instances will load, not a value cached in this process.
func printVersion(ctx context.Context, m *manager.Manager, store, ns string, stdout io.Writer) error {
	b, err := backendFor(ctx, m, store)
	if err != nil {
		return err
	}
	raw, ok, err := b.Fetch(ctx, nscache.VersionKey(ns))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(stdout, "unset")
		return nil
	}
	fmt.Fprintln(stdout, string(raw))
	return nil
}

type sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

func sweep(ctx context.Context, m *manager.Manager, store string, stdout io.Writer) error {
	b, err := backendFor(ctx, m, store)
	if err != nil {
		return err
	}
	s, ok := b.(sweeper)
	if !ok {
		return fmt.Errorf("store %q does not support sweep", store)
	}
	n, err := s.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "removed %d\n", n)
	return nil
}

func backendFor(ctx context.Context, m *manager.Manager, store string) (backend.Backend, error) {
	if store == "" {
		return m.Default(ctx)
	}
	return m.Backend(ctx, store)
}
