// Package file is the filesystem driver. Each key is one file, addressed by the
// SHA-256 of the key under a two-level fan-out, holding a wire-framed entry.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/unkn0wn-root/nscache/backend"
	"github.com/unkn0wn-root/nscache/internal/keys"
	"github.com/unkn0wn-root/nscache/internal/wire"
)

const (
	dirMode  = 0o755
	tmpGlob  = ".tmp-*"
	fileMode = 0o644
)

// ErrNoPath mirrors the driver's configuration contract: the root directory
// must be given and must already exist.
var ErrNoPath = errors.New(`file: you must specify an existing "path" for the filesystem driver`)

type File struct {
	fs  *afero.Afero
	now func() time.Time
}

var _ backend.Backend = (*File)(nil)

type Config struct {
	Path string
	Fs   afero.Fs // nil => OS filesystem
}

func New(cfg Config) (*File, error) {
	root := cfg.Fs
	if root == nil {
		root = afero.NewOsFs()
	}
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	ok, err := afero.DirExists(root, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("file: stat %q: %w", cfg.Path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoPath, cfg.Path)
	}
	return &File{
		fs:  &afero.Afero{Fs: afero.NewBasePathFs(root, cfg.Path)},
		now: time.Now,
	}, nil
}

func pathFor(key string) string { return filepath.FromSlash(keys.FanOut(key)) }

func (p *File) load(key string) ([]byte, bool, error) {
	name := pathFor(key)
	raw, err := p.fs.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	e, err := wire.Decode(raw)
	if err != nil {
		_ = p.fs.Remove(name) // corrupt or partially written by a foreign writer
		return nil, false, nil
	}
	if e.Key != key {
		return nil, false, nil
	}
	if e.Expired(p.now()) {
		_ = p.fs.Remove(name)
		return nil, false, nil
	}
	return e.Payload, true, nil
}

func (p *File) Contains(_ context.Context, key string) (bool, error) {
	_, ok, err := p.load(key)
	return ok, err
}

func (p *File) Fetch(_ context.Context, key string) ([]byte, bool, error) {
	return p.load(key)
}

// Save writes to a temp file in the target directory and renames it into place
// so readers never observe a partial entry.
func (p *File) Save(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	b, err := wire.Encode(wire.Entry{Key: key, ExpiresAt: wire.Deadline(p.now(), ttl), Payload: value})
	if err != nil {
		return false, err
	}
	name := pathFor(key)
	dir := filepath.Dir(name)
	if err := p.fs.MkdirAll(dir, dirMode); err != nil {
		return false, err
	}
	tmp, err := p.fs.TempFile(dir, tmpGlob)
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = p.fs.Remove(tmpName)
		return false, err
	}
	if err := tmp.Close(); err != nil {
		_ = p.fs.Remove(tmpName)
		return false, err
	}
	_ = p.fs.Chmod(tmpName, fileMode)
	if err := p.fs.Rename(tmpName, name); err != nil {
		_ = p.fs.Remove(tmpName)
		return false, err
	}
	return true, nil
}

func (p *File) Delete(_ context.Context, key string) (bool, error) {
	err := p.fs.Remove(pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Sweep removes expired and unreadable entries. Entries are never expired
// eagerly otherwise, and superseded namespace versions are only reclaimed here
// once their TTL has passed.
func (p *File) Sweep(ctx context.Context) (removed int, err error) {
	now := p.now()
	err = p.fs.Walk(string(filepath.Separator), func(name string, info os.FileInfo, werr error) error {
		if werr != nil {
			return werr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		// in-flight Save
		if ok, _ := filepath.Match(tmpGlob, info.Name()); ok {
			return nil
		}
		raw, err := p.fs.ReadFile(name)
		if err != nil {
			return err
		}
		if e, err := wire.Decode(raw); err == nil && !e.Expired(now) {
			return nil
		}
		if err := p.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

func (p *File) Close(_ context.Context) error { return nil }
