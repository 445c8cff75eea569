// Package minio stores cache entries as objects in an S3-compatible bucket.
// Objects hold wire-framed entries so per-entry TTL survives the round trip.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/unkn0wn-root/nscache/backend"
	"github.com/unkn0wn-root/nscache/internal/keys"
	"github.com/unkn0wn-root/nscache/internal/wire"
)

var ErrNoBucket = errors.New(`minio: you must specify "bucket"`)

type Minio struct {
	client *minio.Client
	bucket string
	prefix string
	now    func() time.Time
}

var _ backend.Backend = (*Minio)(nil)

type Config struct {
	Client *minio.Client // used as is when set

	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool

	Bucket       string
	Prefix       string // prepended to every object name, e.g. "cache/"
	CreateBucket bool
}

func New(ctx context.Context, cfg Config) (*Minio, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	client := cfg.Client
	if client == nil {
		if cfg.Endpoint == "" {
			return nil, backend.ErrNilClient
		}
		c, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("minio: client: %w", err)
		}
		client = c
	}
	if cfg.CreateBucket {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, err
			}
		}
	}
	return &Minio{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, now: time.Now}, nil
}

func (s *Minio) object(key string) string {
	return path.Join(s.prefix, keys.FanOut(key))
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *Minio) load(ctx context.Context, key string) ([]byte, bool, error) {
	name := s.object(key)
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	e, err := wire.Decode(raw)
	if err != nil || e.Key != key {
		return nil, false, nil
	}
	if e.Expired(s.now()) {
		_ = s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
		return nil, false, nil
	}
	return e.Payload, true, nil
}

func (s *Minio) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.load(ctx, key)
	return ok, err
}

func (s *Minio) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	return s.load(ctx, key)
}

func (s *Minio) Save(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	b, err := wire.Encode(wire.Entry{Key: key, ExpiresAt: wire.Deadline(s.now(), ttl), Payload: value})
	if err != nil {
		return false, err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.object(key), bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete stats the object first: RemoveObject succeeds for absent objects.
func (s *Minio) Delete(ctx context.Context, key string) (bool, error) {
	name := s.object(key)
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Minio) Close(context.Context) error { return nil }
