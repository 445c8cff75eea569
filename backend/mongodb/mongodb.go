// Package mongodb is the "mongodb" driver: one document per key in a single
// collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unkn0wn-root/nscache/backend"
)

// ErrMissingOptions mirrors the driver's configuration contract.
var ErrMissingOptions = errors.New(`mongodb: you must specify "server", "name" and "collection"`)

const fieldExpiresAt = "expires_at"

type document struct {
	ID        string     `bson:"_id"`
	Value     []byte     `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

func (d document) expired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

type MongoDB struct {
	coll   *mongo.Collection
	client *mongo.Client // non-nil when owned
	now    func() time.Time
}

var _ backend.Backend = (*MongoDB)(nil)

type Config struct {
	// Handle is used as is when set; the connection fields are ignored and
	// the client is not closed by Close.
	Handle *mongo.Collection

	Server     string // mongodb:// URI
	Name       string // database
	Collection string
	// TTLIndex creates an expireAfterSeconds index so the server reaps expired
	// documents in the background.
	TTLIndex bool
}

func New(ctx context.Context, cfg Config) (*MongoDB, error) {
	if cfg.Handle != nil {
		return &MongoDB{coll: cfg.Handle, now: time.Now}, nil
	}
	if cfg.Server == "" || cfg.Name == "" || cfg.Collection == "" {
		return nil, ErrMissingOptions
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Server))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	p := &MongoDB{
		coll:   client.Database(cfg.Name).Collection(cfg.Collection),
		client: client,
		now:    time.Now,
	}
	if cfg.TTLIndex {
		if err := p.EnsureTTLIndex(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
	}
	return p, nil
}

// EnsureTTLIndex creates the expiry index. Reads never depend on it.
func (p *MongoDB) EnsureTTLIndex(ctx context.Context) error {
	_, err := p.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: fieldExpiresAt, Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}

func (p *MongoDB) find(ctx context.Context, key string, opts ...*options.FindOneOptions) (document, bool, error) {
	var doc document
	err := p.coll.FindOne(ctx, bson.M{"_id": key}, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return document{}, false, nil
	}
	if err != nil {
		return document{}, false, err
	}
	if doc.expired(p.now()) {
		// only remove the exact expired document; a concurrent Save wins
		_, _ = p.coll.DeleteOne(ctx, bson.M{"_id": key, fieldExpiresAt: doc.ExpiresAt})
		return document{}, false, nil
	}
	return doc, true, nil
}

func (p *MongoDB) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.find(ctx, key, options.FindOne().SetProjection(bson.M{fieldExpiresAt: 1}))
	return ok, err
}

func (p *MongoDB) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	doc, ok, err := p.find(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if doc.Value == nil {
		return []byte{}, true, nil
	}
	return doc.Value, true, nil
}

func (p *MongoDB) Save(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	doc := document{ID: key, Value: value}
	if ttl > 0 {
		exp := p.now().Add(ttl)
		doc.ExpiresAt = &exp
	}
	_, err := p.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *MongoDB) Delete(ctx context.Context, key string) (bool, error) {
	res, err := p.coll.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// Close disconnects the client when this backend created it.
func (p *MongoDB) Close(ctx context.Context) error {
	if p.client == nil {
		return nil
	}
	err := p.client.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil
	}
	return err
}
