// Package db provides the metadata store adapter backed by MongoDB. It owns
// the crawled_forms dedup collection and the forms schema collection.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/config"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("db: not found")

// ErrDuplicate is returned when a unique index rejects an insert. Callers
// racing on the same (url, content_hash) observe the loser as this error.
var ErrDuplicate = errors.New("db: duplicate key")

// Store wraps a Mongo database and exposes the typed repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a Mongo connection, pings it and ensures the indexes the
// adapters rely on.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	store := &Store{client: client, db: client.Database(cfg.Database)}
	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	common.Logger.WithField("database", cfg.Database).Info("connected to mongo")
	return store, nil
}

// ensureIndexes creates the unique dedup index and the recency index on the
// crawled collection, and the primary form_id index on forms.
func (s *Store) ensureIndexes(ctx context.Context) error {
	crawled := s.db.Collection(crawledCollection)
	_, err := crawled.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}, {Key: "content_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "crawled_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create crawled_forms indexes: %w", err)
	}

	formsCol := s.db.Collection(formsCollection)
	_, err = formsCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "form_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create forms index: %w", err)
	}
	return nil
}

// Crawled returns the dedup repository.
func (s *Store) Crawled() *CrawledRepo {
	return &CrawledRepo{col: s.db.Collection(crawledCollection)}
}

// Forms returns the schema repository.
func (s *Store) Forms() *FormsRepo {
	return &FormsRepo{col: s.db.Collection(formsCollection)}
}

// Close disconnects from Mongo.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func wrapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
