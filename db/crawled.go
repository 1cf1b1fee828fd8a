package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const crawledCollection = "crawled_forms"

// CrawledDocument is one dedup record per (url, content hash) pair. Records
// are created once per new hash and never deleted; re-fetches that match an
// existing hash only refresh LastCheckedAt.
type CrawledDocument struct {
	URL           string    `bson:"url" json:"url"`
	ContentHash   string    `bson:"content_hash" json:"content_hash"`
	BlobKey       string    `bson:"blob_key" json:"blob_key"`
	Bucket        string    `bson:"bucket" json:"bucket"`
	ByteSize      int64     `bson:"byte_size" json:"byte_size"`
	Format        string    `bson:"format" json:"format"`
	SourceLabel   string    `bson:"source_label,omitempty" json:"source_label,omitempty"`
	CrawledAt     time.Time `bson:"crawled_at" json:"crawled_at"`
	LastCheckedAt time.Time `bson:"last_checked_at" json:"last_checked_at"`
}

// CrawledRepo persists CrawledDocument records.
type CrawledRepo struct {
	col *mongo.Collection
}

// Find looks up the record for (url, contentHash). Returns ErrNotFound when
// the hash has not been seen for this url.
func (r *CrawledRepo) Find(ctx context.Context, url, contentHash string) (*CrawledDocument, error) {
	var doc CrawledDocument
	err := r.col.FindOne(ctx, bson.M{"url": url, "content_hash": contentHash}).Decode(&doc)
	if err != nil {
		return nil, wrapMongoErr(err)
	}
	return &doc, nil
}

// Insert creates a new dedup record. The unique (url, content_hash) index
// makes concurrent duplicate inserts fail with ErrDuplicate.
func (r *CrawledRepo) Insert(ctx context.Context, doc *CrawledDocument) error {
	_, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert crawled document: %w", wrapMongoErr(err))
	}
	return nil
}

// Touch refreshes LastCheckedAt for an existing (url, contentHash) record.
func (r *CrawledRepo) Touch(ctx context.Context, url, contentHash string, when time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"url": url, "content_hash": contentHash},
		bson.M{"$set": bson.M{"last_checked_at": when}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch crawled document: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Recent lists crawled records newest first, up to limit.
func (r *CrawledRepo) Recent(ctx context.Context, limit int64) ([]CrawledDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "crawled_at", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawled documents: %w", err)
	}
	defer cur.Close(ctx)

	var docs []CrawledDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode crawled documents: %w", err)
	}
	return docs, nil
}
