package crawler

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/config"
	"github.com/formvn/formbot/db"
	"github.com/formvn/formbot/queue"
	"github.com/formvn/formbot/storage"
)

// EventPublisher notifies the worker about newly stored documents.
type EventPublisher interface {
	PublishStorageEvent(event queue.StorageEvent) error
}

// DedupRepo is the slice of the metadata store the crawler needs.
// *db.CrawledRepo satisfies it; tests substitute an in-memory fake.
type DedupRepo interface {
	Find(ctx context.Context, url, contentHash string) (*db.CrawledDocument, error)
	Insert(ctx context.Context, doc *db.CrawledDocument) error
	Touch(ctx context.Context, url, contentHash string, when time.Time) error
}

// Stats are the per-cycle counters: documents uploaded for the first time,
// re-fetches that matched a known hash, and sources that failed.
type Stats struct {
	New     int `json:"new"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Crawler periodically fetches the configured sources and registers new
// document versions. Each source is its own transaction: upload then
// insert, or neither. A failed source never aborts the cycle.
type Crawler struct {
	sources   []config.CrawlerSource
	fetcher   *Fetcher
	store     *storage.ObjectStore
	repo      DedupRepo
	publisher EventPublisher
	interval  time.Duration
	log       *logrus.Entry
	now       func() time.Time
}

// New creates a crawler over the configured sources.
func New(cfg config.CrawlerConfig, store *storage.ObjectStore, repo DedupRepo, publisher EventPublisher) *Crawler {
	return &Crawler{
		sources:   cfg.Sources,
		fetcher:   NewFetcher(cfg.FetchTimeout),
		store:     store,
		repo:      repo,
		publisher: publisher,
		interval:  cfg.Interval,
		log:       common.ServiceLogger("crawler"),
		now:       time.Now,
	}
}

// RunLoop runs one cycle immediately, then one per interval until the
// context is cancelled.
func (c *Crawler) RunLoop(ctx context.Context) {
	c.logCycle(c.RunCycle(ctx))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("crawler stopped")
			return
		case <-ticker.C:
			c.logCycle(c.RunCycle(ctx))
		}
	}
}

func (c *Crawler) logCycle(stats Stats) {
	c.log.WithFields(logrus.Fields{
		"new":     stats.New,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
	}).Info("crawl cycle completed")
}

// RunCycle fetches every source once and returns the cycle counters.
func (c *Crawler) RunCycle(ctx context.Context) Stats {
	var stats Stats
	for _, source := range c.sources {
		switch err := c.crawlSource(ctx, source); {
		case err == nil:
			stats.New++
		case errors.Is(err, errUnchanged):
			stats.Skipped++
		default:
			stats.Failed++
			c.log.WithField("source", source.Name).WithError(err).Error("source failed")
		}
	}
	return stats
}

// errUnchanged marks a re-fetch whose content hash is already registered.
var errUnchanged = fmt.Errorf("content unchanged")

// crawlSource fetches one source and either registers a new document
// version or refreshes the dedup record's last-checked timestamp.
func (c *Crawler) crawlSource(ctx context.Context, source config.CrawlerSource) error {
	data, err := c.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return err
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	now := c.now().UTC()

	_, err = c.repo.Find(ctx, source.URL, hash)
	if err == nil {
		if err := c.repo.Touch(ctx, source.URL, hash, now); err != nil {
			return fmt.Errorf("failed to refresh dedup record: %w", err)
		}
		return errUnchanged
	}
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("failed to query dedup record: %w", err)
	}

	key := fmt.Sprintf("raw/%s-%d.%s", source.Name, now.Unix(), source.Format)
	contentType := storage.ContentTypeForFormat(source.Format)
	if err := c.store.Put(ctx, key, data, contentType); err != nil {
		return err
	}

	doc := &db.CrawledDocument{
		URL:           source.URL,
		ContentHash:   hash,
		BlobKey:       key,
		Bucket:        c.store.Bucket(),
		ByteSize:      int64(len(data)),
		Format:        source.Format,
		SourceLabel:   source.SourceLabel,
		CrawledAt:     now,
		LastCheckedAt: now,
	}
	if err := c.repo.Insert(ctx, doc); err != nil {
		// The blob stays orphaned under a timestamped key; the next cycle
		// re-uploads because the hash is still missing from the metadata
		// store. A duplicate insert means a concurrent cycle won the race.
		return fmt.Errorf("failed to register crawled document: %w", err)
	}

	if c.publisher != nil {
		if err := c.publisher.PublishStorageEvent(queue.StorageEvent{Bucket: c.store.Bucket(), Key: key}); err != nil {
			c.log.WithField("key", key).WithError(err).Error("failed to publish storage event")
		}
	}

	c.log.WithFields(logrus.Fields{
		"source": source.Name,
		"key":    key,
		"bytes":  len(data),
	}).Info("stored new document version")
	return nil
}
