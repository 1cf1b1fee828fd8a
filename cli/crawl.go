package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/crawler"
	"github.com/formvn/formbot/db"
	"github.com/formvn/formbot/queue"
	"github.com/formvn/formbot/storage"
)

var crawlOnce bool

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Ingest configured document sources on an interval",
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlOnce, "once", false, "run a single cycle and exit")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	store, err := db.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	s3Client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return err
	}
	objects := storage.NewObjectStore(s3Client, cfg.S3.Bucket)
	if err := objects.EnsureBucket(ctx); err != nil {
		return err
	}

	bus, err := queue.NewBus(cfg.Queue)
	if err != nil {
		return err
	}
	defer bus.Close()

	c := crawler.New(cfg.Crawler, objects, store.Crawled(), bus)
	if crawlOnce {
		stats := c.RunCycle(ctx)
		common.Logger.WithField("stats", stats).Info("cycle finished")
		return nil
	}

	c.RunLoop(ctx)
	common.Logger.Info("crawler stopped")
	return nil
}
