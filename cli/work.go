package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/db"
	"github.com/formvn/formbot/detect"
	"github.com/formvn/formbot/queue"
	"github.com/formvn/formbot/storage"
	"github.com/formvn/formbot/worker"
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Consume storage events and derive form schemas",
	RunE:  runWork,
}

func runWork(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	warnMissingTools("pdftoppm", "tesseract", "libreoffice")

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

	processor := worker.NewProcessor(
		objects,
		store.Forms(),
		detect.NewTesseractOCR(cfg.OCR.Languages),
		detect.PdftoppmRasterizer{},
		worker.NewLibreOfficeConverter(cfg.OCR.ConvertTimeout),
		capabilityFor(cfg),
		cfg.OCR.DPI,
	)

	// Run blocks until the context is cancelled or the broker goes away.
	consumer := worker.NewConsumer(bus, processor, cfg.Queue.Consumers)
	if err := consumer.Run(ctx); err != nil {
		return err
	}
	common.Logger.Info("worker stopped")
	return nil
}
