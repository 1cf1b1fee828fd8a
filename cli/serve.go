package cli

import (
	"context"
	nethttp "net/http"

	"github.com/spf13/cobra"

	"github.com/formvn/formbot/api"
	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/db"
	"github.com/formvn/formbot/detect"
	formbothttp "github.com/formvn/formbot/http"
	"github.com/formvn/formbot/overlay"
	"github.com/formvn/formbot/session"
	"github.com/formvn/formbot/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and session engine",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// previews rasterize through pdftoppm
	warnMissingTools("pdftoppm")

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

	sessions := session.NewStore(cfg.Redis)
	defer sessions.Close()
	if err := sessions.Ping(ctx); err != nil {
		return err
	}

	engine := session.NewEngine(sessions, store.Forms(), capabilityFor(cfg))
	handlers := api.NewHandlers(engine, store.Forms(), objects,
		overlay.NewRenderer(), detect.PdftoppmRasterizer{}, store.Crawled())

	e := formbothttp.NewEchoServer(cfg.Server)
	handlers.Register(e)

	errCh := make(chan error, 1)
	go func() {
		if err := formbothttp.Start(e, cfg.Server); err != nil && err != nethttp.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	common.Logger.Info("shutting down")
	return formbothttp.Shutdown(e, cfg.Server.ShutdownTimeout)
}
