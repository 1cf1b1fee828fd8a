package api

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/forms"
	"github.com/formvn/formbot/media"
	"github.com/formvn/formbot/storage"
)

// Rasterizer renders one PDF page as an image.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdf []byte, page, dpi int) (image.Image, error)
}

// previewCache renders first-page thumbnails and keeps them in the object
// store under previews/{slug}.png so each form is rasterized once.
type previewCache struct {
	store  ObjectStore
	raster Rasterizer

	mu sync.Mutex
}

// Render returns the PNG thumbnail for the schema's first page.
func (p *previewCache) Render(ctx context.Context, schema *forms.FormSchema) ([]byte, error) {
	key := previewKey(schema.FormID)

	if cached, err := p.store.Get(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	// one render at a time; thumbnails are small but pdftoppm is not
	p.mu.Lock()
	defer p.mu.Unlock()

	original, err := p.store.Get(ctx, schema.Source.Key)
	if err != nil {
		return nil, err
	}
	page, err := p.raster.RenderPage(ctx, original, 1, previewDPI)
	if err != nil {
		return nil, fmt.Errorf("failed to render preview for %s: %w", schema.FormID, err)
	}

	data, err := media.EncodePNG(media.Thumbnail(page, media.DefaultPreviewWidth))
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(ctx, key, data, "image/png"); err != nil {
		common.Logger.WithError(err).WithField("key", key).Warn("failed to cache preview")
	}
	return data, nil
}

func previewKey(formID string) string {
	return "previews/" + common.Slugify(formID) + ".png"
}
