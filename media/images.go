// Package media produces the page preview thumbnails served by the API.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
)

// DefaultPreviewWidth is the thumbnail width used when the caller does not
// ask for a specific one.
const DefaultPreviewWidth = 480

// Thumbnail scales the image down to at most maxWidth pixels wide, keeping
// the aspect ratio. Images already narrow enough pass through unchanged.
func Thumbnail(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 {
		maxWidth = DefaultPreviewWidth
	}
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
}

// EncodePNG serializes the image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
