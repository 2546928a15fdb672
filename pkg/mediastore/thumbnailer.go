package mediastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ImagingThumbnailer derives thumbnails with the imaging toolchain: EXIF
// auto-orientation, aspect-preserving fit into the requested box, JPEG encode
// at the requested quality. Decoding already normalizes the color mode to an
// encodable form.
type ImagingThumbnailer struct{}

// NewImagingThumbnailer creates the default thumbnailer.
func NewImagingThumbnailer() *ImagingThumbnailer {
	return &ImagingThumbnailer{}
}

// MakeThumbnail writes the thumbnail at dest. On any toolchain failure the
// source is copied verbatim instead and the outcome is Degraded.
func (t *ImagingThumbnailer) MakeThumbnail(ctx context.Context, source, dest string, opts ThumbnailOptions) (ProcessOutcome, error) {
	if err := ctx.Err(); err != nil {
		return fallbackCopy("thumbnail", source, dest, err)
	}

	img, err := imaging.Open(source, imaging.AutoOrientation(true))
	if err != nil {
		return fallbackCopy("thumbnail", source, dest, fmt.Errorf("decode image: %w", err))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ProcessOutcome{}, &ProcessError{Tool: "thumbnail", Source: source, Err: err}
	}

	thumb := imaging.Fit(img, opts.Width, opts.Height, imaging.Lanczos)
	if err := imaging.Save(thumb, dest, imaging.JPEGQuality(opts.Quality)); err != nil {
		return fallbackCopy("thumbnail", source, dest, fmt.Errorf("encode thumbnail: %w", err))
	}

	return Processed(), nil
}
