package mediastore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Coordinator orchestrates validate -> locate -> process -> persist for one
// artifact. Every failure anywhere in that sequence is converted into a
// structured StorageResult at this boundary; no error escapes to the caller.
type Coordinator struct {
	layout      *StorageLayout
	namer       *Namer
	validator   *FileValidator
	thumbnailer Thumbnailer
	clipper     ClipExtractor
	logger      *slog.Logger
	clock       func() time.Time
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(layout *StorageLayout, namer *Namer, validator *FileValidator, thumbnailer Thumbnailer, clipper ClipExtractor, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		layout:      layout,
		namer:       namer,
		validator:   validator,
		thumbnailer: thumbnailer,
		clipper:     clipper,
		logger:      logger,
		clock:       time.Now,
	}
}

// StoreImage persists the unmodified original image.
func (c *Coordinator) StoreImage(ctx context.Context, source string, deviceID int, detectionSeq int64, detectionAt time.Time) StorageResult {
	return c.store(ctx, KindImage, source, deviceID, detectionSeq, detectionAt, func(dest string) (ProcessOutcome, error) {
		if err := copyFile(source, dest); err != nil {
			return ProcessOutcome{}, err
		}
		return Processed(), nil
	})
}

// StoreVideo persists the unmodified original video.
func (c *Coordinator) StoreVideo(ctx context.Context, source string, deviceID int, detectionSeq int64, detectionAt time.Time) StorageResult {
	return c.store(ctx, KindVideo, source, deviceID, detectionSeq, detectionAt, func(dest string) (ProcessOutcome, error) {
		if err := copyFile(source, dest); err != nil {
			return ProcessOutcome{}, err
		}
		return Processed(), nil
	})
}

// StoreThumbnail derives and persists a thumbnail from the source image.
// A nil opts uses the layout defaults.
func (c *Coordinator) StoreThumbnail(ctx context.Context, source string, deviceID int, detectionSeq int64, detectionAt time.Time, opts *ThumbnailOptions) StorageResult {
	o := c.layout.ThumbnailOptions()
	if opts != nil {
		o = *opts
	}
	return c.store(ctx, KindThumbnail, source, deviceID, detectionSeq, detectionAt, func(dest string) (ProcessOutcome, error) {
		return c.thumbnailer.MakeThumbnail(ctx, source, dest, o)
	})
}

// StoreVideoClip derives and persists a time-windowed clip from the source
// video. Zero window values in opts (or a nil opts) use the layout defaults.
func (c *Coordinator) StoreVideoClip(ctx context.Context, source string, deviceID int, detectionSeq int64, detectionAt time.Time, opts *ClipOptions) StorageResult {
	before, after := c.layout.ClipWindow()
	o := ClipOptions{BeforeSeconds: before, AfterSeconds: after, DetectionAt: detectionAt}
	if opts != nil {
		if opts.BeforeSeconds > 0 {
			o.BeforeSeconds = opts.BeforeSeconds
		}
		if opts.AfterSeconds > 0 {
			o.AfterSeconds = opts.AfterSeconds
		}
	}
	return c.store(ctx, KindVideoClip, source, deviceID, detectionSeq, detectionAt, func(dest string) (ProcessOutcome, error) {
		return c.clipper.ExtractClip(ctx, source, dest, o)
	})
}

// store runs the shared artifact pipeline. The validator's source reads are
// the only filesystem access before the destination write; a validation
// failure therefore leaves the storage root untouched.
func (c *Coordinator) store(ctx context.Context, kind ArtifactKind, source string, deviceID int, detectionSeq int64, detectionAt time.Time, process func(dest string) (ProcessOutcome, error)) StorageResult {
	createdAt := c.clock()
	env := c.layout.Environment()

	fail := func(msg string) StorageResult {
		c.logger.Error("artifact store failed",
			"kind", kind, "detection_seq", detectionSeq, "environment", env, "error", msg)
		return StorageResult{
			Success:      false,
			ErrorMessage: msg,
			CreatedAt:    createdAt,
			DetectionAt:  detectionAt,
			Environment:  env,
		}
	}

	if ok, reason := c.validator.Validate(source, kind); !ok {
		return fail(reason)
	}

	dir, err := c.namer.OrganizedDirectory(c.layout.KindDir(kind), deviceID, detectionAt)
	if err != nil {
		return fail((&StoreError{Kind: kind, DetectionSeq: detectionSeq, Op: "locate", Err: err}).Error())
	}

	name := c.namer.DeterministicFilename(detectionSeq, kind, detectionAt, filepath.Base(source))
	dest := filepath.Join(dir, name)

	outcome, err := process(dest)
	if err != nil {
		return fail((&StoreError{Kind: kind, DetectionSeq: detectionSeq, Op: "process", Err: err}).Error())
	}
	if outcome.State == StateDegraded {
		degradationsTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn("artifact degraded to fallback copy",
			"kind", kind, "detection_seq", detectionSeq, "reason", outcome.Reason)
		result := fail(fmt.Sprintf("processing degraded to fallback copy: %s", outcome.Reason))
		result.Degraded = true
		return result
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fail((&StoreError{Kind: kind, DetectionSeq: detectionSeq, Op: "stat", Err: err}).Error())
	}

	url, err := c.layout.PublicURL(dest)
	if err != nil {
		return fail((&StoreError{Kind: kind, DetectionSeq: detectionSeq, Op: "url", Err: err}).Error())
	}

	artifactsStoredTotal.WithLabelValues(string(kind)).Inc()
	c.logger.Info("artifact stored",
		"kind", kind, "detection_seq", detectionSeq, "environment", env, "url", url, "size_bytes", info.Size())

	return StorageResult{
		Success:     true,
		URL:         url,
		Path:        dest,
		SizeBytes:   info.Size(),
		CreatedAt:   createdAt,
		DetectionAt: detectionAt,
		Environment: env,
	}
}
