package mediastore

import (
	"context"
	"time"
)

// DetectionRepository is the persistence collaborator. It owns detection
// records and the uniqueness of detection ids; this package only hands it URL
// sets and resolves existing ones for quarantine.
type DetectionRepository interface {
	// UpdateMediaURLs links stored artifact URLs to a detection record.
	// Empty fields in the set leave the stored value untouched.
	UpdateMediaURLs(ctx context.Context, detectionID int64, urls MediaURLSet) error

	// GetDetectionMedia returns the URL set plus device/detection metadata
	// for one detection, or ErrDetectionNotFound.
	GetDetectionMedia(ctx context.Context, detectionID int64) (*DetectionMedia, error)

	// ListDetectionMedia returns a filtered, paged media listing.
	ListDetectionMedia(ctx context.Context, q ListQuery) (*MediaPage, error)

	// DeleteDetectionMedia removes the detection's media record.
	DeleteDetectionMedia(ctx context.Context, detectionID int64) error

	// MediaStatistics aggregates storage totals.
	MediaStatistics(ctx context.Context) (*MediaStats, error)
}

// IdentityProvider yields the capability set for a user id, or ErrUnknownUser.
type IdentityProvider interface {
	Capabilities(ctx context.Context, userID int64) (CapabilitySet, error)
}

// ThumbnailOptions control thumbnail derivation.
type ThumbnailOptions struct {
	Width   int
	Height  int
	Quality int
}

// ClipOptions control clip extraction around a detection instant.
type ClipOptions struct {
	BeforeSeconds int
	AfterSeconds  int
	DetectionAt   time.Time
}

// Thumbnailer produces a resized, quality-controlled thumbnail from a source
// image. Implementations must fall back to a verbatim copy of the source when
// the transformation fails and report that through a Degraded outcome; the
// error return is reserved for the case where even the fallback copy failed.
type Thumbnailer interface {
	MakeThumbnail(ctx context.Context, source, dest string, opts ThumbnailOptions) (ProcessOutcome, error)
}

// ClipExtractor cuts a time-windowed clip from a source video, with the same
// fallback-copy contract as Thumbnailer.
type ClipExtractor interface {
	ExtractClip(ctx context.Context, source, dest string, opts ClipOptions) (ProcessOutcome, error)
}
