package mediastore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout defaults.
const (
	DefaultURLPrefix         = "/uploads"
	DefaultMaxImageMB        = 10
	DefaultMaxVideoMB        = 50
	DefaultClipBeforeSeconds = 3
	DefaultClipAfterSeconds  = 7
	DefaultThumbnailWidth    = 320
	DefaultThumbnailHeight   = 240
	DefaultThumbnailQuality  = 85
)

// Per-kind subdirectory names under the storage root.
const (
	imagesDir     = "images"
	thumbnailsDir = "thumbnails"
	videosDir     = "videos"
	videoClipsDir = "video_clips"
	quarantineDir = "quarantine"
)

// LayoutConfig options for the storage layout. Zero values fall back to the
// package defaults; Root is required.
type LayoutConfig struct {
	Root              string // base directory for all artifacts
	URLPrefix         string // public static-file prefix for stored URLs
	Environment       string // development, staging or production
	MaxImageMB        int
	MaxVideoMB        int
	ClipBeforeSeconds int
	ClipAfterSeconds  int
	ThumbnailWidth    int
	ThumbnailHeight   int
	ThumbnailQuality  int
}

// StorageLayout is the process-wide storage configuration, fixed at startup.
// All four kind subdirectories exist once NewLayout returns; a layout is never
// constructed with a missing directory.
type StorageLayout struct {
	root        string
	urlPrefix   string
	environment string

	maxImageBytes int64
	maxVideoBytes int64

	clipBefore int
	clipAfter  int

	thumbWidth   int
	thumbHeight  int
	thumbQuality int
}

// NewLayout resolves the configuration, creates the per-kind directories and
// returns the immutable layout. Failure to create any directory is fatal to
// the whole subsystem and returned as an error.
func NewLayout(cfg LayoutConfig) (*StorageLayout, error) {
	if cfg.Root == "" {
		return nil, errors.New("storage root is required")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	l := &StorageLayout{
		root:          root,
		urlPrefix:     strings.TrimSuffix(cfg.URLPrefix, "/"),
		environment:   cfg.Environment,
		maxImageBytes: int64(cfg.MaxImageMB) << 20,
		maxVideoBytes: int64(cfg.MaxVideoMB) << 20,
		clipBefore:    cfg.ClipBeforeSeconds,
		clipAfter:     cfg.ClipAfterSeconds,
		thumbWidth:    cfg.ThumbnailWidth,
		thumbHeight:   cfg.ThumbnailHeight,
		thumbQuality:  cfg.ThumbnailQuality,
	}
	if l.urlPrefix == "" {
		l.urlPrefix = DefaultURLPrefix
	}
	if l.environment == "" {
		l.environment = "development"
	}
	if l.maxImageBytes == 0 {
		l.maxImageBytes = DefaultMaxImageMB << 20
	}
	if l.maxVideoBytes == 0 {
		l.maxVideoBytes = DefaultMaxVideoMB << 20
	}
	if l.clipBefore == 0 {
		l.clipBefore = DefaultClipBeforeSeconds
	}
	if l.clipAfter == 0 {
		l.clipAfter = DefaultClipAfterSeconds
	}
	if l.thumbWidth == 0 {
		l.thumbWidth = DefaultThumbnailWidth
	}
	if l.thumbHeight == 0 {
		l.thumbHeight = DefaultThumbnailHeight
	}
	if l.thumbQuality == 0 {
		l.thumbQuality = DefaultThumbnailQuality
	}

	for _, kind := range []ArtifactKind{KindImage, KindThumbnail, KindVideo, KindVideoClip} {
		dir := l.KindDir(kind)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create required directory %s: %w", dir, err)
		}
	}

	return l, nil
}

// Root returns the absolute storage root.
func (l *StorageLayout) Root() string { return l.root }

// URLPrefix returns the public static-file prefix.
func (l *StorageLayout) URLPrefix() string { return l.urlPrefix }

// Environment returns the storage environment tag.
func (l *StorageLayout) Environment() string { return l.environment }

// KindDir returns the base directory for an artifact kind.
func (l *StorageLayout) KindDir(kind ArtifactKind) string {
	switch kind {
	case KindImage:
		return filepath.Join(l.root, imagesDir)
	case KindThumbnail:
		return filepath.Join(l.root, thumbnailsDir)
	case KindVideo:
		return filepath.Join(l.root, videosDir)
	default:
		return filepath.Join(l.root, videoClipsDir)
	}
}

// QuarantineDir returns the quarantine base directory.
func (l *StorageLayout) QuarantineDir() string {
	return filepath.Join(l.root, quarantineDir)
}

// MaxBytes returns the size ceiling for an artifact kind.
func (l *StorageLayout) MaxBytes(kind ArtifactKind) int64 {
	if kind.Family() == FamilyImage {
		return l.maxImageBytes
	}
	return l.maxVideoBytes
}

// ClipWindow returns the default pre/post detection window in seconds.
func (l *StorageLayout) ClipWindow() (before, after int) {
	return l.clipBefore, l.clipAfter
}

// ThumbnailOptions returns the default thumbnail derivation options.
func (l *StorageLayout) ThumbnailOptions() ThumbnailOptions {
	return ThumbnailOptions{Width: l.thumbWidth, Height: l.thumbHeight, Quality: l.thumbQuality}
}

// PublicURL converts an absolute path under the storage root into its public
// URL: the prefix plus the posix-separated relative path.
func (l *StorageLayout) PublicURL(absPath string) (string, error) {
	rel, err := filepath.Rel(l.root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s is outside storage root %s", absPath, l.root)
	}
	return l.urlPrefix + "/" + filepath.ToSlash(rel), nil
}

// PathForURL resolves a public URL back to the absolute path it was published
// from. It reports false for URLs outside the configured prefix.
func (l *StorageLayout) PathForURL(url string) (string, bool) {
	rel, ok := strings.CutPrefix(url, l.urlPrefix+"/")
	if !ok || rel == "" {
		return "", false
	}
	abs := filepath.Join(l.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(abs, l.root+string(filepath.Separator)) {
		return "", false
	}
	return abs, true
}
