package mediastore

import (
	"time"
)

// ArtifactKind is the domain type for artifact categories. The kind drives
// the storage subdirectory, the validation rules and the filename prefix.
type ArtifactKind string

// Artifact kind constants (typed).
const (
	KindImage     ArtifactKind = "image"
	KindThumbnail ArtifactKind = "thumbnail"
	KindVideo     ArtifactKind = "video"
	KindVideoClip ArtifactKind = "video_clip"
)

// MediaFamily groups artifact kinds by their top-level media type.
type MediaFamily string

// Media family constants (typed).
const (
	FamilyImage MediaFamily = "image"
	FamilyVideo MediaFamily = "video"
)

// Family returns the media family the kind belongs to.
func (k ArtifactKind) Family() MediaFamily {
	switch k {
	case KindImage, KindThumbnail:
		return FamilyImage
	default:
		return FamilyVideo
	}
}

// Prefix returns the filename prefix for the kind.
func (k ArtifactKind) Prefix() string {
	switch k {
	case KindImage:
		return "img_"
	case KindThumbnail:
		return "thumb_"
	case KindVideo:
		return "vid_"
	case KindVideoClip:
		return "clip_"
	default:
		return "file_"
	}
}

// DefaultExt returns the extension used when the original filename does not
// supply one. Thumbnails and clips always use their default.
func (k ArtifactKind) DefaultExt() string {
	if k.Family() == FamilyImage {
		return ".jpg"
	}
	return ".mp4"
}

// ProcessingState is the tagged outcome of a toolchain transformation.
type ProcessingState string

// Processing state constants (typed).
const (
	StateProcessed ProcessingState = "processed"
	StateDegraded  ProcessingState = "degraded"
)

// ProcessOutcome reports how an artifact transformation ended. Degraded means
// the toolchain failed and the destination holds a verbatim copy of the
// source instead of the requested derivation; Reason carries the toolchain
// failure for callers that alert on repeated degradation.
type ProcessOutcome struct {
	State  ProcessingState
	Reason string
}

// Processed returns the outcome of a successful transformation.
func Processed() ProcessOutcome {
	return ProcessOutcome{State: StateProcessed}
}

// Degraded returns a fallback-copy outcome carrying the toolchain failure.
func Degraded(reason string) ProcessOutcome {
	return ProcessOutcome{State: StateDegraded, Reason: reason}
}

// StorageResult is the outcome of persisting one artifact. It is constructed
// once per store attempt and returned to the caller; URL and Path are set only
// on success. Degraded reports that processing fell back to a verbatim copy
// (the fallback file exists on disk but is not published).
type StorageResult struct {
	Success      bool      `json:"success"`
	URL          string    `json:"url,omitempty"`
	Path         string    `json:"path,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	Degraded     bool      `json:"degraded,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	DetectionAt  time.Time `json:"detection_at"`
	Environment  string    `json:"environment"`
}

// ErrorCode identifies a stable failure category in service outcomes.
type ErrorCode string

// Error code constants (typed).
const (
	CodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	CodeMediaNotFound           ErrorCode = "MEDIA_NOT_FOUND"
	CodeFileStorageError        ErrorCode = "FILE_STORAGE_ERROR"
	CodeUnsupportedFileType     ErrorCode = "UNSUPPORTED_FILE_TYPE"
	CodeDatabaseUpdateError     ErrorCode = "DATABASE_UPDATE_ERROR"
	CodeInternalError           ErrorCode = "INTERNAL_SERVER_ERROR"
)

// IngestOutcome aggregates one whole-file ingestion: the primary artifact plus
// any secondary artifacts, partial failures downgraded to warnings.
type IngestOutcome struct {
	Success          bool          `json:"success"`
	DetectionID      int64         `json:"detection_id,omitempty"`
	DeviceID         int           `json:"device_id,omitempty"`
	DeviceName       string        `json:"device_name"`
	FileType         string        `json:"file_type"`
	OriginalFilename string        `json:"original_filename"`
	ImageURL         string        `json:"image_url,omitempty"`
	ThumbnailURL     string        `json:"thumbnail_url,omitempty"`
	VideoURL         string        `json:"video_url,omitempty"`
	GeneratedFiles   int           `json:"generated_files"`
	Elapsed          time.Duration `json:"-"`
	ElapsedMillis    float64       `json:"processing_time_ms"`
	Warnings         []string      `json:"warnings,omitempty"`
	Environment      string        `json:"storage_environment"`
	ErrorCode        ErrorCode     `json:"error_code,omitempty"`
	ErrorMessage     string        `json:"error,omitempty"`
}

// QuarantineOutcome reports a soft-delete move of an artifact set.
type QuarantineOutcome struct {
	MovedCount    int      `json:"moved_count"`
	QuarantineDir string   `json:"quarantine_dir"`
	MovedPaths    []string `json:"moved_paths,omitempty"`
}

// MediaURLSet carries the public URLs handed to the persistence layer after a
// successful ingestion. Empty fields leave the stored value untouched.
type MediaURLSet struct {
	ImageURL     string
	ThumbnailURL string
	VideoURL     string
}

// DetectionMedia is the persistence layer's view of one detection's artifact
// set, as returned by lookups and used for quarantine resolution.
type DetectionMedia struct {
	DetectionID  int64     `json:"detection_id"`
	DeviceID     int       `json:"device_id"`
	DeviceName   string    `json:"device_name"`
	DetectedAt   time.Time `json:"detected_at"`
	ImageURL     string    `json:"image_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ArtifactURLs returns the non-empty artifact URLs of the detection.
func (d *DetectionMedia) ArtifactURLs() []string {
	urls := make([]string, 0, 3)
	for _, u := range []string{d.ImageURL, d.ThumbnailURL, d.VideoURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ListQuery filters and pages a media listing.
type ListQuery struct {
	DeviceName string
	Family     MediaFamily
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// MediaPage is one page of a media listing.
type MediaPage struct {
	Items      []*DetectionMedia `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}

// MediaStats aggregates storage totals for dashboards.
type MediaStats struct {
	TotalDetections int64            `json:"total_detections"`
	TotalFiles      int64            `json:"total_files"`
	ByDevice        map[string]int64 `json:"by_device,omitempty"`
}

// CapabilitySet is the permission set the identity provider yields for a user.
type CapabilitySet struct {
	Read   bool
	Upload bool
	Delete bool
	Admin  bool
}

// CanDelete reports whether the set allows media deletion.
func (c CapabilitySet) CanDelete() bool { return c.Delete || c.Admin }

// ToolchainStatus reports availability of the external media toolchain.
type ToolchainStatus struct {
	Thumbnailer      bool   `json:"thumbnailer"`
	ClipExtractor    bool   `json:"clip_extractor"`
	FFmpegAvailable  bool   `json:"ffmpeg_available"`
	FFmpegPath       string `json:"ffmpeg_path,omitempty"`
	FFmpegProbeError string `json:"ffmpeg_probe_error,omitempty"`
}
