package mediastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tokens accepted as each media family in ingest requests.
var (
	imageTypeTokens = map[string]bool{
		"image": true, "jpg": true, "jpeg": true, "png": true, "bmp": true, "webp": true, "tiff": true,
	}
	videoTypeTokens = map[string]bool{
		"video": true, "mp4": true, "mov": true, "avi": true, "mkv": true, "webm": true, "video_clip": true,
	}
)

// IngestRequest describes one uploaded capture file plus its detection
// metadata.
type IngestRequest struct {
	Reader      io.Reader
	Filename    string
	DeviceName  string
	DetectionAt time.Time
	FileType    string

	// DetectionSeq is optional; a sequence is synthesized from the current
	// time when zero.
	DetectionSeq int64

	// Optional per-request overrides of the layout defaults.
	Thumbnail *ThumbnailOptions
	Clip      *ClipOptions
}

// IngestDetectionMedia drives the full artifact-set ingestion for one
// uploaded file: image uploads store the original plus a thumbnail (thumbnail
// failure is a warning, the original already succeeded), video uploads store
// a detection clip (clip failure fails the ingestion, there is no secondary
// artifact to fall back to). The scratch copy of the upload is removed on
// every path.
func (s *service) IngestDetectionMedia(ctx context.Context, req IngestRequest) *IngestOutcome {
	start := s.clock()
	outcome := &IngestOutcome{
		DeviceName:       req.DeviceName,
		FileType:         req.FileType,
		OriginalFilename: req.Filename,
		Environment:      s.layout.Environment(),
	}
	finish := func() *IngestOutcome {
		outcome.Elapsed = s.clock().Sub(start)
		outcome.ElapsedMillis = float64(outcome.Elapsed.Microseconds()) / 1000
		result := "success"
		if !outcome.Success {
			result = "failure"
		}
		ingestsTotal.WithLabelValues(strings.ToLower(req.FileType), result).Inc()
		return outcome
	}
	failCode := func(code ErrorCode, msg string) *IngestOutcome {
		outcome.Success = false
		outcome.ErrorCode = code
		outcome.ErrorMessage = msg
		s.logger.Error("media ingestion failed",
			"device", req.DeviceName, "file_type", req.FileType, "filename", req.Filename, "error", msg)
		return finish()
	}

	// Accepts both bare tokens ("png", "video") and MIME types ("image/png").
	fileType := strings.ToLower(strings.TrimSpace(req.FileType))
	isImage := imageTypeTokens[fileType] || strings.HasPrefix(fileType, "image/")
	isVideo := !isImage && (videoTypeTokens[fileType] || strings.HasPrefix(fileType, "video/"))
	if !isImage && !isVideo {
		return failCode(CodeUnsupportedFileType, fmt.Sprintf("%v: %q", ErrUnsupportedFileType, req.FileType))
	}

	scratch, err := s.materializeScratch(req.Reader, req.Filename)
	if err != nil {
		return failCode(CodeFileStorageError, fmt.Sprintf("materialize upload: %v", err))
	}
	defer func() {
		// Best effort; a stale scratch file is an operational nuisance,
		// not a failed ingestion.
		if err := os.Remove(scratch); err != nil {
			s.logger.Warn("scratch cleanup failed", "path", scratch, "error", err)
		}
	}()

	deviceID := DeviceIDFromLabel(req.DeviceName)
	detectionSeq := req.DetectionSeq
	if detectionSeq == 0 {
		detectionSeq = s.clock().UnixMicro() % 999999
	}
	outcome.DetectionID = detectionSeq
	outcome.DeviceID = deviceID

	if isImage {
		imageResult := s.coordinator.StoreImage(ctx, scratch, deviceID, detectionSeq, req.DetectionAt)
		if !imageResult.Success {
			return failCode(CodeFileStorageError, fmt.Sprintf("image store failed: %s", imageResult.ErrorMessage))
		}
		outcome.ImageURL = imageResult.URL
		outcome.GeneratedFiles++

		thumbResult := s.coordinator.StoreThumbnail(ctx, scratch, deviceID, detectionSeq, req.DetectionAt, req.Thumbnail)
		if thumbResult.Success {
			outcome.ThumbnailURL = thumbResult.URL
			outcome.GeneratedFiles++
		} else {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("thumbnail generation failed: %s", thumbResult.ErrorMessage))
		}
	} else {
		clipResult := s.coordinator.StoreVideoClip(ctx, scratch, deviceID, detectionSeq, req.DetectionAt, req.Clip)
		if !clipResult.Success {
			return failCode(CodeFileStorageError, fmt.Sprintf("video clip store failed: %s", clipResult.ErrorMessage))
		}
		outcome.VideoURL = clipResult.URL
		outcome.GeneratedFiles++
	}

	outcome.Success = true
	s.logger.Info("media ingestion complete",
		"device_id", deviceID, "detection_seq", detectionSeq, "file_type", fileType,
		"generated_files", outcome.GeneratedFiles, "warnings", len(outcome.Warnings))
	return finish()
}

// materializeScratch writes the upload to a uniquely named scratch file.
func (s *service) materializeScratch(r io.Reader, filename string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no upload content")
	}
	if err := os.MkdirAll(s.scratchDir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}

	name := fmt.Sprintf("upload_%s_%s", uuid.NewString(), sanitizeScratchName(filename))
	path := filepath.Join(s.scratchDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return path, nil
}

// sanitizeScratchName keeps alphanumerics, '.', '-' and '_' of the original
// filename so the scratch copy retains its extension for validation.
func sanitizeScratchName(filename string) string {
	var b strings.Builder
	for _, r := range filepath.Base(filename) {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "upload.bin"
	}
	return b.String()
}
