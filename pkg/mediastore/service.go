package mediastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Service is the media facade the HTTP layer and embedding applications use.
type Service interface {
	// IngestDetectionMedia stores the artifact set for one uploaded file
	// without touching the persistence layer.
	IngestDetectionMedia(ctx context.Context, req IngestRequest) *IngestOutcome

	// UploadDetectionMedia ingests an upload on behalf of a user, links the
	// resulting URLs to the detection record and audits the action.
	UploadDetectionMedia(ctx context.Context, req UploadRequest) *UploadOutcome

	// DeleteDetectionMedia quarantines the artifact set, deletes the
	// detection's media record and audits the action.
	DeleteDetectionMedia(ctx context.Context, req DeleteRequest) *DeleteOutcome

	// GetDetectionMedia returns one detection's media detail.
	GetDetectionMedia(ctx context.Context, userID, detectionID int64) (*DetectionMedia, error)

	// ListDetectionMedia returns a filtered, paged media listing.
	ListDetectionMedia(ctx context.Context, userID int64, q ListQuery) (*MediaPage, error)

	// MediaStatistics aggregates storage totals for dashboards.
	MediaStatistics(ctx context.Context, userID int64) (*MediaStats, error)

	// CheckToolchain probes availability of the external media toolchain.
	CheckToolchain() ToolchainStatus
}

// service implements the Service interface.
type service struct {
	layout      *StorageLayout
	namer       *Namer
	validator   *FileValidator
	thumbnailer Thumbnailer
	clipper     ClipExtractor
	coordinator *Coordinator
	quarantine  *QuarantineManager
	audit       *AuditLog
	repository  DetectionRepository
	identity    IdentityProvider
	logger      *slog.Logger
	clock       func() time.Time
	scratchDir  string
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithLayout sets the storage layout (required).
func WithLayout(layout *StorageLayout) Option {
	return func(s *service) { s.layout = layout }
}

// WithRepository sets the persistence collaborator (required).
func WithRepository(repo DetectionRepository) Option {
	return func(s *service) { s.repository = repo }
}

// WithIdentity sets the identity/permission provider (required).
func WithIdentity(provider IdentityProvider) Option {
	return func(s *service) { s.identity = provider }
}

// WithThumbnailer overrides the default imaging thumbnailer.
func WithThumbnailer(t Thumbnailer) Option {
	return func(s *service) { s.thumbnailer = t }
}

// WithClipExtractor overrides the default ffmpeg clip extractor.
func WithClipExtractor(c ClipExtractor) Option {
	return func(s *service) { s.clipper = c }
}

// WithAuditLog sets the audit sink.
func WithAuditLog(a *AuditLog) Option {
	return func(s *service) { s.audit = a }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *service) { s.logger = l }
}

// WithScratchDir overrides the scratch directory for upload materialization.
func WithScratchDir(dir string) Option {
	return func(s *service) { s.scratchDir = dir }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.clock = now }
}

// New creates a media service instance with the given options.
func New(options ...Option) (Service, error) {
	s := &service{}
	for _, option := range options {
		option(s)
	}

	if s.layout == nil {
		return nil, fmt.Errorf("storage layout is required")
	}
	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.thumbnailer == nil {
		s.thumbnailer = NewImagingThumbnailer()
	}
	if s.clipper == nil {
		s.clipper = NewFFmpegClipExtractor(DefaultClipPreset())
	}
	if s.audit == nil {
		env := s.layout.Environment()
		s.audit = NewAuditLog(AuditDirForEnvironment(env), env, s.logger)
	}
	if s.scratchDir == "" {
		s.scratchDir = filepath.Join(os.TempDir(), "smartoko_upload")
	}

	s.namer = NewNamer(s.layout.Environment())
	s.validator = NewFileValidator(s.layout)
	s.coordinator = NewCoordinator(s.layout, s.namer, s.validator, s.thumbnailer, s.clipper, s.logger)
	s.quarantine = NewQuarantineManager(s.layout, s.logger)

	s.logger.Info("media store initialized",
		"environment", s.layout.Environment(), "root", s.layout.Root(), "audit_dir", s.audit.Dir())
	return s, nil
}

func (s *service) UploadDetectionMedia(ctx context.Context, req UploadRequest) *UploadOutcome {
	start := s.clock()
	outcome := &UploadOutcome{}
	finish := func() *UploadOutcome {
		outcome.ElapsedMillis = float64(s.clock().Sub(start).Microseconds()) / 1000
		return outcome
	}

	// Upload requires only that the user record exists.
	if _, err := s.identity.Capabilities(ctx, req.UserID); err != nil {
		s.logger.Warn("upload rejected", "user_id", req.UserID, "error", err)
		outcome.Message = "Insufficient permissions for file upload"
		outcome.ErrorCode = CodeInsufficientPermissions
		return finish()
	}

	ingest := s.IngestDetectionMedia(ctx, IngestRequest{
		Reader:       req.Reader,
		Filename:     req.Filename,
		DeviceName:   req.DeviceName,
		DetectionAt:  req.DetectionAt,
		FileType:     req.FileType,
		DetectionSeq: req.DetectionID,
	})
	outcome.Ingest = ingest
	if !ingest.Success {
		outcome.Message = "File storage error occurred"
		outcome.ErrorCode = ingest.ErrorCode
		return finish()
	}

	if req.DetectionID != 0 {
		urls := MediaURLSet{
			ImageURL:     ingest.ImageURL,
			ThumbnailURL: ingest.ThumbnailURL,
			VideoURL:     ingest.VideoURL,
		}
		if err := s.repository.UpdateMediaURLs(ctx, req.DetectionID, urls); err != nil {
			s.logger.Error("media url update failed", "detection_id", req.DetectionID, "error", err)
			outcome.Message = "Database update failed"
			outcome.ErrorCode = CodeDatabaseUpdateError
			return finish()
		}
		if media, err := s.repository.GetDetectionMedia(ctx, req.DetectionID); err == nil {
			outcome.Media = media
		}
	}

	s.audit.Record(req.UserID, AuditActionUpload, detectionTarget(req.DetectionID), map[string]any{
		"filename":        req.Filename,
		"file_type":       req.FileType,
		"device_name":     req.DeviceName,
		"generated_files": ingest.GeneratedFiles,
		"warnings":        len(ingest.Warnings),
	})

	outcome.Success = true
	outcome.Message = "File upload completed successfully"
	s.logger.Info("media upload complete", "user_id", req.UserID, "detection_id", ingest.DetectionID)
	return finish()
}

func (s *service) DeleteDetectionMedia(ctx context.Context, req DeleteRequest) *DeleteOutcome {
	outcome := &DeleteOutcome{}

	caps, err := s.identity.Capabilities(ctx, req.UserID)
	if err != nil || !caps.CanDelete() {
		s.logger.Warn("delete rejected", "user_id", req.UserID, "detection_id", req.DetectionID)
		outcome.Message = "Insufficient permissions for media deletion"
		outcome.ErrorCode = CodeInsufficientPermissions
		return outcome
	}

	media, err := s.repository.GetDetectionMedia(ctx, req.DetectionID)
	if err != nil {
		if errors.Is(err, ErrDetectionNotFound) {
			outcome.Message = "Media not found for deletion"
			outcome.ErrorCode = CodeMediaNotFound
		} else {
			s.logger.Error("media lookup failed", "detection_id", req.DetectionID, "error", err)
			outcome.Message = "An error occurred during media deletion"
			outcome.ErrorCode = CodeInternalError
		}
		return outcome
	}

	// Quarantine before the record delete so the delete never destroys the
	// only copy of a file.
	qres, err := s.quarantine.Quarantine(media.ArtifactURLs(), req.UserID)
	if err != nil {
		s.logger.Error("quarantine failed", "detection_id", req.DetectionID, "error", err)
		outcome.Message = "An error occurred during media deletion"
		outcome.ErrorCode = CodeInternalError
		return outcome
	}

	if err := s.repository.DeleteDetectionMedia(ctx, req.DetectionID); err != nil {
		s.logger.Error("media record delete failed", "detection_id", req.DetectionID, "error", err)
		outcome.Message = "Failed to delete media from database"
		outcome.ErrorCode = CodeDatabaseUpdateError
		return outcome
	}

	s.audit.Record(req.UserID, AuditActionDelete, detectionTarget(req.DetectionID), map[string]any{
		"device_name":     media.DeviceName,
		"quarantine_path": qres.QuarantineDir,
		"files_moved":     qres.MovedCount,
	})

	outcome.Success = true
	outcome.Message = "Media deleted successfully"
	outcome.DeletedDetectionID = req.DetectionID
	outcome.DeletedFileCount = qres.MovedCount
	outcome.QuarantineDir = qres.QuarantineDir
	s.logger.Info("media deleted", "user_id", req.UserID, "detection_id", req.DetectionID, "files_moved", qres.MovedCount)
	return outcome
}

func (s *service) GetDetectionMedia(ctx context.Context, userID, detectionID int64) (*DetectionMedia, error) {
	if err := s.requireRead(ctx, userID); err != nil {
		return nil, err
	}

	media, err := s.repository.GetDetectionMedia(ctx, detectionID)
	if err != nil {
		return nil, err
	}

	s.audit.Record(userID, AuditActionDetailView, detectionTarget(detectionID), nil)
	return media, nil
}

func (s *service) ListDetectionMedia(ctx context.Context, userID int64, q ListQuery) (*MediaPage, error) {
	if err := s.requireRead(ctx, userID); err != nil {
		return nil, err
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}

	page, err := s.repository.ListDetectionMedia(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list detection media: %w", err)
	}

	s.audit.Record(userID, AuditActionListView, nil, map[string]any{
		"page":        q.Page,
		"page_size":   q.PageSize,
		"total_count": page.TotalCount,
	})
	return page, nil
}

func (s *service) MediaStatistics(ctx context.Context, userID int64) (*MediaStats, error) {
	if err := s.requireRead(ctx, userID); err != nil {
		return nil, err
	}

	stats, err := s.repository.MediaStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("media statistics: %w", err)
	}

	s.audit.Record(userID, AuditActionStatsView, nil, map[string]any{
		"total_detections": stats.TotalDetections,
		"total_files":      stats.TotalFiles,
	})
	return stats, nil
}

func (s *service) CheckToolchain() ToolchainStatus {
	status := ToolchainStatus{
		Thumbnailer:   s.thumbnailer != nil,
		ClipExtractor: s.clipper != nil,
	}
	if probe, ok := s.clipper.(interface{ Available() (string, error) }); ok {
		path, err := probe.Available()
		status.FFmpegAvailable = err == nil
		status.FFmpegPath = path
		if err != nil {
			status.FFmpegProbeError = err.Error()
		}
	}
	return status
}

func (s *service) requireRead(ctx context.Context, userID int64) error {
	caps, err := s.identity.Capabilities(ctx, userID)
	if err != nil {
		return err
	}
	if !caps.Read {
		return fmt.Errorf("%w: media read requires the read capability", ErrPermissionDenied)
	}
	return nil
}

func detectionTarget(detectionID int64) *int64 {
	if detectionID == 0 {
		return nil
	}
	return &detectionID
}
