// Package api exposes the media service over HTTP using chi. Authentication
// is expected upstream (jwtauth Verifier/Authenticator plus ActorFromToken);
// handlers only read the actor id from the request context.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
)

// Multipart form memory ceiling; larger bodies spill to temp files.
const maxMultipartMemory = 32 << 20

// MediaHandler handles HTTP requests for detection media.
type MediaHandler struct {
	service mediastore.Service
	logger  *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(service mediastore.Service, logger *slog.Logger) *MediaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaHandler{service: service, logger: logger}
}

// Routes returns the routes for detection media.
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", h.UploadMedia)
	r.Get("/", h.ListMedia)
	r.Get("/stats", h.MediaStats)
	r.Get("/toolchain", h.ToolchainStatus)
	r.Get("/{detectionID}", h.GetMedia)
	r.Delete("/{detectionID}", h.DeleteMedia)

	return r
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error     string               `json:"error"`
	ErrorCode mediastore.ErrorCode `json:"error_code,omitempty"`
}

// UploadMedia stores one uploaded detection file plus derived artifacts.
// Multipart fields: file (required), device_name, file_type (defaults to the
// part's content type), detection_id, detected_at (RFC 3339).
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	actorID, ok := ActorID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileType := r.FormValue("file_type")
	if fileType == "" {
		fileType = header.Header.Get("Content-Type")
	}

	var detectionID int64
	if raw := r.FormValue("detection_id"); raw != "" {
		detectionID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid detection_id", http.StatusBadRequest)
			return
		}
	}

	detectedAt := time.Now().UTC()
	if raw := r.FormValue("detected_at"); raw != "" {
		detectedAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid detected_at, want RFC 3339", http.StatusBadRequest)
			return
		}
	}

	outcome := h.service.UploadDetectionMedia(r.Context(), mediastore.UploadRequest{
		UserID:      actorID,
		DetectionID: detectionID,
		DeviceName:  r.FormValue("device_name"),
		DetectionAt: detectedAt,
		FileType:    fileType,
		Filename:    header.Filename,
		Reader:      file,
	})

	if !outcome.Success {
		render.Status(r, uploadFailureStatus(outcome.ErrorCode))
		render.JSON(w, r, outcome)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, outcome)
}

// GetMedia returns one detection's media detail.
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	actorID, ok := ActorID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	detectionID, err := strconv.ParseInt(chi.URLParam(r, "detectionID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid detection id", http.StatusBadRequest)
		return
	}

	media, err := h.service.GetDetectionMedia(r.Context(), actorID, detectionID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, media)
}

// ListMedia returns a filtered, paged media listing. Query parameters:
// device_name, media_type (image|video), from, to (RFC 3339), page, page_size.
func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	actorID, ok := ActorID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	q := mediastore.ListQuery{
		DeviceName: r.URL.Query().Get("device_name"),
	}

	switch r.URL.Query().Get("media_type") {
	case "":
	case "image":
		q.Family = mediastore.FamilyImage
	case "video":
		q.Family = mediastore.FamilyVideo
	default:
		http.Error(w, "invalid media_type, want image or video", http.StatusBadRequest)
		return
	}

	for param, dst := range map[string]**time.Time{"from": &q.From, "to": &q.To} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid "+param+", want RFC 3339", http.StatusBadRequest)
			return
		}
		*dst = &t
	}

	if raw := r.URL.Query().Get("page"); raw != "" {
		q.Page, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		q.PageSize, _ = strconv.Atoi(raw)
	}

	page, err := h.service.ListDetectionMedia(r.Context(), actorID, q)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, page)
}

// DeleteMedia quarantines a detection's artifacts and removes its record.
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	actorID, ok := ActorID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	detectionID, err := strconv.ParseInt(chi.URLParam(r, "detectionID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid detection id", http.StatusBadRequest)
		return
	}

	outcome := h.service.DeleteDetectionMedia(r.Context(), mediastore.DeleteRequest{
		UserID:      actorID,
		DetectionID: detectionID,
	})

	if !outcome.Success {
		render.Status(r, deleteFailureStatus(outcome.ErrorCode))
		render.JSON(w, r, outcome)
		return
	}

	render.JSON(w, r, outcome)
}

// MediaStats aggregates storage totals.
func (h *MediaHandler) MediaStats(w http.ResponseWriter, r *http.Request) {
	actorID, ok := ActorID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := h.service.MediaStatistics(r.Context(), actorID)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, stats)
}

// ToolchainStatus reports availability of the media toolchain.
func (h *MediaHandler) ToolchainStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.CheckToolchain())
}

func (h *MediaHandler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mediastore.ErrDetectionNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "detection media not found", ErrorCode: mediastore.CodeMediaNotFound})
	case errors.Is(err, mediastore.ErrPermissionDenied), errors.Is(err, mediastore.ErrUnknownUser):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{Error: "insufficient permissions", ErrorCode: mediastore.CodeInsufficientPermissions})
	default:
		h.logger.Error("media request failed", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal server error", ErrorCode: mediastore.CodeInternalError})
	}
}

func uploadFailureStatus(code mediastore.ErrorCode) int {
	switch code {
	case mediastore.CodeInsufficientPermissions:
		return http.StatusForbidden
	case mediastore.CodeUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case mediastore.CodeDatabaseUpdateError, mediastore.CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func deleteFailureStatus(code mediastore.ErrorCode) int {
	switch code {
	case mediastore.CodeInsufficientPermissions:
		return http.StatusForbidden
	case mediastore.CodeMediaNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
