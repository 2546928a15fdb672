package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore/api"
	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore/identity"
	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore/repo/memory"
)

type apiFixture struct {
	service mediastore.Service
	repo    *memory.Repository
	router  http.Handler
}

// withActor injects the actor id directly, standing in for the jwtauth chain.
func withActor(userID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), api.ActorIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAPIFixture(t *testing.T, userID int64) *apiFixture {
	t.Helper()

	layout, err := mediastore.NewLayout(mediastore.LayoutConfig{Root: t.TempDir(), Environment: "test"})
	require.NoError(t, err)

	repo := memory.New()
	svc, err := mediastore.New(
		mediastore.WithLayout(layout),
		mediastore.WithRepository(repo),
		mediastore.WithIdentity(identity.NewStaticFromRoles(map[int64]string{
			1: identity.RoleAdmin,
			2: identity.RoleViewer,
		})),
		mediastore.WithScratchDir(t.TempDir()),
		mediastore.WithAuditLog(mediastore.NewAuditLog(t.TempDir(), "test", nil)),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(withActor(userID))
	r.Mount("/media", api.NewMediaHandler(svc, nil).Routes())

	return &apiFixture{service: svc, repo: repo, router: r}
}

func pngBody(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestUploadMedia(t *testing.T) {
	t.Run("image upload succeeds", func(t *testing.T) {
		fix := newAPIFixture(t, 1)
		body, contentType := multipartUpload(t, map[string]string{
			"device_name": "camera_003",
			"file_type":   "png",
			"detected_at": time.Now().UTC().Format(time.RFC3339),
		}, "frame.png", pngBody(t))

		req := httptest.NewRequest(http.MethodPost, "/media/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var outcome mediastore.UploadOutcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
		assert.True(t, outcome.Success)
		require.NotNil(t, outcome.Ingest)
		assert.NotEmpty(t, outcome.Ingest.ImageURL)
	})

	t.Run("upload with linked detection id", func(t *testing.T) {
		fix := newAPIFixture(t, 1)
		fix.repo.Seed(&mediastore.DetectionMedia{DetectionID: 55, DeviceName: "camera_003"})

		body, contentType := multipartUpload(t, map[string]string{
			"device_name":  "camera_003",
			"file_type":    "png",
			"detection_id": "55",
		}, "frame.png", pngBody(t))

		req := httptest.NewRequest(http.MethodPost, "/media/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		media, err := fix.repo.GetDetectionMedia(context.Background(), 55)
		require.NoError(t, err)
		assert.NotEmpty(t, media.ImageURL)
	})

	t.Run("missing file field is a bad request", func(t *testing.T) {
		fix := newAPIFixture(t, 1)
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		require.NoError(t, w.WriteField("device_name", "camera_003"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/media/upload", &body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported file type maps to 415", func(t *testing.T) {
		fix := newAPIFixture(t, 1)
		body, contentType := multipartUpload(t, map[string]string{
			"file_type": "pdf",
		}, "report.pdf", []byte("%PDF-1.4"))

		req := httptest.NewRequest(http.MethodPost, "/media/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("unknown user maps to 403", func(t *testing.T) {
		fix := newAPIFixture(t, 999)
		body, contentType := multipartUpload(t, map[string]string{
			"file_type": "png",
		}, "frame.png", pngBody(t))

		req := httptest.NewRequest(http.MethodPost, "/media/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestGetMedia(t *testing.T) {
	fix := newAPIFixture(t, 2)
	fix.repo.Seed(&mediastore.DetectionMedia{
		DetectionID: 11,
		DeviceName:  "camera_001",
		ImageURL:    "/uploads/images/a.jpg",
	})

	t.Run("existing detection", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/11", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var media mediastore.DetectionMedia
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &media))
		assert.Equal(t, "camera_001", media.DeviceName)
	})

	t.Run("missing detection is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/12345", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, mediastore.CodeMediaNotFound, resp.ErrorCode)
	})

	t.Run("non-numeric id is a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListMedia(t *testing.T) {
	fix := newAPIFixture(t, 2)
	fix.repo.Seed(&mediastore.DetectionMedia{DetectionID: 1, DeviceName: "camera_001", ImageURL: "/uploads/images/a.jpg"})
	fix.repo.Seed(&mediastore.DetectionMedia{DetectionID: 2, DeviceName: "camera_002", VideoURL: "/uploads/video_clips/b.mp4"})

	t.Run("unfiltered listing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var page mediastore.MediaPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 2, page.TotalCount)
	})

	t.Run("family filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/?media_type=video", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var page mediastore.MediaPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 1, page.TotalCount)
	})

	t.Run("invalid family is a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/?media_type=audio", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteMedia(t *testing.T) {
	t.Run("viewer is forbidden", func(t *testing.T) {
		fix := newAPIFixture(t, 2)
		fix.repo.Seed(&mediastore.DetectionMedia{DetectionID: 5})

		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/media/5", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin deletes", func(t *testing.T) {
		fix := newAPIFixture(t, 1)
		fix.repo.Seed(&mediastore.DetectionMedia{DetectionID: 5, DeviceName: "camera_001"})

		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/media/5", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var outcome mediastore.DeleteOutcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
		assert.True(t, outcome.Success)
		assert.Equal(t, int64(5), outcome.DeletedDetectionID)
	})

	t.Run("missing record is 404", func(t *testing.T) {
		fix := newAPIFixture(t, 1)
		rec := httptest.NewRecorder()
		fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/media/999", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMediaStatsAndToolchain(t *testing.T) {
	fix := newAPIFixture(t, 2)
	fix.repo.Seed(&mediastore.DetectionMedia{DetectionID: 1, DeviceName: "camera_001", ImageURL: "/uploads/images/a.jpg"})

	rec := httptest.NewRecorder()
	fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats mediastore.MediaStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalDetections)

	rec = httptest.NewRecorder()
	fix.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/toolchain", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status mediastore.ToolchainStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Thumbnailer)
}

func TestActorFromToken(t *testing.T) {
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)

	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(tokenAuth))
	r.Use(jwtauth.Authenticator)
	r.Use(api.ActorFromToken)
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		id, ok := api.ActorID(r.Context())
		require.True(t, ok)
		fmt.Fprintf(w, "%d", id)
	})

	t.Run("valid token resolves the actor", func(t *testing.T) {
		_, tokenString, err := tokenAuth.Encode(map[string]interface{}{"user_id": 7})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "7", rec.Body.String())
	})

	t.Run("string user_id claim also resolves", func(t *testing.T) {
		_, tokenString, err := tokenAuth.Encode(map[string]interface{}{"user_id": "21"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "21", rec.Body.String())
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without user_id is unauthorized", func(t *testing.T) {
		_, tokenString, err := tokenAuth.Encode(map[string]interface{}{"sub": "nobody"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
