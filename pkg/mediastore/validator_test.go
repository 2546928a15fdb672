package mediastore_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
)

var (
	jpegMagic = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	mp4Magic  = append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypisom")...)
)

func newTestLayout(t *testing.T) *mediastore.StorageLayout {
	t.Helper()
	layout, err := mediastore.NewLayout(mediastore.LayoutConfig{
		Root:        t.TempDir(),
		Environment: "test",
		MaxImageMB:  1,
		MaxVideoMB:  1,
	})
	require.NoError(t, err)
	return layout
}

func writeFile(t *testing.T, path string, content []byte) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestFileValidator(t *testing.T) {
	layout := newTestLayout(t)
	validator := mediastore.NewFileValidator(layout)
	dir := t.TempDir()

	t.Run("valid jpeg passes", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "capture.jpg"), jpegMagic)
		ok, reason := validator.Validate(path, mediastore.KindImage)
		assert.True(t, ok, reason)
	})

	t.Run("valid png passes", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "capture.png"), pngMagic)
		ok, _ := validator.Validate(path, mediastore.KindImage)
		assert.True(t, ok)
	})

	t.Run("valid mp4 passes", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "capture.mp4"), mp4Magic)
		ok, reason := validator.Validate(path, mediastore.KindVideo)
		assert.True(t, ok, reason)
	})

	t.Run("missing file fails", func(t *testing.T) {
		ok, reason := validator.Validate(filepath.Join(dir, "nope.jpg"), mediastore.KindImage)
		assert.False(t, ok)
		assert.Contains(t, reason, "not found")
	})

	t.Run("one byte over the ceiling fails", func(t *testing.T) {
		content := append(append([]byte{}, jpegMagic...), bytes.Repeat([]byte{0}, 1<<20-len(jpegMagic)+1)...)
		path := writeFile(t, filepath.Join(dir, "huge.jpg"), content)
		ok, reason := validator.Validate(path, mediastore.KindImage)
		assert.False(t, ok)
		assert.Contains(t, reason, "exceeds")
	})

	t.Run("exactly at the ceiling passes", func(t *testing.T) {
		content := append(append([]byte{}, jpegMagic...), bytes.Repeat([]byte{0}, 1<<20-len(jpegMagic))...)
		path := writeFile(t, filepath.Join(dir, "exact.jpg"), content)
		ok, reason := validator.Validate(path, mediastore.KindImage)
		assert.True(t, ok, reason)
	})

	t.Run("video extension rejected for image kind", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "clip.mp4"), mp4Magic)
		ok, reason := validator.Validate(path, mediastore.KindImage)
		assert.False(t, ok)
		assert.Contains(t, reason, "not allowed")
	})

	t.Run("image extension rejected for video kind", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "frame.jpg"), jpegMagic)
		ok, reason := validator.Validate(path, mediastore.KindVideo)
		assert.False(t, ok)
		assert.Contains(t, reason, "not allowed")
	})

	t.Run("text content with image extension fails the sniff", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "fake.jpg"), []byte("just some text pretending to be a photo"))
		ok, reason := validator.Validate(path, mediastore.KindImage)
		assert.False(t, ok)
		assert.Contains(t, reason, "content type")
	})

	t.Run("unclassifiable mkv bytes pass as video", func(t *testing.T) {
		// Opaque binary sniffs as octet-stream; that must not block an
		// allowed container extension.
		path := writeFile(t, filepath.Join(dir, "capture.mkv"), []byte{0x00, 0x01, 0x02, 0x03, 0x04})
		ok, reason := validator.Validate(path, mediastore.KindVideo)
		assert.True(t, ok, reason)
	})

	t.Run("thumbnail kind uses the image policy", func(t *testing.T) {
		path := writeFile(t, filepath.Join(dir, "t.jpeg"), jpegMagic)
		ok, _ := validator.Validate(path, mediastore.KindThumbnail)
		assert.True(t, ok)
	})
}
