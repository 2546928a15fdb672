package mediastore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNamer(environment string, at time.Time) *Namer {
	n := NewNamer(environment)
	n.now = func() time.Time { return at }
	return n
}

func TestDeterministicFilename(t *testing.T) {
	detectionAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	processedAt := time.Date(2026, 3, 14, 9, 27, 0, 0, time.UTC)
	namer := fixedNamer("test", processedAt)

	t.Run("same inputs yield same name", func(t *testing.T) {
		a := namer.DeterministicFilename(42, KindImage, detectionAt, "backyard.jpg")
		b := namer.DeterministicFilename(42, KindImage, detectionAt, "backyard.jpg")
		assert.Equal(t, a, b)
	})

	t.Run("different processing instant yields different name", func(t *testing.T) {
		a := namer.DeterministicFilename(42, KindImage, detectionAt, "backyard.jpg")
		later := fixedNamer("test", processedAt.Add(time.Second))
		b := later.DeterministicFilename(42, KindImage, detectionAt, "backyard.jpg")
		assert.NotEqual(t, a, b)
	})

	t.Run("image name carries prefix, timestamps and stem", func(t *testing.T) {
		name := namer.DeterministicFilename(42, KindImage, detectionAt, "backyard.jpg")
		assert.True(t, strings.HasPrefix(name, "img_det000042_20260314_092653_20260314_092700_"), name)
		assert.True(t, strings.HasSuffix(name, "_backyard.jpg"), name)
	})

	t.Run("thumbnail and clip drop the stem and fix the extension", func(t *testing.T) {
		thumb := namer.DeterministicFilename(42, KindThumbnail, detectionAt, "backyard.png")
		assert.True(t, strings.HasPrefix(thumb, "thumb_"), thumb)
		assert.True(t, strings.HasSuffix(thumb, ".jpg"), thumb)
		assert.NotContains(t, thumb, "backyard")

		clip := namer.DeterministicFilename(42, KindVideoClip, detectionAt, "capture.mkv")
		assert.True(t, strings.HasPrefix(clip, "clip_"), clip)
		assert.True(t, strings.HasSuffix(clip, ".mp4"), clip)
		assert.NotContains(t, clip, "capture")
	})

	t.Run("kinds differ in hash even with identical metadata", func(t *testing.T) {
		img := namer.DeterministicFilename(42, KindImage, detectionAt, "")
		vid := namer.DeterministicFilename(42, KindVideo, detectionAt, "")
		assert.NotEqual(t, strings.TrimPrefix(img, "img_"), strings.TrimPrefix(vid, "vid_"))
	})

	t.Run("missing original filename falls back to default extension", func(t *testing.T) {
		name := namer.DeterministicFilename(7, KindVideo, detectionAt, "")
		assert.True(t, strings.HasSuffix(name, ".mp4"), name)
	})

	t.Run("stem is sanitized and capped", func(t *testing.T) {
		name := namer.DeterministicFilename(7, KindImage, detectionAt, "front door cam #3 (copy of a long name).jpeg")
		parts := strings.Split(strings.TrimSuffix(name, ".jpeg"), "_")
		stem := parts[len(parts)-1]
		assert.LessOrEqual(t, len(stem), 15)
		for _, r := range stem {
			assert.True(t, r == '-' || r == '_' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
				"unexpected rune %q in stem %q", r, stem)
		}
	})
}

func TestOrganizedDirectory(t *testing.T) {
	base := t.TempDir()
	namer := NewNamer("test")
	detectionAt := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)

	dir, err := namer.OrganizedDirectory(base, 3, detectionAt)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "2026", "07", "device_003"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	t.Run("idempotent under repeated and concurrent calls", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				again, err := namer.OrganizedDirectory(base, 3, detectionAt)
				assert.NoError(t, err)
				assert.Equal(t, dir, again)
			}()
		}
		wg.Wait()
	})
}

func TestDeviceIDFromLabel(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"camera_003", 3},
		{"Cam 12 backyard", 12},
		{"dev9999", 9999},
		{"dev10000", 1},
		{"unit_0", 1},
		{"front door", 1},
		{"", 1},
		{"cam7b2", 7},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, DeviceIDFromLabel(tt.label))
		})
	}
}
