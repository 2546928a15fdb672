package mediastore

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

var labelDigits = regexp.MustCompile(`\d+`)

// Namer derives organized storage directories and deterministic,
// hash-qualified artifact filenames. The same identity tuple at the same
// processing instant always yields the same name; a different processing
// instant yields a different one, so re-processing a detection never
// overwrites an earlier artifact.
type Namer struct {
	environment string
	now         func() time.Time
}

// NewNamer creates a Namer for the given storage environment. The environment
// participates in the verification hash but not in the path structure.
func NewNamer(environment string) *Namer {
	return &Namer{environment: environment, now: time.Now}
}

// OrganizedDirectory returns base/YYYY/MM/device_NNN for the detection
// timestamp, creating it if absent. Creation is idempotent and safe under
// concurrent callers.
func (n *Namer) OrganizedDirectory(base string, deviceID int, detectionAt time.Time) (string, error) {
	dir := filepath.Join(base,
		fmt.Sprintf("%04d", detectionAt.Year()),
		fmt.Sprintf("%02d", int(detectionAt.Month())),
		fmt.Sprintf("device_%03d", deviceID),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create organized directory %s: %w", dir, err)
	}
	return dir, nil
}

// DeterministicFilename builds the artifact filename from the detection
// sequence, the artifact kind, the detection timestamp and the processing
// instant captured at call time. An 8-hex-character truncated SHA-256 over
// the full identity tuple keeps names collision-resistant even when two
// uploads share an original filename. Image and video kinds append a
// sanitized stem of the original filename; thumbnails and clips always use
// their fixed extension.
func (n *Namer) DeterministicFilename(detectionSeq int64, kind ArtifactKind, detectionAt time.Time, originalFilename string) string {
	detStr := detectionAt.Format(timestampLayout)
	procStr := n.now().Format(timestampLayout)

	ext := kind.DefaultExt()
	stem := ""
	if originalFilename != "" {
		if e := strings.ToLower(filepath.Ext(originalFilename)); e != "" {
			ext = e
		}
		stem = sanitizeStem(strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename)))
	}

	hashInput := fmt.Sprintf("%d_%s_%s_%s_%s_%s", detectionSeq, detStr, procStr, kind, stem, n.environment)
	sum := sha256.Sum256([]byte(hashInput))
	base := fmt.Sprintf("det%06d_%s_%s_%08x", detectionSeq, detStr, procStr, sum[:4])

	switch kind {
	case KindThumbnail, KindVideoClip:
		return kind.Prefix() + base + kind.DefaultExt()
	default:
		if stem != "" {
			return kind.Prefix() + base + "_" + stem + ext
		}
		return kind.Prefix() + base + ext
	}
}

// sanitizeStem keeps alphanumerics, '-' and '_' and caps the stem at 15
// characters.
func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			b.WriteRune(r)
			if b.Len() >= 15 {
				break
			}
		}
	}
	return b.String()
}

// DeviceIDFromLabel resolves a numeric device identifier from a free-text
// device label: the first embedded number wins when it falls in 1..9999,
// anything else resolves to 1. Resolution is deliberately lenient to keep
// ingestion available when device naming drifts.
func DeviceIDFromLabel(label string) int {
	m := labelDigits.FindString(label)
	if m == "" {
		return 1
	}
	var id int
	if _, err := fmt.Sscanf(m, "%d", &id); err != nil {
		return 1
	}
	if id < 1 || id > 9999 {
		return 1
	}
	return id
}
