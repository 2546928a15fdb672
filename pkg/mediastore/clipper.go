package mediastore

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultClipTimeout bounds one ffmpeg invocation; past it the extraction is
// treated as a toolchain failure and falls back to a verbatim copy.
const DefaultClipTimeout = 2 * time.Minute

// FFmpegClipExtractor cuts detection clips with the external ffmpeg binary.
type FFmpegClipExtractor struct {
	Bin     string
	Timeout time.Duration
	Preset  Preset
}

// NewFFmpegClipExtractor creates an extractor using ffmpeg from PATH and the
// given encoder preset.
func NewFFmpegClipExtractor(preset Preset) *FFmpegClipExtractor {
	return &FFmpegClipExtractor{
		Bin:     "ffmpeg",
		Timeout: DefaultClipTimeout,
		Preset:  preset,
	}
}

// ExtractClip cuts a window of BeforeSeconds+AfterSeconds from the source.
// Uploaded recordings are per-detection captures, so the window is taken from
// the start of the source rather than seeking to the detection instant within
// a longer archive. On any toolchain failure the source is copied verbatim
// and the outcome is Degraded.
func (e *FFmpegClipExtractor) ExtractClip(ctx context.Context, source, dest string, opts ClipOptions) (ProcessOutcome, error) {
	bin := e.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fallbackCopy("clip", source, dest, fmt.Errorf("%w: %v", ErrToolchainUnavailable, err))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ProcessOutcome{}, &ProcessError{Tool: "clip", Source: source, Err: err}
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultClipTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	duration := opts.BeforeSeconds + opts.AfterSeconds
	args := []string{"-y", "-ss", "0", "-i", source, "-t", strconv.Itoa(duration)}
	args = append(args, e.Preset.Args()...)
	args = append(args, dest)

	cmd := exec.CommandContext(ctx, bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		// A failed run can leave a partial file behind; the fallback copy
		// overwrites it.
		cause := fmt.Errorf("ffmpeg clip extraction failed: %w: %s", err, lastLine(out))
		return fallbackCopy("clip", source, dest, cause)
	}

	return Processed(), nil
}

// Available probes whether the configured ffmpeg binary can be invoked.
func (e *FFmpegClipExtractor) Available() (string, error) {
	bin := e.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolchainUnavailable, err)
	}
	return path, nil
}

// lastLine trims ffmpeg's verbose output down to its final diagnostic line.
func lastLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
