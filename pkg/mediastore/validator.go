package mediastore

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Extension allow-lists per media family.
var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true, ".tiff": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
	}
)

// FileValidator checks an input file against size, extension and content-type
// policy before any processing begins. Validation failure is an ordinary
// negative result, never an error.
type FileValidator struct {
	layout *StorageLayout
}

// NewFileValidator creates a validator bound to the layout's policy limits.
func NewFileValidator(layout *StorageLayout) *FileValidator {
	return &FileValidator{layout: layout}
}

// Validate runs the policy checks in order, short-circuiting on the first
// failure: existence, per-kind size ceiling, extension allow-list, sniffed
// content type. It returns ok=false with a human-readable reason on failure.
func (v *FileValidator) Validate(path string, kind ArtifactKind) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Sprintf("file not found: %s", path)
	}

	if max := v.layout.MaxBytes(kind); info.Size() > max {
		return false, fmt.Sprintf("%s file exceeds %d MB limit (current %.1f MB)",
			kind.Family(), max>>20, float64(info.Size())/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(path))
	allowed := imageExtensions
	if kind.Family() == FamilyVideo {
		allowed = videoExtensions
	}
	if !allowed[ext] {
		return false, fmt.Sprintf("extension %q is not allowed for %s files", ext, kind.Family())
	}

	sniffed, err := sniffContentType(path)
	if err != nil {
		return false, fmt.Sprintf("cannot read file for content check: %v", err)
	}
	if !contentTypeConsistent(sniffed, kind.Family()) {
		return false, fmt.Sprintf("content type %q does not match expected %s file", sniffed, kind.Family())
	}

	return true, "validation passed"
}

// sniffContentType detects the content type from the first 512 bytes.
func sniffContentType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// contentTypeConsistent accepts a sniffed type whose top-level type matches
// the expected family. The sniffer cannot classify every container format
// (mkv and some avi variants come back as octet-stream), so an unclassified
// result passes; a conflicting top-level type rejects.
func contentTypeConsistent(sniffed string, family MediaFamily) bool {
	if strings.HasPrefix(sniffed, "application/octet-stream") {
		return true
	}
	return strings.HasPrefix(sniffed, string(family)+"/")
}
