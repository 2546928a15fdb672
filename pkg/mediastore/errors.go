package mediastore

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrDetectionNotFound indicates the detection's media record was not found
	ErrDetectionNotFound = errors.New("detection media not found")

	// ErrUnknownUser indicates the identity provider has no record for the user
	ErrUnknownUser = errors.New("unknown user")

	// ErrPermissionDenied indicates the user lacks the required capability
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedFileType indicates an ingest request with an unrecognized kind
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrToolchainUnavailable indicates the external media toolchain cannot be invoked
	ErrToolchainUnavailable = errors.New("media toolchain unavailable")
)

// StoreError represents an error while persisting a single artifact.
type StoreError struct {
	Kind         ArtifactKind
	DetectionSeq int64
	Op           string
	Err          error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for %s det%06d: %v", e.Op, e.Kind, e.DetectionSeq, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ProcessError represents a toolchain transformation failure that could not be
// recovered by a fallback copy.
type ProcessError struct {
	Tool   string
	Source string
	Err    error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s processing failed for %s: %v", e.Tool, e.Source, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}
