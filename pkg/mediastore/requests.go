package mediastore

import (
	"io"
	"time"
)

// UploadRequest describes an authenticated media upload.
type UploadRequest struct {
	UserID int64

	// DetectionID links the artifacts to an existing detection record when
	// non-zero; otherwise the ingestion's synthesized sequence stands alone.
	DetectionID int64

	DeviceName  string
	DetectionAt time.Time
	FileType    string
	Filename    string
	Reader      io.Reader
}

// UploadOutcome is the structured result of an upload operation.
type UploadOutcome struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	ErrorCode     ErrorCode       `json:"error_code,omitempty"`
	Ingest        *IngestOutcome  `json:"ingest,omitempty"`
	Media         *DetectionMedia `json:"detection_media,omitempty"`
	ElapsedMillis float64         `json:"processing_time_ms"`
}

// DeleteRequest describes an authenticated media deletion.
type DeleteRequest struct {
	UserID      int64
	DetectionID int64
}

// DeleteOutcome is the structured result of a delete operation.
type DeleteOutcome struct {
	Success            bool      `json:"success"`
	Message            string    `json:"message"`
	ErrorCode          ErrorCode `json:"error_code,omitempty"`
	DeletedDetectionID int64     `json:"deleted_detection_id,omitempty"`
	DeletedFileCount   int       `json:"deleted_file_count"`
	QuarantineDir      string    `json:"quarantine_dir,omitempty"`
}
