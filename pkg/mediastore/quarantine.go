package mediastore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// QuarantineManager moves artifact sets into an isolated retention area
// instead of deleting them. Quarantined files are partitioned by deletion
// date and acting user and kept until an external retention process purges
// them; deletion therefore never destroys the only copy of a file.
type QuarantineManager struct {
	layout *StorageLayout
	logger *slog.Logger
	now    func() time.Time
}

// NewQuarantineManager creates a manager bound to the storage layout.
func NewQuarantineManager(layout *StorageLayout, logger *slog.Logger) *QuarantineManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuarantineManager{layout: layout, logger: logger, now: time.Now}
}

// Quarantine resolves each artifact URL back to its path under the storage
// root and renames it into quarantine/<YYYYMMDD>/user_<id>/. The rename is a
// true move, so a file is never duplicated mid-operation. URLs outside the
// storage prefix and files already gone from disk are skipped, not fatal.
func (q *QuarantineManager) Quarantine(artifactURLs []string, actingUserID int64) (QuarantineOutcome, error) {
	dest := filepath.Join(
		q.layout.QuarantineDir(),
		q.now().Format("20060102"),
		fmt.Sprintf("user_%d", actingUserID),
	)
	outcome := QuarantineOutcome{QuarantineDir: dest}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return outcome, fmt.Errorf("create quarantine directory %s: %w", dest, err)
	}

	for _, url := range artifactURLs {
		source, ok := q.layout.PathForURL(url)
		if !ok {
			q.logger.Warn("skipping artifact outside storage prefix", "url", url)
			continue
		}
		if _, err := os.Stat(source); err != nil {
			q.logger.Warn("skipping missing artifact", "path", source)
			continue
		}

		target := filepath.Join(dest, filepath.Base(source))
		if err := os.Rename(source, target); err != nil {
			q.logger.Error("quarantine move failed", "path", source, "error", err)
			continue
		}

		outcome.MovedCount++
		outcome.MovedPaths = append(outcome.MovedPaths, target)
		quarantinedFilesTotal.Inc()
		q.logger.Info("artifact quarantined", "from", source, "to", target)
	}

	return outcome, nil
}
