package mediastore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only record of a mutating or viewing media action.
type AuditEntry struct {
	ID          uuid.UUID      `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	ActorID     int64          `json:"user_id"`
	Action      string         `json:"action"`
	TargetID    *int64         `json:"target_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Environment string         `json:"environment"`
}

// Audit action names.
const (
	AuditActionUpload     = "upload"
	AuditActionDelete     = "delete"
	AuditActionListView   = "list_view"
	AuditActionDetailView = "detail_view"
	AuditActionStatsView  = "stats_view"
)

// AuditLog appends structured entries to per-day NDJSON files in an
// environment-specific directory chosen once at startup. Audit writes are
// strictly best-effort: a failure is logged and counted but never blocks the
// triggering media operation.
type AuditLog struct {
	dir         string
	environment string
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuditLog creates the log directory and returns the sink. When the
// directory cannot be created the log falls back to a temp location rather
// than disabling auditing entirely.
func NewAuditLog(dir, environment string, logger *slog.Logger) *AuditLog {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fallback := filepath.Join(os.TempDir(), "smartoko-audit")
		logger.Error("audit directory unavailable, using fallback",
			"dir", dir, "fallback", fallback, "error", err)
		dir = fallback
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("audit fallback directory unavailable", "dir", dir, "error", err)
		}
	}
	return &AuditLog{dir: dir, environment: environment, logger: logger, now: time.Now}
}

// Dir returns the resolved audit directory.
func (a *AuditLog) Dir() string { return a.dir }

// Record appends one entry to today's log file.
func (a *AuditLog) Record(actorID int64, action string, targetID *int64, details map[string]any) {
	now := a.now()
	entry := AuditEntry{
		ID:          uuid.New(),
		Timestamp:   now,
		ActorID:     actorID,
		Action:      action,
		TargetID:    targetID,
		Details:     details,
		Environment: a.environment,
	}

	if err := a.append(entry, now); err != nil {
		auditWriteFailuresTotal.Inc()
		a.logger.Error("audit write failed", "action", action, "actor_id", actorID, "error", err)
	}
}

func (a *AuditLog) append(entry AuditEntry, now time.Time) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	path := filepath.Join(a.dir, fmt.Sprintf("media_audit_%s.log", now.Format("20060102")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// AuditDirForEnvironment returns the conventional audit directory for an
// environment when none is configured explicitly.
func AuditDirForEnvironment(environment string) string {
	switch environment {
	case "production":
		return "/var/log/smartoko/audit"
	case "staging":
		return "/var/log/smartoko-staging/audit"
	default:
		return filepath.Join("logs", "audit")
	}
}
