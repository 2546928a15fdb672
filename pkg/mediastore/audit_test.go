package mediastore_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BBoDDoGood/smartoko-app/pkg/mediastore"
)

func readAuditEntries(t *testing.T, dir string) []mediastore.AuditEntry {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("media_audit_%s.log", time.Now().Format("20060102")))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []mediastore.AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry mediastore.AuditEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestAuditLogRecord(t *testing.T) {
	dir := t.TempDir()
	log := mediastore.NewAuditLog(dir, "test", nil)
	assert.Equal(t, dir, log.Dir())

	target := int64(987)
	log.Record(7, mediastore.AuditActionUpload, &target, map[string]any{"filename": "a.jpg"})
	log.Record(7, mediastore.AuditActionListView, nil, nil)

	entries := readAuditEntries(t, dir)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.NotEqual(t, first.ID, entries[1].ID)
	assert.Equal(t, int64(7), first.ActorID)
	assert.Equal(t, mediastore.AuditActionUpload, first.Action)
	require.NotNil(t, first.TargetID)
	assert.Equal(t, target, *first.TargetID)
	assert.Equal(t, "a.jpg", first.Details["filename"])
	assert.Equal(t, "test", first.Environment)
	assert.False(t, first.Timestamp.IsZero())

	assert.Nil(t, entries[1].TargetID)
	assert.Equal(t, mediastore.AuditActionListView, entries[1].Action)
}

func TestAuditLogUnwritableDirFallsBack(t *testing.T) {
	// A regular file where the directory should be forces the fallback.
	blocker := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	log := mediastore.NewAuditLog(filepath.Join(blocker, "audit"), "test", nil)
	assert.NotEqual(t, filepath.Join(blocker, "audit"), log.Dir())

	// Recording must not panic even in the degraded setup.
	log.Record(1, mediastore.AuditActionStatsView, nil, nil)
}

func TestAuditDirForEnvironment(t *testing.T) {
	assert.Equal(t, "/var/log/smartoko/audit", mediastore.AuditDirForEnvironment("production"))
	assert.Equal(t, "/var/log/smartoko-staging/audit", mediastore.AuditDirForEnvironment("staging"))
	assert.Equal(t, filepath.Join("logs", "audit"), mediastore.AuditDirForEnvironment("development"))
	assert.Equal(t, filepath.Join("logs", "audit"), mediastore.AuditDirForEnvironment(""))
}
