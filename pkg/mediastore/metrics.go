package mediastore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics. Degradations are counted per artifact kind so that
// repeated fallback copies surface in alerting instead of hiding behind
// otherwise-successful ingests.
var (
	ingestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediastore_ingests_total",
			Help: "Detection media ingestions by file type and result",
		},
		[]string{"file_type", "result"},
	)

	artifactsStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediastore_artifacts_stored_total",
			Help: "Artifacts persisted under the storage root by kind",
		},
		[]string{"kind"},
	)

	degradationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediastore_degraded_artifacts_total",
			Help: "Artifacts stored via fallback copy after a failed transformation",
		},
		[]string{"kind"},
	)

	quarantinedFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediastore_quarantined_files_total",
			Help: "Artifact files moved to the quarantine area",
		},
	)

	auditWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediastore_audit_write_failures_total",
			Help: "Audit entries that could not be written",
		},
	)
)
