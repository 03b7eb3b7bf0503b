// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Grant metrics. status is one of the GrantStatus values.
	IncGrant(status string)

	// GAM API call metrics, labeled by service and operation.
	ObserveGAMCall(service, operation string, duration time.Duration, ok bool)

	// Network list cache metrics.
	IncNetworkCacheHit()
	IncNetworkCacheMiss()

	// Report metrics. kind: "summary", "locations", "timeseries".
	IncReportServed(kind string)

	// Audit pipeline metrics.
	IncAuditEventPublished(status string) // status: "success" or "dropped"
	IncAuditEventProcessed(status string) // status: "success", "failed", "skipped"
	ObserveAuditBatchSize(size int)
	SetAuditQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
