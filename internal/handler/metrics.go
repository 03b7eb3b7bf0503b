package handler

import (
	"fmt"
	"net/http"

	"github.com/gamaccess/gamaccess/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns counters in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	for status, count := range snap.GrantsByStatus {
		writeMetric(w, "gamaccess_grants_total{status=%q} %d\n", status, count)
	}

	writeMetric(w, "gamaccess_gam_calls_total %d\n", snap.GAMCalls)
	writeMetric(w, "gamaccess_gam_call_errors_total %d\n", snap.GAMCallErrors)
	writeMetric(w, "gamaccess_gam_call_duration_seconds_sum %.6f\n", float64(snap.GAMCallTotalNs)/1e9)

	writeMetric(w, "gamaccess_network_cache_hits_total %d\n", snap.NetworkCacheHits)
	writeMetric(w, "gamaccess_network_cache_misses_total %d\n", snap.NetworkCacheMisses)

	for kind, count := range snap.ReportsByKind {
		writeMetric(w, "gamaccess_reports_served_total{kind=%q} %d\n", kind, count)
	}

	writeMetric(w, "gamaccess_audit_events_published_total{status=\"success\"} %d\n", snap.AuditPublished)
	writeMetric(w, "gamaccess_audit_events_published_total{status=\"dropped\"} %d\n", snap.AuditDropped)
	writeMetric(w, "gamaccess_audit_events_processed_total{status=\"success\"} %d\n", snap.AuditProcessed)
	writeMetric(w, "gamaccess_audit_events_processed_total{status=\"failed\"} %d\n", snap.AuditProcessedFailed)
	writeMetric(w, "gamaccess_audit_batches_total %d\n", snap.AuditBatchCount)
	writeMetric(w, "gamaccess_audit_queue_depth %d\n", snap.AuditQueueDepth)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
