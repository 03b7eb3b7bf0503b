package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncGrant is a no-op.
func (n *NoopRecorder) IncGrant(status string) {}

// ObserveGAMCall is a no-op.
func (n *NoopRecorder) ObserveGAMCall(service, operation string, duration time.Duration, ok bool) {}

// IncNetworkCacheHit is a no-op.
func (n *NoopRecorder) IncNetworkCacheHit() {}

// IncNetworkCacheMiss is a no-op.
func (n *NoopRecorder) IncNetworkCacheMiss() {}

// IncReportServed is a no-op.
func (n *NoopRecorder) IncReportServed(kind string) {}

// IncAuditEventPublished is a no-op.
func (n *NoopRecorder) IncAuditEventPublished(status string) {}

// IncAuditEventProcessed is a no-op.
func (n *NoopRecorder) IncAuditEventProcessed(status string) {}

// ObserveAuditBatchSize is a no-op.
func (n *NoopRecorder) ObserveAuditBatchSize(size int) {}

// SetAuditQueueDepth is a no-op.
func (n *NoopRecorder) SetAuditQueueDepth(depth int64) {}
