package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	GrantsByStatus       map[string]uint64
	GAMCalls             uint64
	GAMCallErrors        uint64
	GAMCallTotalNs       int64
	NetworkCacheHits     uint64
	NetworkCacheMisses   uint64
	ReportsByKind        map[string]uint64
	AuditPublished       uint64
	AuditDropped         uint64
	AuditProcessed       uint64
	AuditProcessedFailed uint64
	AuditBatchCount      uint64
	AuditQueueDepth      int64
}

// InMemoryRecorder stores metrics in memory for tests and the dev
// metrics endpoint. Labeled counters use maps, so a mutex rather than
// atomics.
type InMemoryRecorder struct {
	mu sync.Mutex
	s  Snapshot
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		s: Snapshot{
			GrantsByStatus: make(map[string]uint64),
			ReportsByKind:  make(map[string]uint64),
		},
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.s
	out.GrantsByStatus = make(map[string]uint64, len(m.s.GrantsByStatus))
	for k, v := range m.s.GrantsByStatus {
		out.GrantsByStatus[k] = v
	}
	out.ReportsByKind = make(map[string]uint64, len(m.s.ReportsByKind))
	for k, v := range m.s.ReportsByKind {
		out.ReportsByKind[k] = v
	}
	return out
}

// IncGrant increments the counter for a grant status.
func (m *InMemoryRecorder) IncGrant(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.GrantsByStatus[status]++
}

// ObserveGAMCall records one GAM API call.
func (m *InMemoryRecorder) ObserveGAMCall(service, operation string, duration time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.GAMCalls++
	m.s.GAMCallTotalNs += duration.Nanoseconds()
	if !ok {
		m.s.GAMCallErrors++
	}
}

// IncNetworkCacheHit increments the network cache hit counter.
func (m *InMemoryRecorder) IncNetworkCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.NetworkCacheHits++
}

// IncNetworkCacheMiss increments the network cache miss counter.
func (m *InMemoryRecorder) IncNetworkCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.NetworkCacheMisses++
}

// IncReportServed increments the counter for a report kind.
func (m *InMemoryRecorder) IncReportServed(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.ReportsByKind[kind]++
}

// IncAuditEventPublished counts audit stream publishes.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == "success" {
		m.s.AuditPublished++
	} else {
		m.s.AuditDropped++
	}
}

// IncAuditEventProcessed counts audit worker outcomes.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == "success" {
		m.s.AuditProcessed++
	} else {
		m.s.AuditProcessedFailed++
	}
}

// ObserveAuditBatchSize records one processed batch.
func (m *InMemoryRecorder) ObserveAuditBatchSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.AuditBatchCount++
}

// SetAuditQueueDepth records the current stream depth.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.AuditQueueDepth = depth
}
