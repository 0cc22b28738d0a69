package output

import "time"

// Icon cache layers reported by IncIconLookups.
const (
	IconCacheBatch  = "batch"
	IconCacheShared = "shared"
)

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncBackendCalls increments the search backend call counter.
	IncBackendCalls(operation string, success bool)

	// ObserveBackendDuration records search backend call duration.
	ObserveBackendDuration(operation string, duration time.Duration)

	// IncExports increments the layer export counter.
	IncExports(layerID string, success bool)

	// IncSkippedRecords counts records dropped from a batch.
	IncSkippedRecords(reason string)

	// IncIconLookups counts icon resolutions by cache layer and outcome.
	IncIconLookups(cache string, hit bool)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncBackendCalls implements MetricsCollector.
func (n *NoOpMetrics) IncBackendCalls(_ string, _ bool) {}

// ObserveBackendDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveBackendDuration(_ string, _ time.Duration) {}

// IncExports implements MetricsCollector.
func (n *NoOpMetrics) IncExports(_ string, _ bool) {}

// IncSkippedRecords implements MetricsCollector.
func (n *NoOpMetrics) IncSkippedRecords(_ string) {}

// IncIconLookups implements MetricsCollector.
func (n *NoOpMetrics) IncIconLookups(_ string, _ bool) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
