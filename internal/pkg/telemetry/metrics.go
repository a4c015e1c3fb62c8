package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricFixLatency     = "tracking.fix_latency"
	MetricJournalBacklog = "tracking.journal_backlog"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricDwellEvents   = "business.dwells_confirmed"
	MetricCuratedTrips  = "business.trips_curated"
	MetricClustersBuilt = "business.clusters_built"
)
