package models

import "time"

// SystemMetrics is an aggregated view of runtime counters served on the metrics summary endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	ConflictsRejected        uint64    `json:"conflicts_rejected"`
	DaysResolved             uint64    `json:"days_resolved"`
	ExportsSucceeded         uint64    `json:"exports_succeeded"`
	ExportsFailed            uint64    `json:"exports_failed"`
	ExceptionsPruned         uint64    `json:"exceptions_pruned"`
	RateLimited              uint64    `json:"rate_limited"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
