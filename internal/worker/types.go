// Package worker implements the C9 worker pool: a fixed number of goroutines
// that claim queue jobs and run them through the pipeline engine, plus a
// background orphan-reaping loop. Adapted from the teacher's pkg/queue pool/
// worker/orphan split, but simplified: store.JobQueue already owns atomic
// claim-with-skip-locked and staleness-based reaping (ReapStale), so the
// worker pool itself carries no database-specific logic, only polling,
// health tracking, and graceful shutdown ordering.
package worker

import "time"

// Status is the current state of a single worker.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusWorking Status = "working"
)

// Config controls pool sizing and polling behavior.
type Config struct {
	WorkerCount         int
	PollInterval        time.Duration
	PollIntervalJitter  time.Duration
	ErrorBackoff        time.Duration
	OrphanReapInterval  time.Duration
}

// DefaultConfig mirrors the teacher's queue.Config defaults, scaled to this
// pipeline's much shorter per-stage durations.
func DefaultConfig() Config {
	return Config{
		WorkerCount:        4,
		PollInterval:       2 * time.Second,
		PollIntervalJitter: 500 * time.Millisecond,
		ErrorBackoff:       time.Second,
		OrphanReapInterval: time.Minute,
	}
}

// Health is a single worker's health snapshot.
type Health struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	CurrentJobID   string    `json:"current_job_id,omitempty"`
	JobsProcessed  int       `json:"jobs_processed"`
	LastActivity   time.Time `json:"last_activity"`
}

// PoolHealth is the whole pool's health snapshot; internal/api's /health
// handler reads its IsHealthy field.
type PoolHealth struct {
	IsHealthy        bool     `json:"is_healthy"`
	PodID            string   `json:"pod_id"`
	ActiveWorkers    int      `json:"active_workers"`
	TotalWorkers     int      `json:"total_workers"`
	WorkerStats      []Health `json:"worker_stats"`
	LastOrphanScan   time.Time `json:"last_orphan_scan"`
	OrphansReaped    int      `json:"orphans_reaped"`
}
