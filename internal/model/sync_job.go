package model

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusPaused    JobStatus = "paused"
)

type PriorityTier string

const (
	PriorityImmediate PriorityTier = "immediate"
	PriorityHigh      PriorityTier = "high"
	PriorityMedium    PriorityTier = "medium"
	PriorityLow       PriorityTier = "low"
)

// SyncJob is the per-tenant synchronization record. One row per tenant;
// jobs are paused, never deleted, while the tenant is active.
type SyncJob struct {
	TenantID      string       `json:"tenant_id"`
	DisplayName   string       `json:"display_name"`
	Priority      PriorityTier `json:"priority"`
	Status        JobStatus    `json:"status"`
	RetryCount    int          `json:"retry_count"`
	NextRunAt     time.Time    `json:"next_run_at"`
	LastSuccessAt *time.Time   `json:"last_success_at,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	Ctime         time.Time    `json:"ctime"`
	Mtime         time.Time    `json:"mtime"`
}
