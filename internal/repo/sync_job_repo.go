package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/merchantkit/storesync/internal/model"
	"github.com/merchantkit/storesync/internal/pkg/dbutil"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
)

var syncJobFields = []string{
	"tenant_id", "display_name", "priority", "status", "retry_count",
	"next_run_at", "last_success_at", "last_error", "ctime", "mtime",
}

type SyncJobRepo struct {
	db *sql.DB
}

func NewSyncJobRepo(db *sql.DB) *SyncJobRepo {
	return &SyncJobRepo{db: db}
}

// Create inserts the job if none exists for the tenant. Returns false when a
// job is already present, so discovery scans stay idempotent.
func (r *SyncJobRepo) Create(ctx context.Context, job *model.SyncJob) (bool, error) {
	now := time.Now().UnixMilli()
	data := map[string]interface{}{
		"tenant_id":    job.TenantID,
		"display_name": job.DisplayName,
		"priority":     string(job.Priority),
		"status":       string(job.Status),
		"retry_count":  job.RetryCount,
		"next_run_at":  job.NextRunAt.UnixMilli(),
		"last_error":   job.LastError,
		"ctime":        now,
		"mtime":        now,
	}
	if job.LastSuccessAt != nil {
		data["last_success_at"] = job.LastSuccessAt.UnixMilli()
	}
	sqlStr, args, err := builder.BuildInsert("sync_jobs", []map[string]interface{}{data})
	if err != nil {
		return false, err
	}
	sqlStr = dbutil.Rebind(sqlStr) + " ON CONFLICT (tenant_id) DO NOTHING"
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SyncJobRepo) Get(ctx context.Context, tenantID string) (*model.SyncJob, error) {
	where := map[string]interface{}{"tenant_id": tenantID}
	sqlStr, args, err := builder.BuildSelect("sync_jobs", where, syncJobFields)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, dbutil.Rebind(sqlStr), args...)
	job, err := scanSyncJob(row)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	return job, err
}

func (r *SyncJobRepo) List(ctx context.Context) ([]model.SyncJob, error) {
	where := map[string]interface{}{"_orderby": "display_name asc"}
	sqlStr, args, err := builder.BuildSelect("sync_jobs", where, syncJobFields)
	if err != nil {
		return nil, err
	}
	return r.queryJobs(ctx, dbutil.Rebind(sqlStr), args...)
}

// ListDue returns pending jobs whose next_run_at has passed, soonest first.
func (r *SyncJobRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]model.SyncJob, error) {
	const query = `
		SELECT tenant_id, display_name, priority, status, retry_count,
			next_run_at, last_success_at, last_error, ctime, mtime
		FROM sync_jobs
		WHERE status = $1 AND next_run_at <= $2
		ORDER BY next_run_at ASC
		LIMIT $3
	`
	return r.queryJobs(ctx, query, string(model.JobStatusPending), now.UnixMilli(), limit)
}

// PromoteDue moves completed and failed jobs whose next_run_at has passed back
// to pending so the due-job selection picks them up.
func (r *SyncJobRepo) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE sync_jobs SET status = $1, mtime = $2
		WHERE status IN ($3, $4) AND next_run_at <= $5
	`
	res, err := r.db.ExecContext(ctx, query,
		string(model.JobStatusPending), now.UnixMilli(),
		string(model.JobStatusCompleted), string(model.JobStatusFailed), now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResetStaleRunning requeues jobs stranded in running by a crashed process:
// mtime is bumped on every job update, so a running row untouched for longer
// than olderThan has no live worker behind it.
func (r *SyncJobRepo) ResetStaleRunning(ctx context.Context, now time.Time, olderThan time.Duration) (int64, error) {
	cutoff := now.Add(-olderThan)
	const query = `
		UPDATE sync_jobs SET status = $1, mtime = $2
		WHERE status = $3 AND mtime <= $4
	`
	res, err := r.db.ExecContext(ctx, query,
		string(model.JobStatusPending), now.UnixMilli(),
		string(model.JobStatusRunning), cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListPausedDue returns paused jobs whose recheck time has passed. The
// orchestrator resumes them only when the tenant's reconnection flag cleared.
func (r *SyncJobRepo) ListPausedDue(ctx context.Context, now time.Time, limit int) ([]model.SyncJob, error) {
	const query = `
		SELECT tenant_id, display_name, priority, status, retry_count,
			next_run_at, last_success_at, last_error, ctime, mtime
		FROM sync_jobs
		WHERE status = $1 AND next_run_at <= $2
		ORDER BY next_run_at ASC
		LIMIT $3
	`
	return r.queryJobs(ctx, query, string(model.JobStatusPaused), now.UnixMilli(), limit)
}

// Update persists the mutable job fields. The orchestrator is the only writer.
func (r *SyncJobRepo) Update(ctx context.Context, job *model.SyncJob) error {
	where := map[string]interface{}{"tenant_id": job.TenantID}
	update := map[string]interface{}{
		"priority":    string(job.Priority),
		"status":      string(job.Status),
		"retry_count": job.RetryCount,
		"next_run_at": job.NextRunAt.UnixMilli(),
		"last_error":  job.LastError,
		"mtime":       time.Now().UnixMilli(),
	}
	if job.LastSuccessAt != nil {
		update["last_success_at"] = job.LastSuccessAt.UnixMilli()
	}
	sqlStr, args, err := builder.BuildUpdate("sync_jobs", where, update)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(sqlStr), args...)
	return err
}

func (r *SyncJobRepo) queryJobs(ctx context.Context, query string, args ...interface{}) ([]model.SyncJob, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var jobs []model.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSyncJob(row rowScanner) (*model.SyncJob, error) {
	var job model.SyncJob
	var priority, status string
	var nextRunAt, ctime, mtime int64
	var lastSuccessAt sql.NullInt64
	var lastError sql.NullString
	if err := row.Scan(&job.TenantID, &job.DisplayName, &priority, &status, &job.RetryCount,
		&nextRunAt, &lastSuccessAt, &lastError, &ctime, &mtime); err != nil {
		return nil, err
	}
	job.Priority = model.PriorityTier(priority)
	job.Status = model.JobStatus(status)
	job.NextRunAt = time.UnixMilli(nextRunAt)
	if lastSuccessAt.Valid {
		t := time.UnixMilli(lastSuccessAt.Int64)
		job.LastSuccessAt = &t
	}
	job.LastError = lastError.String
	job.Ctime = time.UnixMilli(ctime)
	job.Mtime = time.UnixMilli(mtime)
	return &job, nil
}
