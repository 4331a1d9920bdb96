package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/merchantkit/storesync/internal/lock"
	"github.com/merchantkit/storesync/internal/model"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
	"github.com/merchantkit/storesync/internal/shop"
)

const opSync = "sync"

// JobStore is the durable SyncJob table. Implemented by repo.SyncJobRepo.
type JobStore interface {
	Create(ctx context.Context, job *model.SyncJob) (bool, error)
	Get(ctx context.Context, tenantID string) (*model.SyncJob, error)
	List(ctx context.Context) ([]model.SyncJob, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.SyncJob, error)
	ListPausedDue(ctx context.Context, now time.Time, limit int) ([]model.SyncJob, error)
	PromoteDue(ctx context.Context, now time.Time) (int64, error)
	ResetStaleRunning(ctx context.Context, now time.Time, olderThan time.Duration) (int64, error)
	Update(ctx context.Context, job *model.SyncJob) error
}

// TenantStore is the tenant directory. Implemented by repo.TenantRepo.
type TenantStore interface {
	Get(ctx context.Context, id string) (*model.Tenant, error)
	ListActive(ctx context.Context) ([]model.Tenant, error)
}

type CredentialSource interface {
	GetValidToken(ctx context.Context, tenantID string) (string, error)
	FlagForReconnection(ctx context.Context, tenantID string, reason string) error
}

// Indexer is the retrieval engine surface the orchestrator drives.
type Indexer interface {
	IndexEntity(ctx context.Context, entity model.Entity, tenantID string) error
	InitializeNamespace(ctx context.Context, tenantID string, kind model.EntityKind) error
}

// Archiver persists raw fetch payloads for audit/replay. Optional; archive
// failures never fail a sync.
type Archiver interface {
	Archive(ctx context.Context, tenantID string, category string, payload interface{}) error
}

type Config struct {
	BatchSize  int
	BatchPause time.Duration
	DueLimit   int
}

// Orchestrator owns the per-tenant job table: it selects due jobs, runs them
// under per-tenant leases with bounded parallelism, and applies the
// backoff/escalation policy on failure.
type Orchestrator struct {
	jobs     JobStore
	tenants  TenantStore
	locks    *lock.Manager
	creds    CredentialSource
	shop     shop.Client
	indexer  Indexer
	archiver Archiver

	batchSize  int
	batchPause time.Duration
	dueLimit   int
	now        func() time.Time

	mu          sync.Mutex
	lastReports map[string]*Report
}

type Deps struct {
	Jobs     JobStore
	Tenants  TenantStore
	Locks    *lock.Manager
	Creds    CredentialSource
	Shop     shop.Client
	Indexer  Indexer
	Archiver Archiver
}

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.BatchPause <= 0 {
		cfg.BatchPause = 2 * time.Second
	}
	if cfg.DueLimit <= 0 {
		cfg.DueLimit = 100
	}
	return &Orchestrator{
		jobs:        deps.Jobs,
		tenants:     deps.Tenants,
		locks:       deps.Locks,
		creds:       deps.Creds,
		shop:        deps.Shop,
		indexer:     deps.Indexer,
		archiver:    deps.Archiver,
		batchSize:   cfg.BatchSize,
		batchPause:  cfg.BatchPause,
		dueLimit:    cfg.DueLimit,
		now:         time.Now,
		lastReports: make(map[string]*Report),
	}
}

// Tick runs one scheduling round: resume eligible paused jobs, promote
// completed/failed jobs whose time has come, then process due jobs in
// bounded-size batches with a pause in between.
func (o *Orchestrator) Tick(ctx context.Context) error {
	now := o.now()
	logger := logutil.GetLogger(ctx)

	o.resumePaused(ctx, now)
	if recovered, err := o.jobs.ResetStaleRunning(ctx, now, runningStaleAfter); err != nil {
		return fmt.Errorf("reset stale running jobs: %w", err)
	} else if recovered > 0 {
		logger.Warn("requeued jobs stranded in running", zap.Int64("count", recovered))
	}
	if _, err := o.jobs.PromoteDue(ctx, now); err != nil {
		return fmt.Errorf("promote due jobs: %w", err)
	}
	due, err := o.jobs.ListDue(ctx, now, o.dueLimit)
	if err != nil {
		return fmt.Errorf("list due jobs: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	logger.Info("processing due sync jobs", zap.Int("count", len(due)), zap.Int("batch_size", o.batchSize))

	for start := 0; start < len(due); start += o.batchSize {
		end := start + o.batchSize
		if end > len(due) {
			end = len(due)
		}
		var g errgroup.Group
		for i := start; i < end; i++ {
			job := due[i]
			g.Go(func() error {
				report := o.runJob(ctx, &job)
				o.recordReport(report)
				return nil
			})
		}
		_ = g.Wait()

		if end < len(due) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.batchPause):
			}
		}
	}
	return nil
}

// TriggerImmediateSync runs one tenant's sync now, outside the periodic tick.
// It still goes through locking: a concurrent scheduled run wins and the
// caller gets ErrBusy.
func (o *Orchestrator) TriggerImmediateSync(ctx context.Context, tenantID string) (*Report, error) {
	job, err := o.jobs.Get(ctx, tenantID)
	if appErr.IsNotFound(err) {
		if err := o.ensureJob(ctx, tenantID); err != nil {
			return nil, err
		}
		job, err = o.jobs.Get(ctx, tenantID)
	}
	if err != nil {
		return nil, err
	}
	report := o.runJob(ctx, job)
	o.recordReport(report)
	if report.Outcome == OutcomeSkipped {
		return report, appErr.ErrBusy
	}
	return report, nil
}

// Status returns the job table plus active lease info.
func (o *Orchestrator) Status(ctx context.Context) ([]model.SyncJob, []lock.LeaseInfo, error) {
	jobs, err := o.jobs.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jobs, o.locks.Holders(), nil
}

func (o *Orchestrator) LastReport(tenantID string) *Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastReports[tenantID]
}

// ForceUnlock releases every lease held for the tenant. In-flight work is
// cancelled via lease revocation before its next externally-visible write.
func (o *Orchestrator) ForceUnlock(ctx context.Context, tenantID string) int {
	return o.locks.ForceReleaseAll(ctx, tenantID)
}

// EnsureJobs is the discovery scan: it creates a SyncJob for every active
// tenant that does not have one yet. Idempotent.
func (o *Orchestrator) EnsureJobs(ctx context.Context) error {
	tenants, err := o.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	for _, tenant := range tenants {
		if err := o.createJobForTenant(ctx, &tenant); err != nil {
			logutil.GetLogger(ctx).Error("create sync job failed",
				zap.String("tenant_id", tenant.ID), zap.Error(err))
		}
	}
	return nil
}

func (o *Orchestrator) ensureJob(ctx context.Context, tenantID string) error {
	tenant, err := o.tenants.Get(ctx, tenantID)
	if err != nil {
		return err
	}
	return o.createJobForTenant(ctx, tenant)
}

func (o *Orchestrator) createJobForTenant(ctx context.Context, tenant *model.Tenant) error {
	now := o.now()
	job := &model.SyncJob{
		TenantID:    tenant.ID,
		DisplayName: tenant.Name,
		Priority:    computePriority(tenant.IsActive, nil, now),
		Status:      model.JobStatusPending,
		NextRunAt:   now,
	}
	created, err := o.jobs.Create(ctx, job)
	if err != nil || !created {
		return err
	}
	// New tenant: force namespace materialization so first queries don't
	// hit lazily-created namespaces.
	for _, kind := range []model.EntityKind{model.KindStore, model.KindProduct, model.KindOrder, model.KindCustomer} {
		if err := o.indexer.InitializeNamespace(ctx, tenant.ID, kind); err != nil {
			logutil.GetLogger(ctx).Warn("namespace init failed",
				zap.String("tenant_id", tenant.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
	}
	logutil.GetLogger(ctx).Info("sync job created",
		zap.String("tenant_id", tenant.ID),
		zap.String("priority", string(job.Priority)),
	)
	return nil
}

func (o *Orchestrator) resumePaused(ctx context.Context, now time.Time) {
	logger := logutil.GetLogger(ctx)
	paused, err := o.jobs.ListPausedDue(ctx, now, o.dueLimit)
	if err != nil {
		logger.Error("list paused jobs failed", zap.Error(err))
		return
	}
	for _, job := range paused {
		tenant, err := o.tenants.Get(ctx, job.TenantID)
		if err != nil {
			logger.Error("load tenant for paused job failed", zap.String("tenant_id", job.TenantID), zap.Error(err))
			continue
		}
		if tenant.NeedsReconnection {
			// Still disconnected: look again after the recheck delay.
			job.NextRunAt = now.Add(pausedRecheck)
			if err := o.jobs.Update(ctx, &job); err != nil {
				logger.Error("reschedule paused job failed", zap.String("tenant_id", job.TenantID), zap.Error(err))
			}
			continue
		}
		job.Status = model.JobStatusPending
		job.RetryCount = 0
		job.NextRunAt = now
		if err := o.jobs.Update(ctx, &job); err != nil {
			logger.Error("resume paused job failed", zap.String("tenant_id", job.TenantID), zap.Error(err))
			continue
		}
		logger.Info("paused job resumed", zap.String("tenant_id", job.TenantID))
	}
}

func (o *Orchestrator) recordReport(report *Report) {
	if report == nil {
		return
	}
	o.mu.Lock()
	o.lastReports[report.TenantID] = report
	o.mu.Unlock()
}

// runJob executes one full sync cycle for one tenant. Failures never
// propagate past this boundary: every exit path yields a report.
func (o *Orchestrator) runJob(ctx context.Context, job *model.SyncJob) *Report {
	start := o.now()
	report := &Report{TenantID: job.TenantID, StartedAt: start}
	defer func() { report.Duration = o.now().Sub(start) }()
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", job.TenantID))

	lease, err := o.locks.Acquire(ctx, job.TenantID, opSync)
	if err != nil {
		// Another contender holds the lease; skip silently, retry next tick.
		logger.Debug("sync lease busy, skipping")
		report.Outcome = OutcomeSkipped
		return report
	}
	defer o.locks.Release(ctx, lease)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-lease.Revoked():
			cancel()
		case <-runCtx.Done():
		}
	}()

	job.Status = model.JobStatusRunning
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.Error("mark job running failed", zap.Error(err))
		report.Outcome = OutcomeFailed
		report.Err = err.Error()
		o.failJob(ctx, job, err.Error(), report)
		return report
	}

	token, err := o.creds.GetValidToken(runCtx, job.TenantID)
	if err != nil {
		if errors.Is(err, appErr.ErrNoValidCredential) {
			o.pauseForReconnection(ctx, job, "no valid credential", report)
			return report
		}
		o.failJob(ctx, job, err.Error(), report)
		return report
	}

	var since time.Time
	if job.LastSuccessAt != nil {
		since = *job.LastSuccessAt
	}
	report.Categories = o.syncCategories(runCtx, job.TenantID, token, since)

	select {
	case <-lease.Revoked():
		// Force unlock mid-run: the cycle was cancelled deliberately, so it
		// goes back to pending with no retry penalty.
		o.requeueJob(ctx, job, report)
		return report
	default:
	}

	authFailed := false
	failedCategories := 0
	for _, cat := range report.Categories {
		if cat.err == nil {
			continue
		}
		failedCategories++
		if errors.Is(cat.err, shop.ErrAuthExpired) {
			authFailed = true
		}
	}
	switch {
	case authFailed:
		o.pauseForReconnection(ctx, job, "shop credential expired", report)
	case failedCategories > 0 && failedCategories == len(report.Categories):
		o.failJob(ctx, job, report.Categories[0].Err, report)
	default:
		o.completeJob(ctx, job, report)
	}
	logger.Info("sync cycle finished",
		zap.String("outcome", string(report.Outcome)),
		zap.Duration("duration", o.now().Sub(start)),
	)
	return report
}

func (o *Orchestrator) completeJob(ctx context.Context, job *model.SyncJob, report *Report) {
	now := o.now()
	job.RetryCount = 0
	job.Status = model.JobStatusCompleted
	job.LastSuccessAt = &now
	job.LastError = ""

	isActive := true
	if tenant, err := o.tenants.Get(ctx, job.TenantID); err == nil {
		isActive = tenant.IsActive
	}
	job.Priority = computePriority(isActive, job.LastSuccessAt, now)
	job.NextRunAt = now.Add(tierInterval(job.Priority))
	if err := o.jobs.Update(ctx, job); err != nil {
		logutil.GetLogger(ctx).Error("persist completed job failed",
			zap.String("tenant_id", job.TenantID), zap.Error(err))
	}
	report.Outcome = OutcomeCompleted
}

// requeueJob returns a deliberately interrupted job to pending for the next
// tick, leaving retry count untouched.
func (o *Orchestrator) requeueJob(ctx context.Context, job *model.SyncJob, report *Report) {
	job.Status = model.JobStatusPending
	job.NextRunAt = o.now()
	job.LastError = appErr.ErrLeaseRevoked.Error()
	report.Outcome = OutcomeSkipped
	report.Err = appErr.ErrLeaseRevoked.Error()
	if err := o.jobs.Update(ctx, job); err != nil {
		logutil.GetLogger(ctx).Error("requeue revoked job failed",
			zap.String("tenant_id", job.TenantID), zap.Error(err))
	}
}

// failJob applies the backoff policy: exponential delays until the retry
// ceiling, then escalation to paused plus a reconnection flag.
func (o *Orchestrator) failJob(ctx context.Context, job *model.SyncJob, errMsg string, report *Report) {
	now := o.now()
	job.RetryCount++
	job.LastError = errMsg
	report.Err = errMsg
	if job.RetryCount < maxRetries {
		job.Status = model.JobStatusFailed
		job.NextRunAt = now.Add(backoffDelay(job.RetryCount))
		report.Outcome = OutcomeFailed
	} else {
		job.Status = model.JobStatusPaused
		job.NextRunAt = now.Add(pausedRecheck)
		report.Outcome = OutcomePaused
		if err := o.creds.FlagForReconnection(ctx, job.TenantID, "repeated sync failures"); err != nil {
			logutil.GetLogger(ctx).Error("flag reconnection failed",
				zap.String("tenant_id", job.TenantID), zap.Error(err))
		}
	}
	if err := o.jobs.Update(ctx, job); err != nil {
		logutil.GetLogger(ctx).Error("persist failed job failed",
			zap.String("tenant_id", job.TenantID), zap.Error(err))
	}
}

// pauseForReconnection is the non-retryable auth path: no backoff, straight
// to paused until an operator reconnects the store.
func (o *Orchestrator) pauseForReconnection(ctx context.Context, job *model.SyncJob, reason string, report *Report) {
	now := o.now()
	job.Status = model.JobStatusPaused
	job.NextRunAt = now.Add(pausedRecheck)
	job.LastError = reason
	report.Outcome = OutcomePaused
	report.Err = reason
	if err := o.creds.FlagForReconnection(ctx, job.TenantID, reason); err != nil {
		logutil.GetLogger(ctx).Error("flag reconnection failed",
			zap.String("tenant_id", job.TenantID), zap.Error(err))
	}
	if err := o.jobs.Update(ctx, job); err != nil {
		logutil.GetLogger(ctx).Error("persist paused job failed",
			zap.String("tenant_id", job.TenantID), zap.Error(err))
	}
}
