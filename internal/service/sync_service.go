package service

import (
	"context"

	"github.com/merchantkit/storesync/internal/lock"
	"github.com/merchantkit/storesync/internal/model"
	"github.com/merchantkit/storesync/internal/syncer"
)

type SyncService struct {
	orch    *syncer.Orchestrator
	tenants *TenantDirectory
}

// TenantDirectory narrows the tenant repo for service-level existence checks.
type TenantDirectory struct {
	store syncer.TenantStore
}

func NewTenantDirectory(store syncer.TenantStore) *TenantDirectory {
	return &TenantDirectory{store: store}
}

func (d *TenantDirectory) Get(ctx context.Context, id string) (*model.Tenant, error) {
	return d.store.Get(ctx, id)
}

func NewSyncService(orch *syncer.Orchestrator, tenants *TenantDirectory) *SyncService {
	return &SyncService{orch: orch, tenants: tenants}
}

// TriggerSync runs the tenant's sync immediately, bypassing the schedule but
// not the lock: a concurrent run surfaces as ErrBusy.
func (s *SyncService) TriggerSync(ctx context.Context, tenantID string) (*syncer.Report, error) {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.orch.TriggerImmediateSync(ctx, tenantID)
}

type SyncStatus struct {
	Jobs   []model.SyncJob  `json:"jobs"`
	Leases []lock.LeaseInfo `json:"leases"`
}

func (s *SyncService) Status(ctx context.Context) (*SyncStatus, error) {
	jobs, leases, err := s.orch.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncStatus{Jobs: jobs, Leases: leases}, nil
}

func (s *SyncService) LastReport(tenantID string) *syncer.Report {
	return s.orch.LastReport(tenantID)
}

// ForceUnlock is the operator escape hatch for stuck leases. Returns how many
// leases were revoked.
func (s *SyncService) ForceUnlock(ctx context.Context, tenantID string) (int, error) {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return 0, err
	}
	return s.orch.ForceUnlock(ctx, tenantID), nil
}
