package job

import (
	"context"

	"github.com/merchantkit/storesync/internal/syncer"
)

// TenantDiscoveryJob backfills sync jobs for tenants onboarded outside this
// service. Runs less often than the tick; creation is idempotent.
type TenantDiscoveryJob struct {
	orch *syncer.Orchestrator
}

func NewTenantDiscoveryJob(orch *syncer.Orchestrator) *TenantDiscoveryJob {
	return &TenantDiscoveryJob{orch: orch}
}

func (j *TenantDiscoveryJob) Name() string {
	return "tenant_discovery"
}

func (j *TenantDiscoveryJob) Run(ctx context.Context) error {
	return j.orch.EnsureJobs(ctx)
}
