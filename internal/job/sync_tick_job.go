package job

import (
	"context"

	"github.com/merchantkit/storesync/internal/syncer"
)

// SyncTickJob drives one scheduling round of the orchestrator. Overlap
// protection comes from the scheduler wrapper plus per-tenant leases, so a
// slow round never doubles up on a tenant.
type SyncTickJob struct {
	orch *syncer.Orchestrator
}

func NewSyncTickJob(orch *syncer.Orchestrator) *SyncTickJob {
	return &SyncTickJob{orch: orch}
}

func (j *SyncTickJob) Name() string {
	return "sync_tick"
}

func (j *SyncTickJob) Run(ctx context.Context) error {
	return j.orch.Tick(ctx)
}
