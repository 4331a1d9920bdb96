package job

import (
	"context"

	"github.com/merchantkit/storesync/internal/filestore"
)

type SnapshotCleanupJob struct {
	archive *filestore.Archive
}

func NewSnapshotCleanupJob(archive *filestore.Archive) *SnapshotCleanupJob {
	return &SnapshotCleanupJob{archive: archive}
}

func (j *SnapshotCleanupJob) Name() string {
	return "snapshot_cleanup"
}

func (j *SnapshotCleanupJob) Run(ctx context.Context) error {
	if j.archive == nil {
		return nil
	}
	return j.archive.Prune(ctx)
}
