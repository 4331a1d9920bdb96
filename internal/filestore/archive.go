package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Archive writes raw fetch payloads into a Store under
// {tenant}/{category}/{timestamp}.json and prunes blobs past retention.
type Archive struct {
	store    Store
	keepDays int
	now      func() time.Time
}

func NewArchive(store Store, keepDays int) *Archive {
	if keepDays <= 0 {
		keepDays = 30
	}
	return &Archive{store: store, keepDays: keepDays, now: time.Now}
}

func (a *Archive) Archive(ctx context.Context, tenantID string, category string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := fmt.Sprintf("%s/%s/%s.json", tenantID, category, a.now().UTC().Format("20060102T150405Z"))
	if err := a.store.Put(ctx, key, body); err != nil {
		return fmt.Errorf("store snapshot %s: %w", key, err)
	}
	return nil
}

// Prune removes snapshots older than the retention window.
func (a *Archive) Prune(ctx context.Context) error {
	cutoff := a.now().Add(-time.Duration(a.keepDays) * 24 * time.Hour)
	objects, err := a.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	var stale []string
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			stale = append(stale, obj.Key)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := a.store.Delete(ctx, stale); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	logutil.GetLogger(ctx).Info("pruned stale snapshots",
		zap.Int("count", len(stale)),
		zap.Int("keep_days", a.keepDays),
	)
	return nil
}
