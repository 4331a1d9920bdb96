package credential

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/merchantkit/storesync/internal/model"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
)

// Store is the persistence the manager needs. Implemented by repo.TenantRepo.
type Store interface {
	GetCredential(ctx context.Context, tenantID string) (*model.TenantCredential, error)
	SetReconnection(ctx context.Context, tenantID string, needs bool, reason string) error
}

// Manager answers "does this tenant have a usable token" and records when one
// does not, so operators know which stores to reconnect.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// GetValidToken returns appErr.ErrNoValidCredential when the token is absent
// or expired. The caller decides whether to flag the tenant.
func (m *Manager) GetValidToken(ctx context.Context, tenantID string) (string, error) {
	cred, err := m.store.GetCredential(ctx, tenantID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return "", appErr.ErrNoValidCredential
		}
		return "", err
	}
	if !cred.Valid(m.now()) {
		return "", appErr.ErrNoValidCredential
	}
	return cred.AccessToken, nil
}

func (m *Manager) FlagForReconnection(ctx context.Context, tenantID string, reason string) error {
	logutil.GetLogger(ctx).Warn("tenant flagged for reconnection",
		zap.String("tenant_id", tenantID),
		zap.String("reason", reason),
	)
	return m.store.SetReconnection(ctx, tenantID, true, reason)
}
