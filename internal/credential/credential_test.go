package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merchantkit/storesync/internal/model"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
)

type fakeStore struct {
	cred     *model.TenantCredential
	err      error
	flagged  bool
	reason   string
	tenantID string
}

func (f *fakeStore) GetCredential(ctx context.Context, tenantID string) (*model.TenantCredential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

func (f *fakeStore) SetReconnection(ctx context.Context, tenantID string, needs bool, reason string) error {
	f.flagged = needs
	f.reason = reason
	f.tenantID = tenantID
	return nil
}

func TestGetValidToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		cred    *model.TenantCredential
		err     error
		want    string
		wantErr error
	}{
		{
			name: "valid token",
			cred: &model.TenantCredential{TenantID: "t1", AccessToken: "tok", ExpiresAt: now.Add(time.Hour)},
			want: "tok",
		},
		{
			name: "no expiry means valid",
			cred: &model.TenantCredential{TenantID: "t1", AccessToken: "tok"},
			want: "tok",
		},
		{
			name:    "expired token",
			cred:    &model.TenantCredential{TenantID: "t1", AccessToken: "tok", ExpiresAt: now.Add(-time.Minute)},
			wantErr: appErr.ErrNoValidCredential,
		},
		{
			name:    "empty token",
			cred:    &model.TenantCredential{TenantID: "t1"},
			wantErr: appErr.ErrNoValidCredential,
		},
		{
			name:    "missing credential row",
			err:     appErr.ErrNotFound,
			wantErr: appErr.ErrNoValidCredential,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(&fakeStore{cred: tt.cred, err: tt.err})
			m.now = func() time.Time { return now }
			token, err := m.GetValidToken(context.Background(), "t1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, token)
		})
	}
}

func TestFlagForReconnection(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store)
	require.NoError(t, m.FlagForReconnection(context.Background(), "t1", "credential expired"))
	require.True(t, store.flagged)
	require.Equal(t, "t1", store.tenantID)
	require.Equal(t, "credential expired", store.reason)
}
