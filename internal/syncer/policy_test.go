package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merchantkit/storesync/internal/model"
)

func TestBackoffDelay(t *testing.T) {
	require.Equal(t, 5*time.Minute, backoffDelay(1))
	require.Equal(t, 15*time.Minute, backoffDelay(2))
	require.Equal(t, 45*time.Minute, backoffDelay(3))
}

func TestComputePriority(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	tests := []struct {
		name          string
		isActive      bool
		lastSuccessAt *time.Time
		want          model.PriorityTier
	}{
		{"never synced", false, nil, model.PriorityHigh},
		{"stale active tenant", true, ago(30 * time.Hour), model.PriorityHigh},
		{"stale inactive tenant", false, ago(30 * time.Hour), model.PriorityHigh},
		{"active recent activity", true, ago(7 * time.Hour), model.PriorityHigh},
		{"inactive moderately stale", false, ago(13 * time.Hour), model.PriorityMedium},
		{"fresh sync", true, ago(2 * time.Hour), model.PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, computePriority(tt.isActive, tt.lastSuccessAt, now))
		})
	}
}

func TestTierInterval(t *testing.T) {
	require.Equal(t, time.Duration(0), tierInterval(model.PriorityImmediate))
	require.Equal(t, 5*time.Minute, tierInterval(model.PriorityHigh))
	require.Equal(t, 30*time.Minute, tierInterval(model.PriorityMedium))
	require.Equal(t, 6*time.Hour, tierInterval(model.PriorityLow))
	require.Equal(t, 6*time.Hour, tierInterval(model.PriorityTier("bogus")))
}
