package syncer

import (
	"time"

	"github.com/merchantkit/storesync/internal/model"
)

const (
	// maxRetries is the escalation threshold: at the third consecutive
	// failure the job is paused and the tenant flagged for reconnection.
	maxRetries = 3

	backoffBase   = 5 * time.Minute
	backoffFactor = 3

	// pausedRecheck is the flat delay before a paused job is looked at again.
	pausedRecheck = 24 * time.Hour

	// runningStaleAfter bounds how long a job may sit in running without a
	// single row update before it is treated as abandoned by a dead process
	// and requeued. Generous next to a real cycle, which touches the row at
	// start and finish.
	runningStaleAfter = 30 * time.Minute
)

var tierIntervals = map[model.PriorityTier]time.Duration{
	model.PriorityImmediate: 0,
	model.PriorityHigh:      5 * time.Minute,
	model.PriorityMedium:    30 * time.Minute,
	model.PriorityLow:       6 * time.Hour,
}

func tierInterval(tier model.PriorityTier) time.Duration {
	if interval, ok := tierIntervals[tier]; ok {
		return interval
	}
	return tierIntervals[model.PriorityLow]
}

// computePriority is evaluated at job creation and after each completed cycle.
func computePriority(isActive bool, lastSuccessAt *time.Time, now time.Time) model.PriorityTier {
	if lastSuccessAt == nil {
		return model.PriorityHigh
	}
	age := now.Sub(*lastSuccessAt)
	switch {
	case age > 24*time.Hour:
		return model.PriorityHigh
	case isActive && age > 6*time.Hour:
		return model.PriorityHigh
	case age > 12*time.Hour:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// backoffDelay returns the wait before retry n (1-based): 5, 15, 45 minutes.
func backoffDelay(retryCount int) time.Duration {
	delay := backoffBase
	for i := 1; i < retryCount; i++ {
		delay *= backoffFactor
	}
	return delay
}
