package syncer

import "time"

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomePaused    Outcome = "paused"
	OutcomeSkipped   Outcome = "skipped"
)

// CategoryReport counts what happened to one entity category in a cycle.
// Partial failures inside a category reduce Succeeded without failing the
// category; Err is set only when the category's fetch itself failed.
type CategoryReport struct {
	Name      string `json:"name"`
	Fetched   int    `json:"fetched"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Err       string `json:"error,omitempty"`

	err error
}

type Report struct {
	TenantID   string           `json:"tenant_id"`
	Outcome    Outcome          `json:"outcome"`
	Categories []CategoryReport `json:"categories,omitempty"`
	Err        string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
}

func (r *Report) category(name string) *CategoryReport {
	for i := range r.Categories {
		if r.Categories[i].Name == name {
			return &r.Categories[i]
		}
	}
	return nil
}
