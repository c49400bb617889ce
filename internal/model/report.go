package model

import "time"

// ItemStatus tags the outcome of a single message within a run.
type ItemStatus string

// Per-item outcomes reported by the orchestrators.
const (
	StatusStaged    ItemStatus = "staged"
	StatusDuplicate ItemStatus = "duplicate"
	StatusFiltered  ItemStatus = "filtered"
	StatusPromoted  ItemStatus = "promoted"
	StatusSkipped   ItemStatus = "skipped"
	StatusError     ItemStatus = "error"
)

// ItemDetail is one entry in a run's audit trail.
type ItemDetail struct {
	Status   ItemStatus `json:"status"`
	Reason   string     `json:"reason,omitempty"`
	Subject  string     `json:"subject,omitempty"`
	Merchant string     `json:"merchant,omitempty"`
	Hash     string     `json:"hash,omitempty"`
	StagedID int64      `json:"staged_id,omitempty"`
	UID      uint32     `json:"uid,omitempty"`
}

// RunReport summarizes one orchestrator run. BudgetExceeded is a planned
// early termination, not a failure.
type RunReport struct {
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	Items          []ItemDetail `json:"items"`
	Attempted      int          `json:"attempted"`
	Succeeded      int          `json:"succeeded"`
	Errored        int          `json:"errored"`
	BudgetExceeded bool         `json:"budget_exceeded"`
}

// Add records one item outcome and updates the counters.
func (r *RunReport) Add(item ItemDetail) {
	r.Items = append(r.Items, item)
	switch item.Status {
	case StatusStaged, StatusDuplicate, StatusPromoted:
		r.Attempted++
		r.Succeeded++
	case StatusSkipped, StatusFiltered:
		r.Attempted++
	case StatusError:
		r.Attempted++
		r.Errored++
	}
}
