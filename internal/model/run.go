package model

import "time"

// RunState is the lifecycle state of one camp recompute.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunStatus describes a recompute run. Reason is set for failed runs.
type RunStatus struct {
	RunID           string    `json:"run_id,omitempty"`
	CampID          int64     `json:"camp_id"`
	State           RunState  `json:"state"`
	Reason          string    `json:"reason,omitempty"`
	Keywords        int       `json:"keywords"`
	AccountsScored  int       `json:"accounts_scored"`
	AccountsSkipped int       `json:"accounts_skipped"`
	StartedAt       time.Time `json:"started_at,omitzero"`
	FinishedAt      time.Time `json:"finished_at,omitzero"`
}

// Done reports whether the run reached a terminal state.
func (s RunStatus) Done() bool { return s.State == RunCompleted || s.State == RunFailed }
