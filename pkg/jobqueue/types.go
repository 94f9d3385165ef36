// Package jobqueue provides a durable generation-job queue with
// idempotent-by-key submission.
//
// The queue key is "{name}@{version}". Submitting a key that already has a
// not-yet-terminal job returns the existing job instead of enqueuing a
// duplicate; this is the property that collapses N concurrent cache-miss
// requests for one concrete version into a single generation execution.
package jobqueue

import "time"

// State is the lifecycle state of a generation job.
//
// NOTE: These values are persisted in job.json and are part of the stable
// on-disk contract.
type State string

const (
	StateQueued    State = "queued"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether s is final. Terminal states never transition.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Record is the persistent job record written to job.json.
//
// ID doubles as the dedup key. The schema is designed for
// backward-compatible extension (additive fields).
type Record struct {
	ID            string    `json:"job_id"`
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	State         State     `json:"state"`
	FailureReason string    `json:"failure_reason,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Clone returns a copy safe to hand to callers while the queue keeps
// mutating its own record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		out.StartedAt = &t
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		out.EndedAt = &t
	}
	return &out
}
