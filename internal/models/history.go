package models

import "time"

// JobEvent is the kind of a job history transition.
type JobEvent string

const (
	JobEventAdded       JobEvent = "added"
	JobEventRemoved     JobEvent = "removed"
	JobEventReactivated JobEvent = "reactivated"
	JobEventUpdated     JobEvent = "updated"
)

// JobHistoryEvent is one row of the append-only audit log. Events are
// written synchronously with every state change of the owning job and
// never mutated.
type JobHistoryEvent struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	Event     JobEvent  `json:"event"`
	ChangedAt time.Time `json:"changed_at"`
	Details   string    `json:"details,omitempty"`
}
