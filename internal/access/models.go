package access

import "time"

// LogEntry is an immutable record of one redemption attempt at a gate.
// Every attempt is logged, denied ones included: security staff need the
// audit trail of failed scans as much as successful ones.
type LogEntry struct {
	ID string `json:"id" db:"id"`
	// PermitID is empty when a presented credential matched no permit.
	PermitID string `json:"permit_id,omitempty" db:"permit_id"`

	Type     EntryType `json:"type" db:"type"`
	Location string    `json:"location" db:"location"`
	// Reason is set on DENIED entries.
	Reason  string `json:"reason,omitempty" db:"reason"`
	ActorID string `json:"actor_id" db:"actor_id"`

	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

type EntryType string

const (
	EntryCheckIn  EntryType = "CHECK_IN"
	EntryCheckOut EntryType = "CHECK_OUT"
	EntryDenied   EntryType = "DENIED"
)
