package approval

import "time"

// Record is an immutable, append-only approval decision.
//
// Invariants:
// - Records are never updated or deleted.
// - One record is written per PIC/Manager action, success or rejection.
// - "At most one effective decision per level" is NOT enforced here; the
//   lifecycle engine's status preconditions guarantee it before calling in.
//   The ledger's role is historical record, not policy.
type Record struct {
	ID       string `json:"id" db:"id"`
	PermitID string `json:"permit_id" db:"permit_id"`

	Level      Level    `json:"level" db:"level"`
	ApproverID string   `json:"approver_id" db:"approver_id"`
	Decision   Decision `json:"decision" db:"decision"`
	Comments   string   `json:"comments,omitempty" db:"comments"`

	DecidedAt time.Time `json:"decided_at" db:"decided_at"`
}

type Level string

const (
	LevelPIC     Level = "PIC"
	LevelManager Level = "MANAGER"
)

type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)
