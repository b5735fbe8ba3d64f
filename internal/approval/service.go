package approval

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the approval ledger.
// Append-only: no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, r Record) error
	ListByPermit(ctx context.Context, permitID string) ([]Record, error)
}

var ErrInvalidRecord = errors.New("approval: invalid record")

// Ledger records PIC/Manager decisions and reconstructs history.
type Ledger struct {
	repo  Repository
	clock func() time.Time
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, clock: time.Now}
}

// Record appends one decision. The returned record carries the assigned
// id and decision timestamp.
func (l *Ledger) Record(ctx context.Context, permitID string, level Level, approverID string, decision Decision, comments string) (Record, error) {
	if permitID == "" || approverID == "" {
		return Record{}, ErrInvalidRecord
	}
	if level != LevelPIC && level != LevelManager {
		return Record{}, ErrInvalidRecord
	}
	if decision != DecisionApproved && decision != DecisionRejected {
		return Record{}, ErrInvalidRecord
	}

	r := Record{
		ID:         uuid.NewString(),
		PermitID:   permitID,
		Level:      level,
		ApproverID: approverID,
		Decision:   decision,
		Comments:   comments,
		DecidedAt:  l.clock().UTC(),
	}
	if err := l.repo.Append(ctx, r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// ListFor returns all decisions for a permit ordered by decision time.
func (l *Ledger) ListFor(ctx context.Context, permitID string) ([]Record, error) {
	if permitID == "" {
		return nil, ErrInvalidRecord
	}
	return l.repo.ListByPermit(ctx, permitID)
}
