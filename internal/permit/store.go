package permit

import (
	"context"
	"time"
)

// Store is the persistence contract for permits.
//
// Transition is the single mutation primitive for status-bearing changes:
// implementations must execute it as an atomic read-verify-mutate-write
// keyed by permit id, so that two racing callers observe exactly one
// winner and one *StateError. No caller may read a status, decide, and
// write it back in separate steps.
type Store interface {
	Create(ctx context.Context, p Permit) error
	Get(ctx context.Context, id string) (Permit, error)
	GetByQRCode(ctx context.Context, qrCodeData string) (Permit, error)
	List(ctx context.Context, f Filter) ([]Permit, error)

	// Transition loads the permit under an exclusive lock, fails with
	// *StateError if its status is not one of `from`, applies mutate to
	// the locked copy, and persists the result. mutate returning an
	// error aborts the transition with nothing written.
	Transition(ctx context.Context, id string, from []Status, mutate func(p *Permit) error) (Permit, error)
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	VisitorID  string
	PICID      string
	Status     Status
	DataCenter string

	// EndBefore matches permits whose scheduled end is strictly before
	// the given instant. Used by the expiry sweep.
	EndBefore time.Time
}
