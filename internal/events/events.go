// Package events defines the outbound notification contract of the permit
// core. Consumers (mailers, dashboards) subscribe to published events;
// nothing in this service polls core state for changes.
package events

import (
	"context"
	"time"
)

type Type string

const (
	TypePermitSubmitted       Type = "permit.submitted"
	TypePermitPICReviewed     Type = "permit.pic_reviewed"
	TypePermitApproved        Type = "permit.approved"
	TypePermitRejected        Type = "permit.rejected"
	TypePermitCancelled       Type = "permit.cancelled"
	TypePermitExpired         Type = "permit.expired"
	TypeCredentialRegenerated Type = "permit.credential_regenerated"
	TypePermitCheckedIn       Type = "permit.checked_in"
	TypePermitCheckedOut      Type = "permit.checked_out"
)

// Event is one lifecycle/redemption notification. It never carries
// credential material; subscribers fetch whatever details they need
// through the API with their own authorization.
type Event struct {
	Type         Type      `json:"type"`
	PermitID     string    `json:"permit_id"`
	PermitNumber string    `json:"permit_number"`
	ActorID      string    `json:"actor_id,omitempty"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers events to subscribers. Publication is best-effort
// and MUST happen after the owning transaction commits; a failed publish
// never rolls back a transition.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Fanout publishes to every member in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) {
	for _, p := range f {
		p.Publish(ctx, e)
	}
}

// Discard drops all events. Useful when no notifier is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
