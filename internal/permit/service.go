package permit

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/approval"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/credential"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/events"

	"github.com/google/uuid"
)

// Service is the permit lifecycle engine. It owns every status change:
// each mutating operation executes as one atomic conditional transition
// against the store, so a lost race surfaces as *StateError rather than
// a silent overwrite.
//
// The approval ledger and event publication are side channels: both are
// written after the transition lands and never under the permit lock.
type Service struct {
	store  Store
	ledger *approval.Ledger
	pub    events.Publisher
	log    *slog.Logger
	clock  func() time.Time
}

func NewService(store Store, ledger *approval.Ledger, pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Discard{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, ledger: ledger, pub: pub, log: log, clock: time.Now}
}

type SubmitRequest struct {
	VisitorID       string    `json:"visitor_id"`
	PICID           string    `json:"pic_id"`
	VisitPurpose    string    `json:"visit_purpose"`
	VisitType       VisitType `json:"visit_type"`
	DataCenter      string    `json:"data_center"`
	ScheduledStart  time.Time `json:"scheduled_start"`
	ScheduledEnd    time.Time `json:"scheduled_end"`
	EquipmentList   []string  `json:"equipment_list,omitempty"`
	WorkOrderDocRef string    `json:"work_order_doc_ref,omitempty"`
}

// Submit creates a permit in PENDING_PIC. A PIC must be assigned at
// submission; the manager is resolved later, at approval time.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Permit, error) {
	now := s.clock().UTC()

	if strings.TrimSpace(req.VisitorID) == "" {
		return Permit{}, validationErr("visitor_id", "is required")
	}
	if strings.TrimSpace(req.PICID) == "" {
		return Permit{}, validationErr("pic_id", "is required")
	}
	if strings.TrimSpace(req.VisitPurpose) == "" {
		return Permit{}, validationErr("visit_purpose", "is required")
	}
	if !req.VisitType.Valid() {
		return Permit{}, validationErr("visit_type", "is not a known visit type")
	}
	if strings.TrimSpace(req.DataCenter) == "" {
		return Permit{}, validationErr("data_center", "is required")
	}
	if req.ScheduledStart.IsZero() || req.ScheduledEnd.IsZero() {
		return Permit{}, validationErr("schedule", "start and end are required")
	}
	if !req.ScheduledEnd.After(req.ScheduledStart) {
		return Permit{}, validationErr("scheduled_end", "must be after scheduled_start")
	}
	if req.ScheduledStart.Before(now) {
		return Permit{}, validationErr("scheduled_start", "must not be in the past")
	}

	number, err := newPermitNumber(now)
	if err != nil {
		return Permit{}, err
	}

	p := Permit{
		ID:              uuid.NewString(),
		PermitNumber:    number,
		VisitorID:       req.VisitorID,
		PICID:           req.PICID,
		VisitPurpose:    req.VisitPurpose,
		VisitType:       req.VisitType,
		DataCenter:      req.DataCenter,
		ScheduledStart:  req.ScheduledStart.UTC(),
		ScheduledEnd:    req.ScheduledEnd.UTC(),
		EquipmentList:   req.EquipmentList,
		WorkOrderDocRef: req.WorkOrderDocRef,
		Status:          StatusPendingPIC,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return Permit{}, err
	}

	s.publish(ctx, events.TypePermitSubmitted, p, req.VisitorID)
	return p, nil
}

// PICReview records the assigned PIC's decision. Approval moves the
// permit to PENDING_MANAGER; rejection is terminal. A ledger record is
// appended for both outcomes.
func (s *Service) PICReview(ctx context.Context, permitID, picID string, approved bool, comments string) (Permit, error) {
	if permitID == "" || picID == "" {
		return Permit{}, validationErr("pic_review", "permit id and pic id are required")
	}

	p, err := s.store.Transition(ctx, permitID, []Status{StatusPendingPIC}, func(p *Permit) error {
		if p.PICID != picID {
			return fmt.Errorf("%w: pic %s is not assigned to this permit", ErrForbidden, picID)
		}
		if approved {
			p.Status = StatusPendingManager
		} else {
			p.Status = StatusRejected
		}
		p.UpdatedAt = s.clock().UTC()
		return nil
	})
	if err != nil {
		return Permit{}, opErr(err, "review")
	}

	s.recordDecision(ctx, permitID, approval.LevelPIC, picID, approved, comments)

	if approved {
		s.publish(ctx, events.TypePermitPICReviewed, p, picID)
	} else {
		s.publish(ctx, events.TypePermitRejected, p, picID)
	}
	return p, nil
}

// ManagerApprove records a manager decision. Any manager-role user may
// act; the winner of a concurrent race is recorded as the manager of
// record, the loser receives *StateError. Approval issues the access
// credential inside the transition, so the permit is never observable
// as APPROVED without one.
func (s *Service) ManagerApprove(ctx context.Context, permitID, managerID string, approved bool, comments string) (Permit, error) {
	if permitID == "" || managerID == "" {
		return Permit{}, validationErr("manager_review", "permit id and manager id are required")
	}

	p, err := s.store.Transition(ctx, permitID, []Status{StatusPendingManager}, func(p *Permit) error {
		p.ManagerID = managerID
		if approved {
			pair, err := credential.Issue(p.ID)
			if err != nil {
				return err
			}
			p.Status = StatusApproved
			p.QRCodeData = pair.QRCodeData
			p.OTPCode = pair.OTPCode
		} else {
			p.Status = StatusRejected
		}
		p.UpdatedAt = s.clock().UTC()
		return nil
	})
	if err != nil {
		return Permit{}, opErr(err, "approve")
	}

	s.recordDecision(ctx, permitID, approval.LevelManager, managerID, approved, comments)

	if approved {
		s.publish(ctx, events.TypePermitApproved, p, managerID)
	} else {
		s.publish(ctx, events.TypePermitRejected, p, managerID)
	}
	return p, nil
}

// Cancel voluntarily withdraws a permit before it is used. Visitors may
// cancel only their own permits; privileged callers may cancel any.
func (s *Service) Cancel(ctx context.Context, permitID, actorID string, privileged bool, reason string) (Permit, error) {
	if permitID == "" || actorID == "" {
		return Permit{}, validationErr("cancel", "permit id and actor id are required")
	}

	cancellable := []Status{StatusPendingPIC, StatusPendingManager, StatusApproved}
	p, err := s.store.Transition(ctx, permitID, cancellable, func(p *Permit) error {
		if !privileged && p.VisitorID != actorID {
			return fmt.Errorf("%w: only the permit owner may cancel", ErrForbidden)
		}
		p.Status = StatusCancelled
		p.QRCodeData = ""
		p.OTPCode = ""
		p.UpdatedAt = s.clock().UTC()
		return nil
	})
	if err != nil {
		return Permit{}, opErr(err, "cancel")
	}

	s.log.Info("permit cancelled", "permit_id", p.ID, "permit_number", p.PermitNumber, "actor_id", actorID, "reason", reason)
	s.publish(ctx, events.TypePermitCancelled, p, actorID)
	return p, nil
}

// RegenerateCredential invalidates the current QR/OTP pair and issues a
// fresh one. The swap happens inside the transition lock, so a scan
// racing this call either sees the old pair while it is still stored or
// the new pair once committed, never a half state.
func (s *Service) RegenerateCredential(ctx context.Context, permitID, actorID string) (Permit, error) {
	if permitID == "" || actorID == "" {
		return Permit{}, validationErr("regenerate", "permit id and actor id are required")
	}

	p, err := s.store.Transition(ctx, permitID, []Status{StatusApproved, StatusActive}, func(p *Permit) error {
		pair, err := credential.Issue(p.ID)
		if err != nil {
			return err
		}
		p.QRCodeData = pair.QRCodeData
		p.OTPCode = pair.OTPCode
		p.UpdatedAt = s.clock().UTC()
		return nil
	})
	if err != nil {
		return Permit{}, opErr(err, "regenerate credential")
	}

	s.publish(ctx, events.TypeCredentialRegenerated, p, actorID)
	return p, nil
}

// ExpireOverdue sweeps APPROVED permits whose scheduled end has passed
// without a check-in. Each candidate expires through its own conditional
// transition; one that gets checked in mid-sweep simply loses the race
// and is skipped.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.store.List(ctx, Filter{Status: StatusApproved, EndBefore: now.UTC()})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range candidates {
		p, err := s.store.Transition(ctx, c.ID, []Status{StatusApproved}, func(p *Permit) error {
			if !p.ScheduledEnd.Before(now.UTC()) {
				return &StateError{Op: "expire", Current: p.Status}
			}
			p.Status = StatusExpired
			p.QRCodeData = ""
			p.OTPCode = ""
			p.UpdatedAt = s.clock().UTC()
			return nil
		})
		if err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired++
		s.publish(ctx, events.TypePermitExpired, p, "")
	}
	return expired, nil
}

func (s *Service) Get(ctx context.Context, permitID string) (Permit, error) {
	if permitID == "" {
		return Permit{}, validationErr("permit_id", "is required")
	}
	return s.store.Get(ctx, permitID)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Permit, error) {
	return s.store.List(ctx, f)
}

// recordDecision appends to the approval ledger. Ledger writes are
// best-effort once the transition has landed: a failed append is logged
// loudly but does not undo the status change.
func (s *Service) recordDecision(ctx context.Context, permitID string, level approval.Level, approverID string, approved bool, comments string) {
	if s.ledger == nil {
		return
	}
	decision := approval.DecisionApproved
	if !approved {
		decision = approval.DecisionRejected
	}
	if _, err := s.ledger.Record(ctx, permitID, level, approverID, decision, comments); err != nil {
		s.log.Error("approval ledger append failed", "permit_id", permitID, "level", level, "err", err)
	}
}

func (s *Service) publish(ctx context.Context, t events.Type, p Permit, actorID string) {
	s.pub.Publish(ctx, events.Event{
		Type:         t,
		PermitID:     p.ID,
		PermitNumber: p.PermitNumber,
		ActorID:      actorID,
		Status:       string(p.Status),
		OccurredAt:   s.clock().UTC(),
	})
}

// opErr rewrites the store's generic transition StateError with the
// operation name the caller attempted, keeping the observed status.
func opErr(err error, op string) error {
	var se *StateError
	if errors.As(err, &se) {
		return &StateError{Op: op, Current: se.Current}
	}
	return err
}

const permitNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newPermitNumber builds a human-readable unique number, date plus a
// random suffix. Uniqueness is backed by the store's unique constraint;
// the suffix space makes collisions for one day negligible.
func newPermitNumber(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("permit number generation failed: %w", err)
	}
	for i, b := range buf {
		buf[i] = permitNumberAlphabet[int(b)%len(permitNumberAlphabet)]
	}
	return fmt.Sprintf("WP-%s-%s", now.Format("20060102"), buf), nil
}
