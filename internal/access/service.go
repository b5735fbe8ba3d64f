package access

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/events"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/permit"

	"github.com/google/uuid"
)

// Log is the persistence contract for gate access entries. Append-only.
type Log interface {
	Append(ctx context.Context, e LogEntry) error
	ListByPermit(ctx context.Context, permitID string) ([]LogEntry, error)
}

// ErrCredentialMismatch reports a QR/OTP pair that matches no APPROVED
// permit, or no longer matches after a regeneration. This is an expected,
// frequent outcome (mistyped OTP, stale printout), never a system fault;
// it always leaves a DENIED log entry behind.
var ErrCredentialMismatch = errors.New("credential mismatch")

const (
	reasonUnknownCredential = "unknown_credential"
	reasonOTPMismatch       = "otp_mismatch"
	reasonNotApproved       = "permit_not_approved"
	reasonNotActive         = "permit_not_active"
)

// Service redeems access credentials at gates. Check-in re-validates the
// credential inside the permit's transition lock, so concurrent scans of
// the same pair produce exactly one CHECK_IN and one denial, and a
// regenerated credential is never half-observed.
type Service struct {
	permits   permit.Store
	accessLog Log
	pub       events.Publisher
	log       *slog.Logger
	clock     func() time.Time
}

func NewService(permits permit.Store, accessLog Log, pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Discard{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{permits: permits, accessLog: accessLog, pub: pub, log: log, clock: time.Now}
}

// Summary is the subset of permit fields a gate terminal may display.
// Credential material is never echoed back.
type Summary struct {
	PermitID       string    `json:"permit_id"`
	PermitNumber   string    `json:"permit_number"`
	VisitorID      string    `json:"visitor_id"`
	DataCenter     string    `json:"data_center"`
	VisitPurpose   string    `json:"visit_purpose"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	Status         string    `json:"status"`
}

func summarize(p permit.Permit) Summary {
	return Summary{
		PermitID:       p.ID,
		PermitNumber:   p.PermitNumber,
		VisitorID:      p.VisitorID,
		DataCenter:     p.DataCenter,
		VisitPurpose:   p.VisitPurpose,
		ScheduledStart: p.ScheduledStart,
		ScheduledEnd:   p.ScheduledEnd,
		Status:         string(p.Status),
	}
}

// Verify checks a credential pair against its permit without mutating
// anything. It needs only a read-consistent snapshot; the exclusive lock
// belongs to CheckIn.
func (s *Service) Verify(ctx context.Context, qrCodeData, otpCode string) (Summary, error) {
	p, reason, err := s.match(ctx, qrCodeData, otpCode)
	if err != nil {
		return Summary{}, err
	}
	if reason != "" {
		return Summary{}, fmt.Errorf("%w: %s", ErrCredentialMismatch, reason)
	}
	return summarize(p), nil
}

// CheckIn redeems a credential: APPROVED -> ACTIVE, stamps the actual
// check-in time, appends a CHECK_IN entry. Any failure appends a DENIED
// entry and returns ErrCredentialMismatch or *permit.StateError; a bad
// scan is a loggable outcome, not a fault.
func (s *Service) CheckIn(ctx context.Context, qrCodeData, otpCode, location, actorID string) (permit.Permit, error) {
	now := s.clock().UTC()

	target, err := s.permits.GetByQRCode(ctx, qrCodeData)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			s.deny(ctx, "", location, actorID, reasonUnknownCredential, now)
			return permit.Permit{}, fmt.Errorf("%w: %s", ErrCredentialMismatch, reasonUnknownCredential)
		}
		return permit.Permit{}, err
	}

	p, err := s.permits.Transition(ctx, target.ID, []permit.Status{permit.StatusApproved}, func(p *permit.Permit) error {
		// Re-validate under the lock: a regeneration or second scan that
		// landed between lookup and lock must be observed here.
		if reason := matchCredential(*p, qrCodeData, otpCode); reason != "" {
			return fmt.Errorf("%w: %s", ErrCredentialMismatch, reason)
		}
		t := now
		p.Status = permit.StatusActive
		p.ActualCheckInTime = &t
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		var se *permit.StateError
		switch {
		case errors.Is(err, ErrCredentialMismatch):
			s.deny(ctx, target.ID, location, actorID, reasonOTPMismatch, now)
			return permit.Permit{}, err
		case errors.As(err, &se):
			s.deny(ctx, target.ID, location, actorID, reasonNotApproved, now)
			return permit.Permit{}, &permit.StateError{Op: "check in", Current: se.Current}
		default:
			return permit.Permit{}, err
		}
	}

	s.append(ctx, LogEntry{
		ID:         uuid.NewString(),
		PermitID:   p.ID,
		Type:       EntryCheckIn,
		Location:   location,
		ActorID:    actorID,
		OccurredAt: now,
	})
	s.publish(ctx, events.TypePermitCheckedIn, p, actorID)
	return p, nil
}

// CheckOut completes an active visit: ACTIVE -> COMPLETED, stamps the
// check-out time, clears the credential. A double check-out fails with
// *permit.StateError and leaves a DENIED entry.
func (s *Service) CheckOut(ctx context.Context, permitID, location, actorID string) (permit.Permit, error) {
	now := s.clock().UTC()

	p, err := s.permits.Transition(ctx, permitID, []permit.Status{permit.StatusActive}, func(p *permit.Permit) error {
		t := now
		p.Status = permit.StatusCompleted
		p.ActualCheckOutTime = &t
		p.QRCodeData = ""
		p.OTPCode = ""
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		var se *permit.StateError
		if errors.As(err, &se) {
			s.deny(ctx, permitID, location, actorID, reasonNotActive, now)
			return permit.Permit{}, &permit.StateError{Op: "check out", Current: se.Current}
		}
		return permit.Permit{}, err
	}

	s.append(ctx, LogEntry{
		ID:         uuid.NewString(),
		PermitID:   p.ID,
		Type:       EntryCheckOut,
		Location:   location,
		ActorID:    actorID,
		OccurredAt: now,
	})
	s.publish(ctx, events.TypePermitCheckedOut, p, actorID)
	return p, nil
}

// History returns the access log for one permit, oldest first.
func (s *Service) History(ctx context.Context, permitID string) ([]LogEntry, error) {
	if permitID == "" {
		return nil, permit.ErrNotFound
	}
	return s.accessLog.ListByPermit(ctx, permitID)
}

// match resolves a credential pair to its permit on a read snapshot.
// reason is non-empty when the pair is not redeemable.
func (s *Service) match(ctx context.Context, qrCodeData, otpCode string) (permit.Permit, string, error) {
	p, err := s.permits.GetByQRCode(ctx, qrCodeData)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			return permit.Permit{}, reasonUnknownCredential, nil
		}
		return permit.Permit{}, "", err
	}
	if reason := matchCredential(p, qrCodeData, otpCode); reason != "" {
		return permit.Permit{}, reason, nil
	}
	return p, "", nil
}

// matchCredential validates the full pair against a permit. Comparison is
// constant-time; an OTP guess must not leak by timing.
func matchCredential(p permit.Permit, qrCodeData, otpCode string) string {
	if p.QRCodeData == "" || subtle.ConstantTimeCompare([]byte(p.QRCodeData), []byte(qrCodeData)) != 1 {
		return reasonUnknownCredential
	}
	if p.OTPCode == "" || subtle.ConstantTimeCompare([]byte(p.OTPCode), []byte(otpCode)) != 1 {
		return reasonOTPMismatch
	}
	if p.Status != permit.StatusApproved {
		return reasonNotApproved
	}
	return ""
}

func (s *Service) deny(ctx context.Context, permitID, location, actorID, reason string, now time.Time) {
	s.append(ctx, LogEntry{
		ID:         uuid.NewString(),
		PermitID:   permitID,
		Type:       EntryDenied,
		Location:   location,
		Reason:     reason,
		ActorID:    actorID,
		OccurredAt: now,
	})
}

// append writes an access log entry. The log is the audit trail of the
// gate: a failed write is loud in the service log but does not block the
// decision already made.
func (s *Service) append(ctx context.Context, e LogEntry) {
	if err := s.accessLog.Append(ctx, e); err != nil {
		s.log.Error("access log append failed", "permit_id", e.PermitID, "type", e.Type, "err", err)
	}
}

func (s *Service) publish(ctx context.Context, t events.Type, p permit.Permit, actorID string) {
	s.pub.Publish(ctx, events.Event{
		Type:         t,
		PermitID:     p.ID,
		PermitNumber: p.PermitNumber,
		ActorID:      actorID,
		Status:       string(p.Status),
		OccurredAt:   s.clock().UTC(),
	})
}
