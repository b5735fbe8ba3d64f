package permit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/approval"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/events"
)

var testNow = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MemoryStore, *approval.MemoryRepo, *events.Recorder) {
	t.Helper()
	store := NewMemoryStore()
	repo := approval.NewMemoryRepo()
	rec := events.NewRecorder()
	svc := NewService(store, approval.NewLedger(repo), rec, nil)
	svc.clock = func() time.Time { return testNow }
	return svc, store, repo, rec
}

func validSubmit() SubmitRequest {
	return SubmitRequest{
		VisitorID:      "visitor-1",
		PICID:          "pic-1",
		VisitPurpose:   "rack maintenance",
		VisitType:      VisitTypeMaintenance,
		DataCenter:     "DC-JKT-1",
		ScheduledStart: testNow.Add(24 * time.Hour),
		ScheduledEnd:   testNow.Add(32 * time.Hour),
		EquipmentList:  []string{"laptop", "console cable"},
	}
}

func TestSubmit_CreatesPendingPICPermit(t *testing.T) {
	svc, _, _, rec := newTestService(t)

	p, err := svc.Submit(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.Status != StatusPendingPIC {
		t.Fatalf("expected PENDING_PIC, got %s", p.Status)
	}
	if p.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if !strings.HasPrefix(p.PermitNumber, "WP-20250109-") {
		t.Fatalf("unexpected permit number %q", p.PermitNumber)
	}
	if p.QRCodeData != "" || p.OTPCode != "" {
		t.Fatalf("expected no credential before approval")
	}

	evs := rec.Events()
	if len(evs) != 1 || evs[0].Type != events.TypePermitSubmitted {
		t.Fatalf("expected PermitSubmitted event, got %+v", evs)
	}
}

func TestSubmit_RejectsEndBeforeStart(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := validSubmit()
	req.ScheduledStart = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	req.ScheduledEnd = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	_, err := svc.Submit(context.Background(), req)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "scheduled_end" {
		t.Fatalf("expected scheduled_end failure, got %q", ve.Field)
	}
}

func TestSubmit_RejectsStartInPast(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	req := validSubmit()
	req.ScheduledStart = testNow.Add(-time.Hour)
	req.ScheduledEnd = testNow.Add(time.Hour)

	_, err := svc.Submit(context.Background(), req)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSubmit_RejectsMissingFields(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	for _, mutate := range []func(*SubmitRequest){
		func(r *SubmitRequest) { r.VisitorID = "" },
		func(r *SubmitRequest) { r.PICID = "" },
		func(r *SubmitRequest) { r.VisitPurpose = "" },
		func(r *SubmitRequest) { r.VisitType = "joyride" },
		func(r *SubmitRequest) { r.DataCenter = "" },
		func(r *SubmitRequest) { r.ScheduledStart = time.Time{} },
	} {
		req := validSubmit()
		mutate(&req)
		_, err := svc.Submit(context.Background(), req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError for %+v, got %v", req, err)
		}
	}
}

func TestApprovalChain_IssuesCredential(t *testing.T) {
	svc, _, repo, rec := newTestService(t)
	ctx := context.Background()

	p, err := svc.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	p, err = svc.PICReview(ctx, p.ID, "pic-1", true, "checked work order")
	if err != nil {
		t.Fatalf("pic review: %v", err)
	}
	if p.Status != StatusPendingManager {
		t.Fatalf("expected PENDING_MANAGER, got %s", p.Status)
	}
	if p.QRCodeData != "" {
		t.Fatalf("pic approval must not issue a credential")
	}

	p, err = svc.ManagerApprove(ctx, p.ID, "mgr-9", true, "ok")
	if err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if p.Status != StatusApproved {
		t.Fatalf("expected APPROVED, got %s", p.Status)
	}
	if p.QRCodeData == "" || p.OTPCode == "" {
		t.Fatalf("expected credential on approval")
	}
	if len(p.OTPCode) != 6 {
		t.Fatalf("expected 6-digit otp, got %q", p.OTPCode)
	}
	if p.ManagerID != "mgr-9" {
		t.Fatalf("expected acting manager recorded, got %q", p.ManagerID)
	}

	records, err := repo.ListByPermit(ctx, p.ID)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 approval records, got %d", len(records))
	}
	if records[0].Level != approval.LevelPIC || records[1].Level != approval.LevelManager {
		t.Fatalf("unexpected record order: %+v", records)
	}

	evs := rec.Events()
	if evs[len(evs)-1].Type != events.TypePermitApproved {
		t.Fatalf("expected PermitApproved event last, got %s", evs[len(evs)-1].Type)
	}
}

func TestPICReview_RejectionIsTerminal(t *testing.T) {
	svc, _, repo, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Submit(ctx, validSubmit())
	p, err := svc.PICReview(ctx, p.ID, "pic-1", false, "missing documents")
	if err != nil {
		t.Fatalf("pic review: %v", err)
	}
	if p.Status != StatusRejected {
		t.Fatalf("expected REJECTED, got %s", p.Status)
	}

	_, err = svc.ManagerApprove(ctx, p.ID, "mgr-1", true, "")
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError after rejection, got %v", err)
	}
	if se.Current != StatusRejected {
		t.Fatalf("expected error to carry REJECTED, got %s", se.Current)
	}

	// Rejection still leaves a ledger record.
	records, _ := repo.ListByPermit(ctx, p.ID)
	if len(records) != 1 || records[0].Decision != approval.DecisionRejected {
		t.Fatalf("expected one rejection record, got %+v", records)
	}

	// No further review of any kind succeeds.
	if _, err := svc.PICReview(ctx, p.ID, "pic-1", true, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on re-review, got %v", err)
	}
}

func TestPICReview_WrongPICForbidden(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Submit(ctx, validSubmit())
	_, err := svc.PICReview(ctx, p.ID, "pic-2", true, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Failed authorization must not have moved the permit.
	got, _ := store.Get(ctx, p.ID)
	if got.Status != StatusPendingPIC {
		t.Fatalf("expected permit untouched, got %s", got.Status)
	}
}

func TestPICReview_DoubleSubmissionRace(t *testing.T) {
	svc, _, repo, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Submit(ctx, validSubmit())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PICReview(ctx, p.ID, "pic-1", true, "")
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else if errors.Is(err, ErrInvalidState) {
			lost++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("expected exactly one winner, got won=%d lost=%d", won, lost)
	}

	records, _ := repo.ListByPermit(ctx, p.ID)
	if len(records) != 1 {
		t.Fatalf("expected 1 approval record, got %d", len(records))
	}
}

func TestCancel_OwnerOnlyUnlessPrivileged(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Submit(ctx, validSubmit())

	if _, err := svc.Cancel(ctx, p.ID, "someone-else", false, "nope"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	p2, err := svc.Cancel(ctx, p.ID, "visitor-1", false, "plans changed")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p2.Status != StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", p2.Status)
	}

	evs := rec.Events()
	if evs[len(evs)-1].Type != events.TypePermitCancelled {
		t.Fatalf("expected PermitCancelled event")
	}
}

func TestCancel_ClearsCredential(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	p := approvedPermit(t, svc)
	p2, err := svc.Cancel(ctx, p.ID, "admin-1", true, "incident lockdown")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p2.QRCodeData != "" || p2.OTPCode != "" {
		t.Fatalf("expected credential cleared on cancel")
	}

	got, _ := store.Get(ctx, p.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("expected CANCELLED persisted, got %s", got.Status)
	}
}

func TestCancel_LosesRaceAgainstReview(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Submit(ctx, validSubmit())
	if _, err := svc.PICReview(ctx, p.ID, "pic-1", false, "denied"); err != nil {
		t.Fatalf("review: %v", err)
	}

	_, err := svc.Cancel(ctx, p.ID, "visitor-1", false, "too late")
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if se.Current != StatusRejected {
		t.Fatalf("expected current REJECTED in error, got %s", se.Current)
	}
}

func TestRegenerateCredential_ReplacesPair(t *testing.T) {
	svc, _, _, rec := newTestService(t)
	ctx := context.Background()

	p := approvedPermit(t, svc)
	oldQR, oldOTP := p.QRCodeData, p.OTPCode

	p2, err := svc.RegenerateCredential(ctx, p.ID, "pic-1")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if p2.QRCodeData == oldQR {
		t.Fatalf("expected new qr payload")
	}
	if p2.OTPCode == oldOTP {
		t.Fatalf("expected new otp")
	}
	if p2.Status != StatusApproved {
		t.Fatalf("regeneration must not change status, got %s", p2.Status)
	}

	evs := rec.Events()
	if evs[len(evs)-1].Type != events.TypeCredentialRegenerated {
		t.Fatalf("expected CredentialRegenerated event")
	}
}

func TestRegenerateCredential_IllegalWhenPending(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p, _ := svc.Submit(ctx, validSubmit())
	if _, err := svc.RegenerateCredential(ctx, p.ID, "pic-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestExpireOverdue_SweepsApprovedOnly(t *testing.T) {
	svc, store, _, rec := newTestService(t)
	ctx := context.Background()

	p := approvedPermit(t, svc)

	// Not yet overdue.
	n, err := svc.ExpireOverdue(ctx, testNow.Add(30*time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing expired, got %d", n)
	}

	// Past scheduled end with no check-in.
	n, err = svc.ExpireOverdue(ctx, testNow.Add(33*time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}

	got, _ := store.Get(ctx, p.ID)
	if got.Status != StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", got.Status)
	}
	if got.QRCodeData != "" || got.OTPCode != "" {
		t.Fatalf("expected credential cleared on expiry")
	}

	evs := rec.Events()
	if evs[len(evs)-1].Type != events.TypePermitExpired {
		t.Fatalf("expected PermitExpired event")
	}

	// Sweep is idempotent; terminal permits are skipped.
	if n, _ := svc.ExpireOverdue(ctx, testNow.Add(40*time.Hour)); n != 0 {
		t.Fatalf("expected repeat sweep to expire nothing, got %d", n)
	}
}

func TestExpireOverdue_SkipsCheckedInPermit(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	p := approvedPermit(t, svc)

	// The visitor checks in before the sweep sees the permit.
	_, err := store.Transition(ctx, p.ID, []Status{StatusApproved}, func(p *Permit) error {
		p.Status = StatusActive
		return nil
	})
	if err != nil {
		t.Fatalf("check in: %v", err)
	}

	n, err := svc.ExpireOverdue(ctx, testNow.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("active permit must not be expired, got %d", n)
	}

	got, _ := store.Get(ctx, p.ID)
	if got.Status != StatusActive {
		t.Fatalf("expected ACTIVE preserved, got %s", got.Status)
	}
}

func TestPermitNumbersAreUnique(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		p, err := svc.Submit(ctx, validSubmit())
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if _, dup := seen[p.PermitNumber]; dup {
			t.Fatalf("duplicate permit number %q", p.PermitNumber)
		}
		seen[p.PermitNumber] = struct{}{}
	}
}

// approvedPermit drives a fresh permit through both approvals.
func approvedPermit(t *testing.T, svc *Service) Permit {
	t.Helper()
	ctx := context.Background()
	p, err := svc.Submit(ctx, validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.PICReview(ctx, p.ID, "pic-1", true, ""); err != nil {
		t.Fatalf("pic review: %v", err)
	}
	p, err = svc.ManagerApprove(ctx, p.ID, "mgr-1", true, "")
	if err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	return p
}
