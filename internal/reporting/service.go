package reporting

import (
	"context"
	"errors"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/access"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/permit"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations should query immutable sources where possible (the
// access log, permit records filtered by creation time).
type Repository interface {
	ListPermits(ctx context.Context, r TimeRange, dataCenter string) ([]permit.Permit, error)
	ListAccessEntries(ctx context.Context, r TimeRange, location string) ([]access.LogEntry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) PermitSummary(ctx context.Context, req PermitSummaryRequest) (PermitSummary, error) {
	if err := validateRange(req.Range); err != nil {
		return PermitSummary{}, err
	}
	if s.repo == nil {
		return PermitSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListPermits(ctx, req.Range, req.DataCenter)
	if err != nil {
		return PermitSummary{}, err
	}

	out := PermitSummary{DataCenter: req.DataCenter}
	for _, p := range rows {
		out.TotalPermits++
		switch p.Status {
		case permit.StatusPendingPIC:
			out.PendingPIC++
		case permit.StatusPendingManager:
			out.PendingManager++
		case permit.StatusApproved:
			out.Approved++
		case permit.StatusActive:
			out.Active++
		case permit.StatusCompleted:
			out.Completed++
		case permit.StatusRejected:
			out.Rejected++
		case permit.StatusCancelled:
			out.Cancelled++
		case permit.StatusExpired:
			out.Expired++
		}
	}
	return out, nil
}

func (s *Service) AccessSummary(ctx context.Context, req AccessSummaryRequest) (AccessSummary, error) {
	if err := validateRange(req.Range); err != nil {
		return AccessSummary{}, err
	}
	if s.repo == nil {
		return AccessSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListAccessEntries(ctx, req.Range, req.Location)
	if err != nil {
		return AccessSummary{}, err
	}

	out := AccessSummary{Location: req.Location}
	for _, e := range rows {
		out.TotalAttempts++
		switch e.Type {
		case access.EntryCheckIn:
			out.CheckIns++
		case access.EntryCheckOut:
			out.CheckOuts++
		case access.EntryDenied:
			out.Denied++
		}
	}
	return out, nil
}

func validateRange(r TimeRange) error {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return ErrInvalidRequest
	}
	return nil
}
