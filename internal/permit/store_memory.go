package permit

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store used in tests and dev
// environments. The mutex spans the whole Transition call, which gives the
// same at-most-once guarantee the Postgres store gets from row locks.
type MemoryStore struct {
	mu      sync.Mutex
	permits map[string]Permit
	numbers map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		permits: make(map[string]Permit),
		numbers: make(map[string]struct{}),
	}
}

func (s *MemoryStore) Create(_ context.Context, p Permit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permits[p.ID]; ok {
		return errors.New("permit id already exists")
	}
	if _, ok := s.numbers[p.PermitNumber]; ok {
		return errors.New("permit number already exists")
	}
	s.permits[p.ID] = clone(p)
	s.numbers[p.PermitNumber] = struct{}{}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Permit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.permits[id]
	if !ok {
		return Permit{}, ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) GetByQRCode(_ context.Context, qrCodeData string) (Permit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qrCodeData == "" {
		return Permit{}, ErrNotFound
	}
	for _, p := range s.permits {
		if p.QRCodeData == qrCodeData {
			return clone(p), nil
		}
	}
	return Permit{}, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Permit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Permit
	for _, p := range s.permits {
		if f.VisitorID != "" && p.VisitorID != f.VisitorID {
			continue
		}
		if f.PICID != "" && p.PICID != f.PICID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.DataCenter != "" && p.DataCenter != f.DataCenter {
			continue
		}
		if !f.EndBefore.IsZero() && !p.ScheduledEnd.Before(f.EndBefore) {
			continue
		}
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Transition(_ context.Context, id string, from []Status, mutate func(p *Permit) error) (Permit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.permits[id]
	if !ok {
		return Permit{}, ErrNotFound
	}
	if !statusIn(p.Status, from) {
		return Permit{}, &StateError{Op: "transition", Current: p.Status}
	}

	next := clone(p)
	if err := mutate(&next); err != nil {
		return Permit{}, err
	}
	s.permits[id] = clone(next)
	return next, nil
}

func statusIn(s Status, set []Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func clone(p Permit) Permit {
	out := p
	if p.EquipmentList != nil {
		out.EquipmentList = append([]string(nil), p.EquipmentList...)
	}
	if p.ActualCheckInTime != nil {
		t := *p.ActualCheckInTime
		out.ActualCheckInTime = &t
	}
	if p.ActualCheckOutTime != nil {
		t := *p.ActualCheckOutTime
		out.ActualCheckOutTime = &t
	}
	return out
}
