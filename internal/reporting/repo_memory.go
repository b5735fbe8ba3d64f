package reporting

import (
	"context"
	"sync"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/access"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/permit"
)

// MemoryRepo is a simple in-memory reporting repository for tests and
// early development.
type MemoryRepo struct {
	mu sync.Mutex

	Permits []permit.Permit
	Entries []access.LogEntry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListPermits(_ context.Context, tr TimeRange, dataCenter string) ([]permit.Permit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]permit.Permit, 0)
	for _, p := range r.Permits {
		if !p.CreatedAt.IsZero() {
			if p.CreatedAt.Before(tr.From) || !p.CreatedAt.Before(tr.To) {
				continue
			}
		}
		if dataCenter != "" && p.DataCenter != dataCenter {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *MemoryRepo) ListAccessEntries(_ context.Context, tr TimeRange, location string) ([]access.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]access.LogEntry, 0)
	for _, e := range r.Entries {
		if !e.OccurredAt.IsZero() {
			if e.OccurredAt.Before(tr.From) || !e.OccurredAt.Before(tr.To) {
				continue
			}
		}
		if location != "" && e.Location != location {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
