package permit

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires APPROVED permits whose scheduled end has
// passed. It runs as a background goroutine; Stop waits for the loop to
// exit. An interval of 0 falls back to the default.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

const defaultSweepInterval = time.Minute

func NewSweeper(svc *Service, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		svc:      svc,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop: one immediate pass, then one per interval.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.log.Info("expiry sweeper started", "interval", s.interval.String())
}

// Stop signals the loop to exit and waits for it.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.svc.ExpireOverdue(ctx, time.Now())
	if err != nil {
		s.log.Error("expiry sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("expired overdue permits", "count", n)
	}
}
