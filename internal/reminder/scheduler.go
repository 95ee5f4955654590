package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler triggers a sweep on a fixed cadence. The dedup window equals
// the sweep interval, which guarantees at most one reminder per chore per
// interval without persisted last-notified state. Sweeps run sequentially
// from one goroutine; a tick that fires while a sweep is still running is
// absorbed by the ticker.
type Scheduler struct {
	mu       sync.RWMutex
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(engine *Engine, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the sweep loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("reminder scheduler started", "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.engine.Sweep(ctx, time.Now(), s.interval); err != nil {
					s.logger.Error("reminder sweep", "error", err)
				}
			}
		}
	}()
}

// Stop cancels future sweeps and waits for an in-flight one to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
