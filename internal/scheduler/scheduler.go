// Package scheduler runs the deal processor on a fixed interval, never more
// than one run at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pauljones0/smart-deals-bot/internal/processor"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrBusy           = errors.New("a run is already in progress")
)

type Scheduler struct {
	processor  processor.Processor
	interval   time.Duration
	runTimeout time.Duration

	guard *semaphore.Weighted
	wg    sync.WaitGroup

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a stopped scheduler. A non-positive runTimeout leaves runs
// without a deadline of their own.
func New(p processor.Processor, interval, runTimeout time.Duration) *Scheduler {
	return &Scheduler{
		processor:  p,
		interval:   interval,
		runTimeout: runTimeout,
		guard:      semaphore.NewWeighted(1),
	}
}

// Start begins the loop. The first run happens on the first tick. The loop
// ends when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop(s.ctx)
	slog.Info("Scheduler started", "interval", s.interval, "runTimeout", s.runTimeout)
	return nil
}

// Stop cancels the loop and any in-flight run and waits for both to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

// Trigger starts a run in the background. It returns false when a run is
// already in flight or the scheduler is not running.
func (s *Scheduler) Trigger() bool {
	return s.tryStart("trigger")
}

// RunOnce runs the processor synchronously under the same single-run guard.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.guard.TryAcquire(1) {
		return ErrBusy
	}
	defer s.guard.Release(1)
	return s.run(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tryStart("tick")
		}
	}
}

func (s *Scheduler) tryStart(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		slog.Warn("Run not started, scheduler is not running", "reason", reason)
		return false
	}
	if !s.guard.TryAcquire(1) {
		slog.Info("Skipping run, previous run still in progress", "reason", reason)
		return false
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.guard.Release(1)
		if err := s.run(ctx); err != nil {
			slog.Error("Error processing deals", "reason", reason, "error", err)
		}
	}()
	return true
}

func (s *Scheduler) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in ProcessDeals: %v", r)
		}
	}()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	start := time.Now()
	err = s.processor.ProcessDeals(ctx)
	slog.Debug("Run finished", "duration", time.Since(start))
	return err
}
