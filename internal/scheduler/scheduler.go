// Package scheduler drives the recurring sync cycle that refreshes the store from the backend.
package scheduler

import (
	"context"
	"github.com/myrjola/resqlink/internal/errors"
	"github.com/myrjola/resqlink/internal/logging"
	"github.com/myrjola/resqlink/internal/store"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyStarted = errors.NewSentinel("scheduler already started")
	ErrStopped        = errors.NewSentinel("scheduler stopped")
)

// Fetcher reads one snapshot of every collection. [fetcher.Fetcher] implements it.
type Fetcher interface {
	Fetch(ctx context.Context) store.Snapshot
}

type ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) Chan() <-chan time.Time {
	return t.C
}

func newTimeTicker(d time.Duration) ticker {
	return timeTicker{Ticker: time.NewTicker(d)}
}

// Scheduler runs at most one sync cycle at a time. Ticks arriving while a cycle is in flight are skipped.
type Scheduler struct {
	store    *store.Store
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger

	newTicker func(time.Duration) ticker

	inFlight atomic.Bool
	skipped  atomic.Int64
	cycles   atomic.Int64

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func New(s *store.Store, fetcher Fetcher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{ //nolint:exhaustruct // zero values are ready to use
		store:     s,
		fetcher:   fetcher,
		interval:  interval,
		logger:    logger.With("source", "Scheduler"),
		newTicker: newTimeTicker,
	}
}

// Start triggers one cycle immediately and then one every interval until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	t := s.newTicker(s.interval)
	s.running.Add(1)
	go s.loop(ctx, t)

	s.logger.LogAttrs(ctx, slog.LevelInfo, "sync scheduler started", slog.Duration("interval", s.interval))
	s.triggerLocked(ctx)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, t ticker) {
	defer s.running.Done()
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.LogAttrs(ctx, slog.LevelInfo, "sync scheduler stopped")
			return
		case <-t.Chan():
			s.Trigger(ctx)
		}
	}
}

// Trigger starts a cycle in the background unless one is already in flight or the scheduler has stopped.
// It reports whether a cycle was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggerLocked(ctx)
}

func (s *Scheduler) triggerLocked(ctx context.Context) bool {
	if s.stopped {
		return false
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		skipped := s.skipped.Add(1)
		s.logger.LogAttrs(ctx, slog.LevelDebug, "cycle still in flight, skipping", slog.Int64("skipped", skipped))
		return false
	}
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.cycle(ctx)
	}()
	return true
}

// RunCycle runs one cycle synchronously. It returns false without fetching if a cycle is already in flight.
func (s *Scheduler) RunCycle(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return false
	}
	s.cycle(ctx)
	return true
}

// cycle fetches a snapshot and applies it. In-flight reads are not cancelled by Stop but their result is discarded.
func (s *Scheduler) cycle(ctx context.Context) {
	defer s.inFlight.Store(false)
	n := s.cycles.Add(1)
	ctx = logging.WithAttrs(context.WithoutCancel(ctx), slog.Int64("cycle", n))

	epoch := s.store.BeginCycle()
	snapshot := s.fetcher.Fetch(ctx)
	if err := s.store.Apply(epoch, snapshot); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "snapshot discarded", errors.SlogError(err))
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "snapshot applied", slog.Int("succeeded", snapshot.Succeeded()))
}

// Stop cancels the recurring cycle and closes the store so that late results are discarded. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.store.Close()
}

// Wait blocks until the loop and every cycle in flight have returned.
func (s *Scheduler) Wait() {
	s.running.Wait()
}

// Skipped returns how many triggers were skipped because a cycle was in flight.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

// InFlight reports whether a cycle is currently running.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}
