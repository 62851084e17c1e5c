// Package scheduler runs one expiry action per giveaway at its end time.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"giveaway-bot/internal/metrics"
	"giveaway-bot/internal/utils/clock"
)

// Action is run once when a timer fires. Errors are logged, never retried.
type Action func(ctx context.Context) error

type entry struct {
	fireAt time.Time
	timer  clock.Timer
}

// Scheduler keeps at most one armed timer per id. Arming an id again
// replaces its timer; a replaced or cancelled timer never runs its action.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	clock  clock.Clock
	log    zerolog.Logger

	mu      sync.Mutex
	timers  map[string]*entry
	stopped bool
	wg      sync.WaitGroup
}

func New(clk clock.Clock, log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		clock:  clk,
		log:    log,
		timers: make(map[string]*entry),
	}
}

// Arm schedules action for id at fireAt. An instant in the past fires as
// soon as possible.
func (s *Scheduler) Arm(id string, fireAt time.Time, action Action) {
	e := &entry{fireAt: fireAt}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.log.Warn().Str("giveaway_id", id).Msg("arm after stop ignored")
		return
	}
	if old, ok := s.timers[id]; ok && old.timer != nil {
		old.timer.Stop()
	}
	s.timers[id] = e
	delay := max(fireAt.Sub(s.clock.Now()), 0)
	s.updateGauge()
	s.mu.Unlock()

	// AfterFunc may fire synchronously, so the lock is not held here
	t := s.clock.AfterFunc(delay, func() { s.fire(id, e, action) })

	s.mu.Lock()
	e.timer = t
	s.mu.Unlock()

	s.log.Debug().Str("giveaway_id", id).Time("fire_at", fireAt).Dur("delay", delay).Msg("timer armed")
}

func (s *Scheduler) fire(id string, e *entry, action Action) {
	s.mu.Lock()
	if s.stopped || s.timers[id] != e {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.updateGauge()
	s.wg.Add(1)
	s.mu.Unlock()

	s.run(id, action)
}

func (s *Scheduler) run(id string, action Action) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("giveaway_id", id).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("expiry action panicked")
		}
	}()

	if err := action(s.ctx); err != nil {
		s.log.Error().Err(err).Str("giveaway_id", id).Msg("expiry action failed")
		return
	}
	s.log.Debug().Str("giveaway_id", id).Msg("expiry action done")
}

// Cancel disarms id. It reports whether a pending timer was removed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[id]
	if !ok {
		return false
	}
	delete(s.timers, id)
	if e.timer != nil {
		e.timer.Stop()
	}
	s.updateGauge()
	return true
}

// Armed reports whether id has a pending timer and when it fires.
func (s *Scheduler) Armed(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[id]
	if !ok {
		return time.Time{}, false
	}
	return e.fireAt, true
}

// Pending returns the number of timers waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms every timer and waits for running actions until ctx is done.
// The context handed to actions is cancelled on return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for id, e := range s.timers {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(s.timers, id)
	}
	s.updateGauge()
	s.mu.Unlock()

	defer s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for expiry actions: %w", ctx.Err())
	}
}

func (s *Scheduler) updateGauge() {
	metrics.ArmedTimers.Set(float64(len(s.timers)))
}
