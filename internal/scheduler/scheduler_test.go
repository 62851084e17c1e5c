package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giveaway-bot/internal/utils/clock"
)

var epoch = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func counting(n *int) Action {
	return func(context.Context) error {
		*n++
		return nil
	}
}

func TestArmFiresOnceAtDeadline(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := New(clk, zerolog.Nop())
	fired := 0

	s.Arm("giveaway-1", epoch.Add(time.Hour), counting(&fired))
	at, ok := s.Armed("giveaway-1")
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Hour), at)

	clk.Advance(59 * time.Minute)
	assert.Zero(t, fired)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, fired)
	assert.Zero(t, s.Pending())

	clk.Advance(24 * time.Hour)
	assert.Equal(t, 1, fired)
}

func TestArmPastInstantFiresPromptly(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := New(clk, zerolog.Nop())
	fired := 0

	s.Arm("giveaway-1", epoch.Add(-time.Hour), counting(&fired))

	assert.Equal(t, 1, fired)
	assert.Zero(t, s.Pending())
}

func TestArmPastInstantWithRealClock(t *testing.T) {
	s := New(clock.Real{}, zerolog.Nop())
	var fired atomic.Int32

	s.Arm("giveaway-1", time.Now().Add(-time.Minute), func(context.Context) error {
		fired.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestRearmReplacesPreviousTimer(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := New(clk, zerolog.Nop())
	var calls []string

	s.Arm("giveaway-1", epoch.Add(time.Minute), func(context.Context) error {
		calls = append(calls, "first")
		return nil
	})
	s.Arm("giveaway-1", epoch.Add(2*time.Minute), func(context.Context) error {
		calls = append(calls, "second")
		return nil
	})
	assert.Equal(t, 1, s.Pending())

	clk.Advance(5 * time.Minute)
	assert.Equal(t, []string{"second"}, calls)
}

func TestCancel(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := New(clk, zerolog.Nop())
	fired := 0

	s.Arm("giveaway-1", epoch.Add(time.Minute), counting(&fired))
	assert.True(t, s.Cancel("giveaway-1"))
	assert.False(t, s.Cancel("giveaway-1"))

	clk.Advance(time.Hour)
	assert.Zero(t, fired)
	_, ok := s.Armed("giveaway-1")
	assert.False(t, ok)
}

func TestIndependentTimers(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := New(clk, zerolog.Nop())
	var order []string
	record := func(id string) Action {
		return func(context.Context) error {
			order = append(order, id)
			return nil
		}
	}

	s.Arm("b", epoch.Add(2*time.Minute), record("b"))
	s.Arm("a", epoch.Add(time.Minute), record("a"))
	s.Arm("c", epoch.Add(3*time.Minute), record("c"))

	clk.Advance(2 * time.Minute)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, s.Pending())
}

func TestActionErrorsAndPanicsAreLogged(t *testing.T) {
	clk := clock.NewFake(epoch)
	var logs bytes.Buffer
	s := New(clk, zerolog.New(&logs))

	s.Arm("boom", epoch, func(context.Context) error { panic("kaboom") })
	s.Arm("fail", epoch, func(context.Context) error { return errors.New("channel unreachable") })

	fired := 0
	s.Arm("ok", epoch.Add(time.Second), counting(&fired))
	clk.Advance(time.Second)

	assert.Equal(t, 1, fired, "a panicking action must not break later timers")
	assert.Contains(t, logs.String(), "kaboom")
	assert.Contains(t, logs.String(), "channel unreachable")
}

func TestStop(t *testing.T) {
	clk := clock.NewFake(epoch)
	s := New(clk, zerolog.Nop())
	fired := 0

	s.Arm("giveaway-1", epoch.Add(time.Minute), counting(&fired))
	require.NoError(t, s.Stop(context.Background()))
	assert.Zero(t, s.Pending())

	clk.Advance(time.Hour)
	s.Arm("giveaway-2", epoch, counting(&fired))
	assert.Zero(t, fired)
}

func TestStopWaitsForRunningAction(t *testing.T) {
	s := New(clock.Real{}, zerolog.Nop())
	started := make(chan struct{})
	release := make(chan struct{})
	var ctxErr atomic.Value

	s.Arm("slow", time.Now(), func(ctx context.Context) error {
		close(started)
		<-release
		ctxErr.Store(ctx.Err() == nil)
		return nil
	})
	<-started

	stopped := make(chan error)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while an action was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.Equal(t, true, ctxErr.Load(), "action context stays live until Stop returns")
}

func TestStopGivesUpAtDeadline(t *testing.T) {
	s := New(clock.Real{}, zerolog.Nop())
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	s.Arm("stuck", time.Now(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}
