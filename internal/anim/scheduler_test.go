package anim_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-overlay-engine/internal/anim"
)

const interval = 33 * time.Millisecond

// --- mocks ---

// frameSpy records every frame call and can be told to start failing.
type frameSpy struct {
	mu    sync.Mutex
	dts   []time.Duration
	calls atomic.Uint64
	fail  atomic.Bool
}

func (f *frameSpy) frame(dt time.Duration) error {
	f.mu.Lock()
	f.dts = append(f.dts, dt)
	f.mu.Unlock()
	f.calls.Add(1)
	if f.fail.Load() {
		return errors.New("surface went away")
	}
	return nil
}

func (f *frameSpy) count() uint64 { return f.calls.Load() }

func (f *frameSpy) deltas() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.dts))
	copy(out, f.dts)
	return out
}

// --- tests ---

func TestNewValidation(t *testing.T) {
	logger := discardLogger()

	t.Run("rejects nil frame func", func(t *testing.T) {
		_, err := anim.New(nil, anim.Config{}, logger)
		require.Error(t, err)
	})

	t.Run("rejects max delta below interval", func(t *testing.T) {
		_, err := anim.New(func(time.Duration) error { return nil }, anim.Config{
			Interval: 50 * time.Millisecond,
			MaxDelta: 10 * time.Millisecond,
		}, logger)
		require.Error(t, err)
	})

	t.Run("zero config takes defaults", func(t *testing.T) {
		s, err := anim.New(func(time.Duration) error { return nil }, anim.Config{}, logger)
		require.NoError(t, err)
		assert.Equal(t, anim.StateIdle, s.State())
	})
}

func TestSchedulerRunsFrames(t *testing.T) {
	fc := clockwork.NewFakeClock()
	spy := &frameSpy{}
	s := newScheduler(t, spy, fc)

	s.Start()
	t.Cleanup(s.Stop)
	assert.Equal(t, anim.StateRunning, s.State())

	for want := uint64(1); want <= 3; want++ {
		fc.BlockUntil(1)
		fc.Advance(interval)
		waitFor(t, func() bool { return spy.count() == want })
	}
	assert.Equal(t, uint64(3), s.Frames())
}

func TestSchedulerStopHaltsTicking(t *testing.T) {
	fc := clockwork.NewFakeClock()
	spy := &frameSpy{}
	s := newScheduler(t, spy, fc)

	s.Start()
	fc.BlockUntil(1)
	fc.Advance(interval)
	waitFor(t, func() bool { return spy.count() == 1 })

	s.Stop()
	require.Equal(t, anim.StateIdle, s.State())

	// Stop blocks until the loop goroutine has exited, so however far
	// the clock moves afterwards, nothing is left to consume it.
	fc.Advance(10 * interval)
	fc.Advance(10 * interval)
	assert.Equal(t, uint64(1), spy.count())
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	spy := &frameSpy{}
	s := newScheduler(t, spy, fc)

	s.Start()
	s.Start()
	s.Start()
	t.Cleanup(s.Stop)

	fc.BlockUntil(1)
	fc.Advance(interval)
	waitFor(t, func() bool { return spy.count() >= 1 })

	// One loop means one frame per tick. A second loop would have raced
	// this one and produced extras.
	assert.Equal(t, uint64(1), spy.count())
}

func TestSchedulerStopIsSafeWithoutStart(t *testing.T) {
	s := newScheduler(t, &frameSpy{}, clockwork.NewFakeClock())

	s.Stop()
	s.Stop()
	assert.Equal(t, anim.StateIdle, s.State())
}

func TestSchedulerSuspendResume(t *testing.T) {
	fc := clockwork.NewFakeClock()
	spy := &frameSpy{}
	s := newScheduler(t, spy, fc)

	s.Start()
	t.Cleanup(s.Stop)
	fc.BlockUntil(1)
	fc.Advance(interval)
	waitFor(t, func() bool { return spy.count() == 1 })

	s.Suspend()
	assert.Equal(t, anim.StateSuspended, s.State())

	before := spy.count()
	fc.Advance(interval)
	fc.Advance(interval)
	assert.Equal(t, before, spy.count(), "suspended scheduler must not produce frames")

	s.Resume()
	assert.Equal(t, anim.StateRunning, s.State())

	fc.Advance(interval)
	waitFor(t, func() bool { return spy.count() >= before+1 })
}

func TestSchedulerSuspendRequiresRunning(t *testing.T) {
	s := newScheduler(t, &frameSpy{}, clockwork.NewFakeClock())

	s.Suspend()
	assert.Equal(t, anim.StateIdle, s.State(), "idle scheduler cannot suspend")

	s.Resume()
	assert.Equal(t, anim.StateIdle, s.State())
}

func TestSchedulerFrameErrorGoesIdle(t *testing.T) {
	fc := clockwork.NewFakeClock()
	spy := &frameSpy{}
	s := newScheduler(t, spy, fc)

	s.Start()
	fc.BlockUntil(1)
	fc.Advance(interval)
	waitFor(t, func() bool { return spy.count() == 1 })

	spy.fail.Store(true)
	fc.Advance(interval)

	waitFor(t, func() bool { return s.State() == anim.StateIdle })
	assert.Equal(t, uint64(1), s.Frames(), "the failed frame must not count")

	// Stop after an error exit stays safe.
	s.Stop()
}

func TestSchedulerDeltaIsClampedAndPositive(t *testing.T) {
	const maxDelta = 150 * time.Millisecond
	fc := clockwork.NewFakeClock()
	spy := &frameSpy{}

	s, err := anim.New(spy.frame, anim.Config{
		Interval: 100 * time.Millisecond,
		MaxDelta: maxDelta,
		Clock:    fc,
	}, discardLogger())
	require.NoError(t, err)

	s.Start()
	t.Cleanup(s.Stop)
	fc.BlockUntil(1)

	// Simulate a long stall, then normal ticking.
	fc.Advance(2 * time.Second)
	waitFor(t, func() bool { return spy.count() >= 1 })
	fc.Advance(100 * time.Millisecond)
	waitFor(t, func() bool { return spy.count() >= 2 })

	for i, dt := range spy.deltas() {
		assert.Positive(t, dt, "frame %d got a non-positive dt", i)
		assert.LessOrEqual(t, dt, maxDelta, "frame %d dt escaped the clamp", i)
	}
}

func TestSchedulerRestart(t *testing.T) {
	fc := clockwork.NewFakeClock()
	spy := &frameSpy{}
	s := newScheduler(t, spy, fc)

	s.Start()
	fc.BlockUntil(1)
	fc.Advance(interval)
	waitFor(t, func() bool { return spy.count() == 1 })
	s.Stop()

	s.Start()
	t.Cleanup(s.Stop)
	require.Equal(t, anim.StateRunning, s.State())

	fc.BlockUntil(1)
	fc.Advance(interval)
	waitFor(t, func() bool { return spy.count() >= 2 })
}

// --- helpers ---

func newScheduler(t *testing.T, spy *frameSpy, clock clockwork.Clock) *anim.Scheduler {
	t.Helper()
	s, err := anim.New(spy.frame, anim.Config{
		Interval: interval,
		MaxDelta: 10 * interval,
		Clock:    clock,
	}, discardLogger())
	require.NoError(t, err)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
