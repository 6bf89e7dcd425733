// Package anim owns the frame loop: a single goroutine that ticks
// overlays at a bounded rate and knows how to pause without tearing
// itself down.
package anim

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the scheduler lifecycle state.
type State int32

const (
	// StateIdle means no loop goroutine exists.
	StateIdle State = iota
	// StateRunning means frames are being produced.
	StateRunning
	// StateSuspended means the loop is alive but skipping frames, used
	// while the camera is being dragged.
	StateSuspended
)

// String returns the lowercase state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

const (
	// DefaultInterval targets roughly 30 frames per second.
	DefaultInterval = 33 * time.Millisecond
	// DefaultMaxDelta caps the dt handed to a frame. After a stall the
	// simulation takes one bounded step instead of fast-forwarding
	// through the gap.
	DefaultMaxDelta = 250 * time.Millisecond
)

// Config tunes a scheduler. Zero values take the package defaults.
type Config struct {
	// Interval is the target frame spacing.
	Interval time.Duration
	// MaxDelta clamps the per-frame dt.
	MaxDelta time.Duration
	// Clock supplies time; tests inject a fake.
	Clock clockwork.Clock
}

// FrameFunc advances and draws one frame. Returning an error stops the
// loop; the scheduler goes Idle without panicking.
type FrameFunc func(dt time.Duration) error

// Scheduler drives a FrameFunc from its own goroutine. Start, Stop,
// Suspend, and Resume are safe to call from any goroutine and are all
// idempotent. The zero value is not usable; construct with New.
type Scheduler struct {
	interval time.Duration
	maxDelta time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	frame    FrameFunc

	state  atomic.Int32
	frames atomic.Uint64

	mu  sync.Mutex
	gen *generation
}

// generation holds the channels of one Start/Stop cycle, so a restart
// never races the teardown of the loop before it.
type generation struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New builds an idle scheduler around frame.
func New(frame FrameFunc, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if frame == nil {
		return nil, errors.New("anim: frame func must not be nil")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxDelta == 0 {
		cfg.MaxDelta = DefaultMaxDelta
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("anim: interval must be positive")
	}
	if cfg.MaxDelta < cfg.Interval {
		return nil, errors.New("anim: max delta must be at least the interval")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		interval: cfg.Interval,
		maxDelta: cfg.MaxDelta,
		clock:    cfg.Clock,
		logger:   logger,
		frame:    frame,
	}, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Frames returns how many frames have completed since construction.
func (s *Scheduler) Frames() uint64 {
	return s.frames.Load()
}

// Start launches the loop. Calling it while the loop is running or
// suspended does nothing; there is never more than one loop goroutine.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return
	}
	g := &generation{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.gen = g
	go s.loop(g)
}

// Stop halts the loop and blocks until it has drained, which takes at
// most one frame. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	g := s.gen
	s.mu.Unlock()
	if g == nil {
		return
	}
	g.stopOnce.Do(func() { close(g.stop) })
	<-g.done
}

// Suspend pauses frame production while keeping the loop alive. Only a
// running scheduler can suspend.
func (s *Scheduler) Suspend() {
	s.state.CompareAndSwap(int32(StateRunning), int32(StateSuspended))
}

// Resume continues after Suspend. The first frame after resuming gets a
// fresh dt, not the whole suspended span.
func (s *Scheduler) Resume() {
	s.state.CompareAndSwap(int32(StateSuspended), int32(StateRunning))
}

func (s *Scheduler) loop(g *generation) {
	defer close(g.done)
	defer s.state.Store(int32(StateIdle))

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	last := s.clock.Now()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.Chan():
			now := s.clock.Now()
			dt := now.Sub(last)
			last = now

			if State(s.state.Load()) == StateSuspended {
				continue
			}
			if dt > s.maxDelta {
				dt = s.maxDelta
			}
			if dt <= 0 {
				dt = s.interval
			}
			if err := s.frame(dt); err != nil {
				s.logger.Warn("frame failed, stopping animation", "error", err)
				return
			}
			s.frames.Add(1)
		}
	}
}
