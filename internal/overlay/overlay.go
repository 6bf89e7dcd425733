package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-overlay-engine/internal/anim"
	"github.com/couchcryptid/storm-overlay-engine/internal/observability"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// Config assembles one overlay.
type Config struct {
	Binding  Binding
	Viewport *viewport.Adapter
	Surface  Surface
	Tuning   Tuning

	// Interval and MaxDelta tune the frame loop; zero takes the anim
	// package defaults.
	Interval time.Duration
	MaxDelta time.Duration
	// Clock drives the loop; tests inject a fake.
	Clock clockwork.Clock
	// Seed fixes the particle random sequence; zero draws one.
	Seed int64

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Overlay is one attached animated layer: a binding, its particle
// ensemble, a renderer, and the frame loop that drives them onto a
// surface. Build with New, start with Attach, and always end with
// Detach, which stops the loop and closes the surface on every path.
type Overlay struct {
	id       uuid.UUID
	kind     string
	hazardID string

	vp      *viewport.Adapter
	surface Surface
	logger  *slog.Logger
	metrics *observability.Metrics
	sched   *anim.Scheduler

	mu      sync.Mutex
	binding Binding
	sys     *particle.System
	rend    *render.Renderer

	visible  atomic.Bool
	detached atomic.Bool

	// Frame-goroutine state; only the scheduler loop touches these.
	lastVersion  uint64
	elapsed      time.Duration
	wasVisible   bool
	respawnsSeen uint64
}

// New builds an idle overlay. The ensemble is allocated here; Attach
// only starts the loop.
func New(cfg Config) (*Overlay, error) {
	if cfg.Binding == nil {
		return nil, errors.New("overlay: binding must not be nil")
	}
	if cfg.Viewport == nil {
		return nil, errors.New("overlay: viewport must not be nil")
	}
	if cfg.Surface == nil {
		return nil, errors.New("overlay: surface must not be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("overlay: logger must not be nil")
	}
	if cfg.Metrics == nil {
		return nil, errors.New("overlay: metrics must not be nil")
	}

	w, h := cfg.Viewport.Size()
	rend, err := render.New(w, h, render.Config{FadeRetain: cfg.Tuning.FadeRetain})
	if err != nil {
		return nil, fmt.Errorf("overlay renderer: %w", err)
	}

	o := &Overlay{
		id:          uuid.New(),
		kind:        cfg.Binding.Kind(),
		hazardID:    cfg.Binding.ID(),
		vp:          cfg.Viewport,
		surface:     cfg.Surface,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		binding:     cfg.Binding,
		rend:        rend,
		lastVersion: cfg.Viewport.Version(),
		wasVisible:  true,
	}
	o.visible.Store(true)

	if m, ok := cfg.Binding.Motion(); ok && cfg.Tuning.Particles > 0 {
		sys, err := particle.New(particle.Config{
			Count:       cfg.Tuning.Particles,
			MinAge:      cfg.Tuning.MinAgeTicks,
			MaxAge:      cfg.Tuning.MaxAgeTicks,
			SpeedFactor: cfg.Tuning.SpeedFactor,
			Region:      m.Region,
			Seed:        cfg.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("overlay ensemble: %w", err)
		}
		o.sys = sys
	}

	sched, err := anim.New(o.frame, anim.Config{
		Interval: cfg.Interval,
		MaxDelta: cfg.MaxDelta,
		Clock:    cfg.Clock,
	}, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("overlay scheduler: %w", err)
	}
	o.sched = sched
	return o, nil
}

// ID returns the overlay handle ID.
func (o *Overlay) ID() uuid.UUID { return o.id }

// Kind returns the overlay kind.
func (o *Overlay) Kind() string { return o.kind }

// HazardID returns the feed ID of the hazard this overlay renders.
func (o *Overlay) HazardID() string { return o.hazardID }

// State returns the frame loop state.
func (o *Overlay) State() anim.State { return o.sched.State() }

// Frames returns how many frames the loop has completed.
func (o *Overlay) Frames() uint64 { return o.sched.Frames() }

// Particles returns the ensemble size, zero for decoration-only
// overlays.
func (o *Overlay) Particles() int {
	if o.sys == nil {
		return 0
	}
	return o.sys.Len()
}

// Attach starts the frame loop. Attaching twice is harmless; attaching
// after Detach is an error.
func (o *Overlay) Attach() error {
	if o.detached.Load() {
		return errors.New("overlay: attach after detach")
	}
	o.sched.Start()
	o.metrics.OverlaysActive.WithLabelValues(o.kind).Inc()
	o.metrics.ParticlesLive.Add(float64(o.Particles()))
	o.logger.Info("overlay attached",
		"kind", o.kind, "hazard_id", o.hazardID, "particles", o.Particles())
	return nil
}

// Detach stops the loop and closes the surface. It is idempotent; the
// surface is closed exactly once no matter how many times or from how
// many goroutines it is called.
func (o *Overlay) Detach() error {
	if !o.detached.CompareAndSwap(false, true) {
		return nil
	}
	o.sched.Stop()
	o.metrics.OverlaysActive.WithLabelValues(o.kind).Dec()
	o.metrics.ParticlesLive.Sub(float64(o.Particles()))
	err := o.surface.Close()
	o.logger.Info("overlay detached", "kind", o.kind, "hazard_id", o.hazardID)
	if err != nil {
		return fmt.Errorf("close %s surface: %w", o.kind, err)
	}
	return nil
}

// SetBinding swaps in fresh hazard data. Particles keep their positions
// and ages; only the field they sample and the region future respawns
// use change under them.
func (o *Overlay) SetBinding(b Binding) error {
	if b == nil {
		return errors.New("overlay: binding must not be nil")
	}
	if b.Kind() != o.kind {
		return fmt.Errorf("overlay: cannot rebind %s overlay to %s", o.kind, b.Kind())
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.binding = b
	if o.sys != nil {
		if m, ok := b.Motion(); ok {
			if err := o.sys.SetRegion(m.Region); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetVisible toggles drawing. A hidden overlay stays attached and keeps
// its state but presents a dark frame and stops ticking.
func (o *Overlay) SetVisible(v bool) { o.visible.Store(v) }

// Visible reports whether the overlay is currently drawing.
func (o *Overlay) Visible() bool { return o.visible.Load() }

// Suspend pauses the frame loop, used while the camera is dragged.
func (o *Overlay) Suspend() { o.sched.Suspend() }

// Resume continues after Suspend.
func (o *Overlay) Resume() { o.sched.Resume() }

// frame runs one animation step on the scheduler goroutine.
func (o *Overlay) frame(dt time.Duration) error {
	start := time.Now()

	o.mu.Lock()
	defer o.mu.Unlock()

	o.elapsed += dt

	// Follow surface resizes, and reseed viewport-anchored ensembles so
	// their spawn region matches what is visible now.
	if v := o.vp.Version(); v != o.lastVersion {
		o.lastVersion = v
		w, h := o.vp.Size()
		bw, bh := o.rend.Size()
		if w != bw || h != bh {
			o.rend.Resize(w, h)
		}
		if o.sys != nil && o.binding.Anchored() {
			if m, ok := o.binding.Motion(); ok {
				if err := o.sys.Reseed(m.Region); err != nil {
					return err
				}
			}
		}
	}

	if !o.visible.Load() {
		if o.wasVisible {
			// One dark frame so the layer actually disappears.
			o.rend.Buffer().Clear()
			if err := o.surface.Present(o.rend.Buffer()); err != nil {
				o.metrics.FrameErrors.Inc()
				return fmt.Errorf("present %s overlay: %w", o.kind, err)
			}
			o.wasVisible = false
		}
		return nil
	}
	o.wasVisible = true

	o.rend.BeginFrame()
	if o.sys != nil {
		if m, ok := o.binding.Motion(); ok {
			o.sys.Tick(dt, m.Field)
			o.rend.DrawParticles(o.sys, o.vp, m.Ramp)

			respawns := o.sys.Respawns()
			o.metrics.Respawns.Add(float64(respawns - o.respawnsSeen))
			o.respawnsSeen = respawns
		}
	}
	o.binding.Decorate(&Frame{R: o.rend, Proj: o.vp, Elapsed: o.elapsed})

	if err := o.surface.Present(o.rend.Buffer()); err != nil {
		o.metrics.FrameErrors.Inc()
		return fmt.Errorf("present %s overlay: %w", o.kind, err)
	}

	o.metrics.FramesRendered.WithLabelValues(o.kind).Inc()
	o.metrics.FrameDuration.WithLabelValues(o.kind).Observe(time.Since(start).Seconds())
	return nil
}
