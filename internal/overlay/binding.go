// Package overlay composes fields, particles, and rendering into
// animated hazard layers and manages their lifecycle against a shared
// viewport. Each attached overlay runs its own frame loop; the Manager
// reconciles the set of overlays against feed updates.
package overlay

import (
	"math"
	"time"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
)

// Overlay kinds, also used as metric label values.
const (
	KindWind      = "wind"
	KindCyclone   = "cyclone"
	KindFlood     = "flood"
	KindDetection = "detection"
)

// Surface receives one overlay's finished frames. The host hands a
// surface out per overlay and gets it back through Close; Detach closes
// the surface on every path, including frame-loop failures.
type Surface interface {
	Present(buf *render.Buffer) error
	Close() error
}

// SurfaceProvider mints drawing surfaces, one per attached overlay.
type SurfaceProvider interface {
	AcquireSurface(kind string) (Surface, error)
}

// Tuning sizes one overlay's particle ensemble and fade behavior.
type Tuning struct {
	// Particles is the fixed ensemble size; zero makes the overlay
	// decoration-only regardless of its binding.
	Particles int
	// MinAgeTicks and MaxAgeTicks bound particle lifespans.
	MinAgeTicks int
	MaxAgeTicks int
	// SpeedFactor scales flow before advection.
	SpeedFactor float64
	// FadeRetain is the per-frame trail retention in (0, 1).
	FadeRetain float64
}

// Motion is the particle side of a binding: the field that advects, the
// region that spawns, and the ramp that colors by speed.
type Motion struct {
	Field  field.Field
	Region particle.SpawnRegion
	Ramp   render.Ramp
}

// Frame is the drawing context handed to binding decorations.
type Frame struct {
	R *render.Renderer
	// Proj maps geographic points to the surface.
	Proj render.Projector
	// Elapsed is the overlay's accumulated animation time, driving
	// pulses and ripples.
	Elapsed time.Duration
}

// PixelRadius converts a ground distance at center into surface pixels
// by projecting the center and a point that far due east of it.
func (f *Frame) PixelRadius(center geo.Point, meters float64) float64 {
	a := f.Proj.Project(center)
	b := f.Proj.Project(geo.Destination(center, meters, 90))
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Binding adapts one hazard descriptor to the engine. Bindings are
// immutable; updates swap in a freshly built binding while the overlay
// keeps its particle ensemble.
type Binding interface {
	// ID identifies the hazard this binding renders. The ambient wind
	// binding uses a fixed well-known ID.
	ID() string
	// Kind is one of the Kind constants.
	Kind() string
	// Motion returns the particle setup. ok is false for bindings that
	// only draw decorations.
	Motion() (m Motion, ok bool)
	// Anchored reports whether the spawn region follows the viewport
	// instead of a fixed geography. Anchored overlays reseed after
	// pans and zooms; geographic ones keep their particles.
	Anchored() bool
	// Decorate draws the binding's static geometry for this frame.
	Decorate(f *Frame)
}

func mustRamp(r render.Ramp, err error) render.Ramp {
	if err != nil {
		panic(err)
	}
	return r
}
