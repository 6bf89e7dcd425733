// Package viewport bridges the engine to whatever map view hosts it. The
// host owns the projection; the engine only ever asks it questions, one
// frame at a time.
package viewport

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

// ScreenPoint is a position on the drawing surface in pixels. Values may
// fall outside the surface when the geographic point is off-screen.
type ScreenPoint struct {
	X float64
	Y float64
}

// Projector is the host-side projection contract. Project must stay cheap
// enough to call once per particle per frame, because results are never
// cached on this side.
type Projector interface {
	// Project maps a geographic point to surface coordinates.
	Project(p geo.Point) ScreenPoint
	// Bounds returns the geographic area currently visible.
	Bounds() geo.Bounds
	// Size returns the surface dimensions in pixels.
	Size() (width, height int)
}

// Change describes what a viewport update touched.
type Change struct {
	// Resized is set when the surface dimensions changed.
	Resized bool
	// Moved is set when panning or zooming changed the visible bounds.
	Moved bool
}

// Adapter wraps the host projector and turns its updates into something
// the animation loop can pick up safely. Every Project call goes straight
// through to the host; the adapter holds no projected coordinates, so a
// projection change can never leave stale screen positions behind.
//
// Notify is called by the host after it mutates its projection. Listeners
// run synchronously on the notifier's goroutine; the overlay loop instead
// polls Version at frame boundaries, which keeps particle state single-
// threaded.
type Adapter struct {
	mu        sync.RWMutex
	proj      Projector
	listeners []func(Change)

	version atomic.Uint64
}

// NewAdapter wraps proj. The projector must not be nil.
func NewAdapter(proj Projector) (*Adapter, error) {
	if proj == nil {
		return nil, errors.New("viewport: projector must not be nil")
	}
	return &Adapter{proj: proj}, nil
}

// Project delegates to the current projector.
func (a *Adapter) Project(p geo.Point) ScreenPoint {
	a.mu.RLock()
	proj := a.proj
	a.mu.RUnlock()
	return proj.Project(p)
}

// Bounds delegates to the current projector.
func (a *Adapter) Bounds() geo.Bounds {
	a.mu.RLock()
	proj := a.proj
	a.mu.RUnlock()
	return proj.Bounds()
}

// Size delegates to the current projector.
func (a *Adapter) Size() (width, height int) {
	a.mu.RLock()
	proj := a.proj
	a.mu.RUnlock()
	return proj.Size()
}

// SetProjector swaps the host projector, counting as a full change.
func (a *Adapter) SetProjector(proj Projector) error {
	if proj == nil {
		return errors.New("viewport: projector must not be nil")
	}
	a.mu.Lock()
	a.proj = proj
	a.mu.Unlock()
	a.Notify(Change{Resized: true, Moved: true})
	return nil
}

// Notify records that the projection changed and fans the change out to
// listeners.
func (a *Adapter) Notify(c Change) {
	a.version.Add(1)
	a.mu.RLock()
	listeners := a.listeners
	a.mu.RUnlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// OnChange registers a listener for future Notify calls.
func (a *Adapter) OnChange(fn func(Change)) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

// Version increases on every Notify. Frame loops compare it against the
// value they saw last frame to detect pans, zooms, and resizes.
func (a *Adapter) Version() uint64 {
	return a.version.Load()
}
