package overlay

import (
	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// WindID is the fixed hazard ID of the single ambient wind overlay.
const WindID = "ambient-wind"

// windSpawnPadFrac widens the spawn box past the visible bounds so
// particles drift into view instead of popping up at the edge.
const windSpawnPadFrac = 0.05

// WindBinding animates the sampled wind field across whatever the
// viewport currently shows. It is the one viewport-anchored binding:
// its spawn region is recomputed from the live bounds, so the overlay
// reseeds after every pan or zoom.
type WindBinding struct {
	store *field.Store
	vp    *viewport.Adapter
}

// NewWindBinding binds the shared sample store to the viewport.
func NewWindBinding(store *field.Store, vp *viewport.Adapter) *WindBinding {
	return &WindBinding{store: store, vp: vp}
}

// ID returns the fixed ambient wind ID.
func (w *WindBinding) ID() string { return WindID }

// Kind returns KindWind.
func (w *WindBinding) Kind() string { return KindWind }

// Motion spawns over the padded current viewport and advects by the
// sample store.
func (w *WindBinding) Motion() (Motion, bool) {
	b := w.vp.Bounds()
	pad := windSpawnPadFrac * max(b.Width(), b.Height())
	return Motion{
		Field:  w.store,
		Region: particle.BoxRegion{Bounds: b.Pad(pad)},
		Ramp:   render.WindRamp(),
	}, true
}

// Anchored is true: wind follows the viewport, not a geography.
func (w *WindBinding) Anchored() bool { return true }

// Decorate draws nothing; wind is pure particle motion.
func (w *WindBinding) Decorate(*Frame) {}

var _ Binding = (*WindBinding)(nil)
