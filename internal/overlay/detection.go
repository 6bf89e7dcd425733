package overlay

import (
	"math"
	"time"

	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// pulsePeriod paces the probability disk's breathing.
const pulsePeriod = 1600 * time.Millisecond

// Dash geometry for the predicted track, in pixels.
const (
	trackDashLen = 6.0
	trackGapLen  = 4.0
)

var (
	detectionDiskColor = render.RGB{R: 60, G: 42, B: 8}
	detectionRimColor  = render.RGB{R: 160, G: 120, B: 30}
	ensembleColor      = render.RGB{R: 200, G: 160, B: 60}
	trackColor         = render.RGB{R: 140, G: 110, B: 40}
)

// DetectionBinding renders a formation-probability zone: a pulsing disk
// scaled by probability, the scattered ensemble members, and the dashed
// predicted track. Detection zones never advect particles; the binding
// is decoration-only.
type DetectionBinding struct {
	zone hazard.DetectionZone
}

// NewDetectionBinding wraps z.
func NewDetectionBinding(z hazard.DetectionZone) *DetectionBinding {
	return &DetectionBinding{zone: z}
}

// ID returns the zone's feed ID.
func (b *DetectionBinding) ID() string { return b.zone.ID }

// Kind returns KindDetection.
func (b *DetectionBinding) Kind() string { return KindDetection }

// Motion reports no particle setup.
func (b *DetectionBinding) Motion() (Motion, bool) { return Motion{}, false }

// Anchored is false: the zone is a fixed geography.
func (b *DetectionBinding) Anchored() bool { return false }

// Decorate draws the pulsing disk, its rim, the ensemble scatter, and
// the track. Ensemble members are redrawn from the descriptor every
// frame; they exist only in the data, never as engine particles.
func (b *DetectionBinding) Decorate(f *Frame) {
	center := f.Proj.Project(b.zone.Center)
	radius := f.PixelRadius(b.zone.Center, b.zone.RadiusMeters)

	pulse := 0.55 + 0.45*math.Sin(2*math.Pi*f.Elapsed.Seconds()/pulsePeriod.Seconds())
	f.R.DrawDisk(center, radius, detectionDiskColor.Scale(b.zone.Probability*pulse))
	f.R.DrawRing(center, radius, detectionRimColor.Scale(0.5+0.5*b.zone.Probability))

	for _, member := range b.zone.Ensemble {
		f.R.DrawDot(f.Proj.Project(member), ensembleColor)
	}

	if len(b.zone.Track) >= 2 {
		pts := make([]viewport.ScreenPoint, 0, len(b.zone.Track))
		for _, tp := range b.zone.Track {
			pts = append(pts, f.Proj.Project(tp))
		}
		f.R.DrawDashedPolyline(pts, trackColor, trackDashLen, trackGapLen)
	}
}

var _ Binding = (*DetectionBinding)(nil)
