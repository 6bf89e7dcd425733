package overlay

import (
	"math"
	"time"

	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// ripplePeriod paces the expanding-zone rings.
const ripplePeriod = 2 * time.Second

var (
	floodOutlineColor = render.RGB{R: 30, G: 60, B: 110}
	rippleColor       = render.RGB{R: 40, G: 90, B: 140}

	// floodRamp bands water speeds from still through surge, dark blue
	// into white.
	floodRamp = mustRamp(render.GradientRamp(
		[]float64{0, 0.25, 0.5, 1, 1.5, 2, 3},
		render.RGB{R: 20, G: 60, B: 120},
		render.RGB{R: 60, G: 140, B: 200},
		render.RGB{R: 170, G: 220, B: 240},
	))
)

// FloodField returns the zone's current everywhere inside its polygon
// and zero outside, so escaped particles coast to a stop before they
// recycle.
func FloodField(z hazard.FloodZone) field.Func {
	region := particle.PolygonRegion{Polygon: z.Polygon}
	flow := z.Flow
	return func(p geo.Point) geo.Vector {
		if !region.Contains(p) {
			return geo.Vector{}
		}
		return flow
	}
}

// FloodBinding animates water moving through a flood polygon, outlining
// the zone and rippling while it still expands.
type FloodBinding struct {
	zone     hazard.FloodZone
	fld      field.Func
	centroid geo.Point
	// reachMeters is the farthest ring vertex from the centroid, which
	// caps the ripple radius.
	reachMeters float64
}

// NewFloodBinding precomputes the flow field and ripple geometry for z.
func NewFloodBinding(z hazard.FloodZone) *FloodBinding {
	c, _ := planar.CentroidArea(z.Polygon)
	centroid := geo.Point{Lat: c.Y(), Lon: c.X()}

	reach := 0.0
	for _, pt := range z.Polygon[0] {
		d := geo.DistanceMeters(centroid, geo.Point{Lat: pt.Y(), Lon: pt.X()})
		if d > reach {
			reach = d
		}
	}

	return &FloodBinding{
		zone:        z,
		fld:         FloodField(z),
		centroid:    centroid,
		reachMeters: reach,
	}
}

// ID returns the zone's feed ID.
func (b *FloodBinding) ID() string { return b.zone.ID }

// Kind returns KindFlood.
func (b *FloodBinding) Kind() string { return KindFlood }

// Motion spawns inside the polygon and advects by the zone current.
func (b *FloodBinding) Motion() (Motion, bool) {
	return Motion{
		Field:  b.fld,
		Region: particle.PolygonRegion{Polygon: b.zone.Polygon},
		Ramp:   floodRamp,
	}, true
}

// Anchored is false: the zone is a fixed geography.
func (b *FloodBinding) Anchored() bool { return false }

// Decorate outlines the zone and, while it is expanding, sends two
// interleaved ripple rings out from the centroid.
func (b *FloodBinding) Decorate(f *Frame) {
	ring := b.zone.Polygon[0]
	outline := make([]viewport.ScreenPoint, 0, len(ring))
	for _, pt := range ring {
		outline = append(outline, f.Proj.Project(geo.Point{Lat: pt.Y(), Lon: pt.X()}))
	}
	f.R.DrawPolyline(outline, floodOutlineColor)

	if !b.zone.Expanding || b.reachMeters <= 0 {
		return
	}
	maxPx := f.PixelRadius(b.centroid, b.reachMeters)
	center := f.Proj.Project(b.centroid)
	phase := math.Mod(f.Elapsed.Seconds(), ripplePeriod.Seconds()) / ripplePeriod.Seconds()
	for _, ringPhase := range []float64{phase, math.Mod(phase+0.5, 1)} {
		// Rings dim as they grow, reading as an outward pulse.
		f.R.DrawRing(center, ringPhase*maxPx, rippleColor.Scale(1-ringPhase))
	}
}

var _ Binding = (*FloodBinding)(nil)
