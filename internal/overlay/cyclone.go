package overlay

import (
	"math"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
)

// Circulation profile shape, in fractions of the outer radius.
const (
	// eyewallFrac places the wind maximum.
	eyewallFrac = 0.3
	// profileWidthFrac is the Gaussian width of the speed profile.
	profileWidthFrac = 0.4
	// inflowFrac tilts the tangential flow inward, giving the spiral.
	inflowFrac = 0.3
	// cycloneSlackFrac widens the recycle boundary past the spawn disk.
	cycloneSlackFrac = 0.15
)

var eyewallColor = render.RGB{R: 70, G: 70, B: 90}

// CycloneField builds the analytic circulation for c. Flow is tangential
// around the center, counterclockwise in the northern hemisphere and
// clockwise in the southern, tilted inward by inflowFrac. Speed follows
// a Gaussian in normalized distance that peaks at the eyewall:
//
//	speed(r) = maxWind * exp(-((r/R - 0.3) / 0.4)^2)
//
// so a 300 km storm blows hardest near 90 km out, stays strong over the
// eye, and decays to a few percent at the outer radius.
func CycloneField(c hazard.Cyclone) field.Func {
	northern := c.Center.Lat >= 0
	cosLat := math.Cos(c.Center.Lat * math.Pi / 180)
	metersPerDeg := geo.EarthRadius * math.Pi / 180

	return func(p geo.Point) geo.Vector {
		east := geo.NormalizeLon(p.Lon-c.Center.Lon) * metersPerDeg * cosLat
		north := (p.Lat - c.Center.Lat) * metersPerDeg
		r := math.Hypot(east, north)

		n := (r/c.RadiusMeters - eyewallFrac) / profileWidthFrac
		speed := c.MaxWindSpeed * math.Exp(-n*n)

		// The direction is undefined at the exact center; nudge east so
		// the eye still carries its profile speed.
		if r < 1 {
			east, north, r = 1, 0, 1
		}

		// Unit tangent in the cyclonic sense for the hemisphere.
		tu, tv := -north/r, east/r
		if !northern {
			tu, tv = -tu, -tv
		}
		// Tilt toward the center and renormalize so the magnitude stays
		// exactly speed(r).
		du := tu*(1-inflowFrac) - east/r*inflowFrac
		dv := tv*(1-inflowFrac) - north/r*inflowFrac
		norm := math.Hypot(du, dv)
		return geo.Vector{U: speed * du / norm, V: speed * dv / norm}
	}
}

// CycloneBinding animates one cyclone's circulation and marks its
// eyewall with a ring.
type CycloneBinding struct {
	cyclone hazard.Cyclone
	fld     field.Func
}

// NewCycloneBinding precomputes the circulation field for c.
func NewCycloneBinding(c hazard.Cyclone) *CycloneBinding {
	return &CycloneBinding{cyclone: c, fld: CycloneField(c)}
}

// ID returns the cyclone's feed ID.
func (b *CycloneBinding) ID() string { return b.cyclone.ID }

// Kind returns KindCyclone.
func (b *CycloneBinding) Kind() string { return KindCyclone }

// Motion spawns uniformly over the circulation disk with slack so the
// outward spiral does not recycle particles at the rim.
func (b *CycloneBinding) Motion() (Motion, bool) {
	return Motion{
		Field: b.fld,
		Region: particle.DiskRegion{
			Center:       b.cyclone.Center,
			RadiusMeters: b.cyclone.RadiusMeters,
			SlackMeters:  b.cyclone.RadiusMeters * cycloneSlackFrac,
		},
		Ramp: render.WindRamp(),
	}, true
}

// Anchored is false: the circulation stays with the storm, not the view.
func (b *CycloneBinding) Anchored() bool { return false }

// Decorate draws the eyewall ring at the wind maximum radius.
func (b *CycloneBinding) Decorate(f *Frame) {
	center := f.Proj.Project(b.cyclone.Center)
	radius := f.PixelRadius(b.cyclone.Center, b.cyclone.RadiusMeters*eyewallFrac)
	f.R.DrawRing(center, radius, eyewallColor)
}

var _ Binding = (*CycloneBinding)(nil)
