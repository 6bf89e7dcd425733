package particle

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

// SpawnRegion decides where particles are (re)born and when they have
// drifted far enough to recycle.
type SpawnRegion interface {
	// Sample draws a uniform-ish random position inside the region.
	Sample(rng *rand.Rand) geo.Point
	// Contains reports whether p is still inside the region.
	Contains(p geo.Point) bool
}

// BoxRegion spawns uniformly over a geographic box. Used for ambient
// wind overlays that cover the whole viewport.
type BoxRegion struct {
	Bounds geo.Bounds
}

// Sample draws a point uniform in latitude and longitude.
func (r BoxRegion) Sample(rng *rand.Rand) geo.Point {
	return geo.Point{
		Lat: r.Bounds.MinLat + rng.Float64()*r.Bounds.Height(),
		Lon: r.Bounds.MinLon + rng.Float64()*r.Bounds.Width(),
	}
}

// Contains reports whether p lies inside the box.
func (r BoxRegion) Contains(p geo.Point) bool { return r.Bounds.Contains(p) }

// DiskRegion spawns uniformly over a circle around a center, the shape a
// cyclone overlay wants.
type DiskRegion struct {
	Center geo.Point
	// RadiusMeters is the spawn radius.
	RadiusMeters float64
	// SlackMeters widens Contains beyond the spawn radius so particles
	// spiraling outward are not recycled the moment they cross the rim.
	SlackMeters float64
}

// Sample draws a point uniform over the disk area. The square root keeps
// density flat instead of bunching at the center.
func (r DiskRegion) Sample(rng *rand.Rand) geo.Point {
	dist := r.RadiusMeters * math.Sqrt(rng.Float64())
	bearing := rng.Float64() * 360
	return geo.Destination(r.Center, dist, bearing)
}

// Contains reports whether p is within the spawn radius plus slack.
func (r DiskRegion) Contains(p geo.Point) bool {
	return geo.DistanceMeters(r.Center, p) <= r.RadiusMeters+r.SlackMeters
}

// PolygonRegion spawns inside an arbitrary polygon, used for flood zones.
// Sampling rejects draws from the bounding box until one lands inside;
// for sane polygons that converges in a handful of tries.
type PolygonRegion struct {
	Polygon orb.Polygon
}

const polygonSampleTries = 64

// Sample draws a point inside the polygon, falling back to the bound
// center for degenerate geometry.
func (r PolygonRegion) Sample(rng *rand.Rand) geo.Point {
	bound := r.Polygon.Bound()
	for i := 0; i < polygonSampleTries; i++ {
		pt := orb.Point{
			bound.Min.X() + rng.Float64()*(bound.Max.X()-bound.Min.X()),
			bound.Min.Y() + rng.Float64()*(bound.Max.Y()-bound.Min.Y()),
		}
		if planar.PolygonContains(r.Polygon, pt) {
			return geo.Point{Lat: pt.Y(), Lon: pt.X()}
		}
	}
	center := bound.Center()
	return geo.Point{Lat: center.Y(), Lon: center.X()}
}

// Contains reports whether p falls inside the polygon.
func (r PolygonRegion) Contains(p geo.Point) bool {
	return planar.PolygonContains(r.Polygon, orb.Point{p.Lon, p.Lat})
}
