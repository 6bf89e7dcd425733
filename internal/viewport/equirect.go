package viewport

import (
	"math"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

// Equirect is a flat lat/lon projection around a center point, good
// enough for regional hazard views. The longitude axis is compressed by
// cos(center latitude) so distances look roughly true, and Aspect
// stretches X for displays with non-square cells (terminal cells are
// about twice as tall as wide).
//
// Equirect is not safe for concurrent mutation; hosts mutate it between
// frames and publish the change through Adapter.Notify.
type Equirect struct {
	Center geo.Point
	// PixelsPerDegree sets the zoom level on the latitude axis.
	PixelsPerDegree float64
	// Aspect multiplies the X scale. Zero means 1.
	Aspect float64
	Width  int
	Height int
}

// Project maps p relative to the center. Y grows downward.
func (e *Equirect) Project(p geo.Point) ScreenPoint {
	return ScreenPoint{
		X: float64(e.Width)/2 + (p.Lon-e.Center.Lon)*e.lonScale(),
		Y: float64(e.Height)/2 - (p.Lat-e.Center.Lat)*e.PixelsPerDegree,
	}
}

// Unproject maps surface coordinates back to a geographic point.
func (e *Equirect) Unproject(sp ScreenPoint) geo.Point {
	return geo.Point{
		Lat: e.Center.Lat - (sp.Y-float64(e.Height)/2)/e.PixelsPerDegree,
		Lon: e.Center.Lon + (sp.X-float64(e.Width)/2)/e.lonScale(),
	}
}

// Bounds returns the visible geographic box.
func (e *Equirect) Bounds() geo.Bounds {
	halfLat := float64(e.Height) / 2 / e.PixelsPerDegree
	halfLon := float64(e.Width) / 2 / e.lonScale()
	return geo.Bounds{
		MinLat: math.Max(-90, e.Center.Lat-halfLat),
		MinLon: math.Max(-180, e.Center.Lon-halfLon),
		MaxLat: math.Min(90, e.Center.Lat+halfLat),
		MaxLon: math.Min(180, e.Center.Lon+halfLon),
	}
}

// Size returns the surface dimensions.
func (e *Equirect) Size() (int, int) { return e.Width, e.Height }

func (e *Equirect) lonScale() float64 {
	aspect := e.Aspect
	if aspect == 0 {
		aspect = 1
	}
	cosLat := math.Cos(e.Center.Lat * math.Pi / 180)
	if math.Abs(cosLat) < 1e-6 {
		cosLat = 1e-6
	}
	return e.PixelsPerDegree * cosLat * aspect
}
