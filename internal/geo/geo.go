// Package geo provides the coordinate types and spherical-earth math shared
// by the field, particle, and overlay packages.
package geo

import "math"

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371009.0

// minCosLat guards the longitude conversion near the poles, where the
// meters-per-degree factor goes to zero.
const minCosLat = 1e-6

// Point is a WGS-84 latitude/longitude position in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point has finite coordinates inside
// latitude [-90, 90] and longitude [-180, 180].
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Vector is a horizontal flow vector in meters per second.
// U is the eastward component, V the northward component.
type Vector struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// Speed returns the vector magnitude in meters per second.
func (v Vector) Speed() float64 { return math.Hypot(v.U, v.V) }

// Add returns the component-wise sum of v and o.
func (v Vector) Add(o Vector) Vector { return Vector{U: v.U + o.U, V: v.V + o.V} }

// Scale returns v with both components multiplied by f.
func (v Vector) Scale(f float64) Vector { return Vector{U: v.U * f, V: v.V * f} }

// IsZero reports whether both components are exactly zero.
func (v Vector) IsZero() bool { return v.U == 0 && v.V == 0 }

// Valid reports whether both components are finite.
func (v Vector) Valid() bool {
	return !math.IsNaN(v.U) && !math.IsInf(v.U, 0) && !math.IsNaN(v.V) && !math.IsInf(v.V, 0)
}

// Displace moves p by vec applied for the given number of seconds,
// converting meters to degrees at p's latitude. The longitude step uses
// the local parallel radius, clamped near the poles so the conversion
// never divides by zero.
func Displace(p Point, vec Vector, seconds float64) Point {
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	if math.Abs(cosLat) < minCosLat {
		cosLat = math.Copysign(minCosLat, cosLat)
	}
	return Point{
		Lat: p.Lat + (180/math.Pi)*(vec.V*seconds)/EarthRadius,
		Lon: p.Lon + (180/math.Pi)*(vec.U*seconds)/(EarthRadius*cosLat),
	}
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Destination returns the point reached by traveling distanceMeters from p
// on the given initial bearing (degrees clockwise from north).
func Destination(p Point, distanceMeters, bearingDeg float64) Point {
	lat1 := p.Lat * math.Pi / 180
	lon1 := p.Lon * math.Pi / 180
	brng := bearingDeg * math.Pi / 180
	d := distanceMeters / EarthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	return Point{Lat: lat2 * 180 / math.Pi, Lon: NormalizeLon(lon2 * 180 / math.Pi)}
}

// NormalizeLon wraps a longitude into [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// Bounds is an axis-aligned geographic box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Valid reports whether both corners are valid points and the box is
// non-inverted.
func (b Bounds) Valid() bool {
	min := Point{Lat: b.MinLat, Lon: b.MinLon}
	max := Point{Lat: b.MaxLat, Lon: b.MaxLon}
	return min.Valid() && max.Valid() && b.MinLat <= b.MaxLat && b.MinLon <= b.MaxLon
}

// Contains reports whether p lies inside or on the edge of the box.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Width returns the longitude span in degrees.
func (b Bounds) Width() float64 { return b.MaxLon - b.MinLon }

// Height returns the latitude span in degrees.
func (b Bounds) Height() float64 { return b.MaxLat - b.MinLat }

// Pad returns the box expanded by deg degrees on every side, clamped to
// the valid coordinate range.
func (b Bounds) Pad(deg float64) Bounds {
	return Bounds{
		MinLat: math.Max(-90, b.MinLat-deg),
		MinLon: math.Max(-180, b.MinLon-deg),
		MaxLat: math.Min(90, b.MaxLat+deg),
		MaxLon: math.Min(180, b.MaxLon+deg),
	}
}

// BoundsAround returns a box that encloses the circle of radiusMeters
// around center. The longitude half-width grows with latitude; near the
// poles it saturates to the full range.
func BoundsAround(center Point, radiusMeters float64) Bounds {
	dLat := (180 / math.Pi) * radiusMeters / EarthRadius
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	dLon := 180.0
	if math.Abs(cosLat) > minCosLat {
		dLon = math.Min(180, (180/math.Pi)*radiusMeters/(EarthRadius*cosLat))
	}
	return Bounds{
		MinLat: math.Max(-90, center.Lat-dLat),
		MinLon: math.Max(-180, center.Lon-dLon),
		MaxLat: math.Min(90, center.Lat+dLat),
		MaxLon: math.Min(180, center.Lon+dLon),
	}
}
