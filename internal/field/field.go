// Package field holds the sampled vector-field store and the lookup
// interface shared by sampled and analytic flow fields.
package field

import "github.com/couchcryptid/storm-overlay-engine/internal/geo"

// Field answers point lookups against a flow field. Implementations must
// be safe for concurrent use and must return a zero vector, never an
// error, where the field is undefined.
type Field interface {
	At(p geo.Point) geo.Vector
}

// Func adapts a plain function to the Field interface. Analytic fields
// (cyclone circulation, flood flow) are expressed this way.
type Func func(p geo.Point) geo.Vector

// At calls f.
func (f Func) At(p geo.Point) geo.Vector { return f(p) }

// Zero is the everywhere-stationary field.
var Zero = Func(func(geo.Point) geo.Vector { return geo.Vector{} })

// Uniform returns a field with the same vector everywhere.
func Uniform(v geo.Vector) Func {
	return func(geo.Point) geo.Vector { return v }
}

// Sample pairs a position with the flow observed there.
type Sample struct {
	Point geo.Point  `json:"point"`
	Flow  geo.Vector `json:"flow"`
}

// Valid reports whether the sample can be indexed: finite in-range
// coordinates and finite flow components.
func (s Sample) Valid() bool {
	return s.Point.Valid() && s.Flow.Valid()
}
