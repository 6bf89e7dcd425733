package hazard

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

// Cyclone describes rotating circulation around a center.
type Cyclone struct {
	ID string `json:"id"`
	// Name is the advisory name, if any.
	Name   string    `json:"name,omitempty"`
	Center geo.Point `json:"center"`
	// RadiusMeters is the outer circulation radius.
	RadiusMeters float64 `json:"radius_m"`
	// MaxWindSpeed is the peak sustained wind in meters per second,
	// reached near the eyewall.
	MaxWindSpeed float64 `json:"max_wind_ms"`
}

// Valid reports whether the cyclone can drive a circulation field.
func (c Cyclone) Valid() bool {
	return c.Center.Valid() && c.RadiusMeters > 0 && c.MaxWindSpeed > 0
}

// FloodZone describes water moving through a polygon.
type FloodZone struct {
	ID      string      `json:"id"`
	Polygon orb.Polygon `json:"polygon"`
	// Flow is the zone velocity in meters per second.
	Flow geo.Vector `json:"flow"`
	// Expanding marks a zone still growing; expanding zones get ripple
	// rings along their edge.
	Expanding bool `json:"expanding,omitempty"`
}

// Valid reports whether the zone has drawable geometry and finite flow.
func (f FloodZone) Valid() bool {
	return len(f.Polygon) > 0 && len(f.Polygon[0]) >= 4 && f.Flow.Valid()
}

// DetectionZone marks an area where hazard formation is considered
// likely. Detection zones are render-only; they never advect particles.
type DetectionZone struct {
	ID     string    `json:"id"`
	Center geo.Point `json:"center"`
	// RadiusMeters sizes the probability disk.
	RadiusMeters float64 `json:"radius_m"`
	// Probability in [0, 1] drives the disk's pulse intensity.
	Probability float64 `json:"probability"`
	// Ensemble holds scattered member positions redrawn each refresh.
	Ensemble []geo.Point `json:"ensemble,omitempty"`
	// Track is the predicted path, drawn dashed.
	Track []geo.Point `json:"track,omitempty"`
}

// Valid reports whether the zone can be drawn.
func (d DetectionZone) Valid() bool {
	return d.Center.Valid() && d.RadiusMeters > 0
}

// Update is one feed delivery: the latest wind samples plus the hazards
// active at that moment. Deliveries replace state, they do not append.
type Update struct {
	Samples    []field.Sample  `json:"samples,omitempty"`
	Cyclones   []Cyclone       `json:"cyclones,omitempty"`
	Floods     []FloodZone     `json:"floods,omitempty"`
	Detections []DetectionZone `json:"detections,omitempty"`
	// ObservedAt is when the feed produced this state.
	ObservedAt time.Time `json:"observed_at"`
}

// Empty reports whether the update carries nothing at all.
func (u Update) Empty() bool {
	return len(u.Samples) == 0 && len(u.Cyclones) == 0 &&
		len(u.Floods) == 0 && len(u.Detections) == 0
}
