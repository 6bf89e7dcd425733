package hazard

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

// Feature kinds recognized in feed payloads.
const (
	KindWindSample = "wind_sample"
	KindCyclone    = "cyclone"
	KindFlood      = "flood"
	KindDetection  = "detection"
)

// DecodeStats counts what a payload decoded into.
type DecodeStats struct {
	Samples    int
	Cyclones   int
	Floods     int
	Detections int
	Dropped    int
}

// DecodeUpdate parses a GeoJSON FeatureCollection payload into an
// Update. Features that are malformed, of an unknown kind, or carry
// non-finite values are dropped and counted; only an unreadable
// collection is an error.
func DecodeUpdate(data []byte, observedAt time.Time) (Update, DecodeStats, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Update{}, DecodeStats{}, fmt.Errorf("decode feed payload: %w", err)
	}

	u := Update{ObservedAt: observedAt}
	var stats DecodeStats

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			stats.Dropped++
			continue
		}

		switch f.Properties.MustString("kind", "") {
		case KindWindSample:
			pt, ok := f.Geometry.(orb.Point)
			if !ok {
				stats.Dropped++
				continue
			}
			s := field.Sample{
				Point: geo.Point{Lat: pt.Y(), Lon: pt.X()},
				Flow: geo.Vector{
					U: f.Properties.MustFloat64("u", math.NaN()),
					V: f.Properties.MustFloat64("v", math.NaN()),
				},
			}
			if !s.Valid() {
				stats.Dropped++
				continue
			}
			u.Samples = append(u.Samples, s)
			stats.Samples++

		case KindCyclone:
			pt, ok := f.Geometry.(orb.Point)
			if !ok {
				stats.Dropped++
				continue
			}
			c := Cyclone{
				ID:           f.Properties.MustString("id", ""),
				Name:         f.Properties.MustString("name", ""),
				Center:       geo.Point{Lat: pt.Y(), Lon: pt.X()},
				RadiusMeters: f.Properties.MustFloat64("radius_m", 0),
				MaxWindSpeed: f.Properties.MustFloat64("max_wind_ms", 0),
			}
			if !c.Valid() {
				stats.Dropped++
				continue
			}
			u.Cyclones = append(u.Cyclones, c)
			stats.Cyclones++

		case KindFlood:
			flow := geo.Vector{
				U: f.Properties.MustFloat64("flow_u", math.NaN()),
				V: f.Properties.MustFloat64("flow_v", math.NaN()),
			}
			expanding := f.Properties.MustBool("expanding", false)
			id := f.Properties.MustString("id", "")

			switch g := f.Geometry.(type) {
			case orb.Polygon:
				z := FloodZone{ID: id, Polygon: g, Flow: flow, Expanding: expanding}
				if !z.Valid() {
					stats.Dropped++
					continue
				}
				u.Floods = append(u.Floods, z)
				stats.Floods++
			case orb.MultiPolygon:
				for i, poly := range g {
					zid := id
					if zid != "" && len(g) > 1 {
						zid = fmt.Sprintf("%s/%d", id, i)
					}
					z := FloodZone{ID: zid, Polygon: poly, Flow: flow, Expanding: expanding}
					if !z.Valid() {
						stats.Dropped++
						continue
					}
					u.Floods = append(u.Floods, z)
					stats.Floods++
				}
			default:
				stats.Dropped++
			}

		case KindDetection:
			pt, ok := f.Geometry.(orb.Point)
			if !ok {
				stats.Dropped++
				continue
			}
			d := DetectionZone{
				ID:           f.Properties.MustString("id", ""),
				Center:       geo.Point{Lat: pt.Y(), Lon: pt.X()},
				RadiusMeters: f.Properties.MustFloat64("radius_m", 0),
				Probability:  clamp01(f.Properties.MustFloat64("probability", 0)),
				Ensemble:     pointList(f.Properties["ensemble"]),
				Track:        pointList(f.Properties["track"]),
			}
			if !d.Valid() {
				stats.Dropped++
				continue
			}
			u.Detections = append(u.Detections, d)
			stats.Detections++

		default:
			stats.Dropped++
		}
	}

	return u, stats, nil
}

// EncodeUpdate renders an update as a GeoJSON FeatureCollection, the
// inverse of DecodeUpdate. ObservedAt is not embedded; it travels as
// the message timestamp.
func EncodeUpdate(u Update) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	for _, s := range u.Samples {
		f := geojson.NewFeature(orb.Point{s.Point.Lon, s.Point.Lat})
		f.Properties["kind"] = KindWindSample
		f.Properties["u"] = s.Flow.U
		f.Properties["v"] = s.Flow.V
		fc.Append(f)
	}

	for _, c := range u.Cyclones {
		f := geojson.NewFeature(orb.Point{c.Center.Lon, c.Center.Lat})
		f.Properties["kind"] = KindCyclone
		f.Properties["id"] = c.ID
		if c.Name != "" {
			f.Properties["name"] = c.Name
		}
		f.Properties["radius_m"] = c.RadiusMeters
		f.Properties["max_wind_ms"] = c.MaxWindSpeed
		fc.Append(f)
	}

	for _, z := range u.Floods {
		f := geojson.NewFeature(z.Polygon)
		f.Properties["kind"] = KindFlood
		f.Properties["id"] = z.ID
		f.Properties["flow_u"] = z.Flow.U
		f.Properties["flow_v"] = z.Flow.V
		if z.Expanding {
			f.Properties["expanding"] = true
		}
		fc.Append(f)
	}

	for _, d := range u.Detections {
		f := geojson.NewFeature(orb.Point{d.Center.Lon, d.Center.Lat})
		f.Properties["kind"] = KindDetection
		f.Properties["id"] = d.ID
		f.Properties["radius_m"] = d.RadiusMeters
		f.Properties["probability"] = d.Probability
		if len(d.Ensemble) > 0 {
			f.Properties["ensemble"] = lonLatPairs(d.Ensemble)
		}
		if len(d.Track) > 0 {
			f.Properties["track"] = lonLatPairs(d.Track)
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode feed payload: %w", err)
	}
	return data, nil
}

func lonLatPairs(pts []geo.Point) [][]float64 {
	pairs := make([][]float64, len(pts))
	for i, p := range pts {
		pairs[i] = []float64{p.Lon, p.Lat}
	}
	return pairs
}

// pointList decodes an array of [lon, lat] pairs from a raw property
// value, skipping malformed entries.
func pointList(v any) []geo.Point {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	pts := make([]geo.Point, 0, len(arr))
	for _, el := range arr {
		pair, ok := el.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		lon, okLon := pair[0].(float64)
		lat, okLat := pair[1].(float64)
		if !okLon || !okLat {
			continue
		}
		p := geo.Point{Lat: lat, Lon: lon}
		if !p.Valid() {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) == 0 {
		return nil
	}
	return pts
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
