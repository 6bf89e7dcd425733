package hazard

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

// StormReport is the slice of the ETL output schema the engine consumes.
// The transformed-weather-data topic carries more fields; only the ones
// that influence a detection zone are decoded.
type StormReport struct {
	ID        string    `json:"id"`
	EventType string    `json:"type"`
	Geo       ReportGeo `json:"geo"`
	Magnitude float64   `json:"magnitude"`
	Unit      string    `json:"unit"`
	Severity  *string   `json:"severity,omitempty"`
}

// ReportGeo is the report's coordinate pair.
type ReportGeo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DecodeReport parses one storm report message.
func DecodeReport(data []byte) (StormReport, error) {
	var r StormReport
	if err := json.Unmarshal(data, &r); err != nil {
		return StormReport{}, fmt.Errorf("decode storm report: %w", err)
	}
	return r, nil
}

// DetectionFromReport maps a storm report onto a detection zone, sized
// and weighted by severity. Reports without usable coordinates return
// ok false; the upstream uses 0,0 for unknown positions.
func DetectionFromReport(r StormReport) (DetectionZone, bool) {
	if r.Geo.Lat == 0 && r.Geo.Lon == 0 {
		return DetectionZone{}, false
	}

	d := DetectionZone{
		ID:     r.ID,
		Center: geo.Point{Lat: r.Geo.Lat, Lon: r.Geo.Lon},
	}
	if !d.Center.Valid() {
		return DetectionZone{}, false
	}

	severity := ""
	if r.Severity != nil {
		severity = *r.Severity
	}
	switch severity {
	case "minor":
		d.RadiusMeters, d.Probability = 15_000, 0.25
	case "moderate":
		d.RadiusMeters, d.Probability = 30_000, 0.45
	case "severe":
		d.RadiusMeters, d.Probability = 50_000, 0.7
	case "extreme":
		d.RadiusMeters, d.Probability = 80_000, 0.9
	default:
		d.RadiusMeters, d.Probability = 10_000, 0.15
	}
	return d, true
}
