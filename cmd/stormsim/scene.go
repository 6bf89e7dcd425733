package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/paulmach/orb"
)

// loadFixture reads a GeoJSON scene, typically one written by genfield.
func loadFixture(path string) (hazard.Update, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hazard.Update{}, fmt.Errorf("read fixture: %w", err)
	}
	u, stats, err := hazard.DecodeUpdate(data, time.Now())
	if err != nil {
		return hazard.Update{}, err
	}
	if stats.Dropped > 0 {
		return hazard.Update{}, fmt.Errorf("fixture dropped %d features, regenerate it", stats.Dropped)
	}
	if u.Empty() {
		return hazard.Update{}, fmt.Errorf("fixture %s is empty", path)
	}
	return u, nil
}

// demoScene builds a small deterministic scene around center: wavy
// ambient wind, a cyclone offshore, a flood strip, and a detection zone,
// so the sim shows every overlay kind without a broker or fixture.
func demoScene(center geo.Point) hazard.Update {
	const span = 12.0
	const grid = 20

	samples := make([]field.Sample, 0, grid*grid)
	step := span / float64(grid-1)
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			p := geo.Point{
				Lat: center.Lat - span/2 + float64(i)*step,
				Lon: center.Lon - span/2 + float64(j)*step,
			}
			samples = append(samples, field.Sample{
				Point: p,
				Flow: geo.Vector{
					U: -6 + 2.5*math.Sin(p.Lat*0.6+1),
					V: 1.5 + 2*math.Sin(p.Lon*0.45),
				},
			})
		}
	}

	cycloneCenter := geo.Point{Lat: center.Lat - 1.6, Lon: center.Lon + 2.4}
	detectCenter := geo.Point{Lat: center.Lat + 2.4, Lon: center.Lon + 0.8}

	ensemble := make([]geo.Point, 0, 8)
	for i := 0; i < 8; i++ {
		ensemble = append(ensemble, geo.Destination(detectCenter, 28_000+float64(i%3)*9_000, float64(i)*45))
	}

	floodLat, floodLon := center.Lat+2.6, center.Lon-3.6
	return hazard.Update{
		Samples: samples,
		Cyclones: []hazard.Cyclone{{
			ID:           "demo-cyclone",
			Name:         "DEMO",
			Center:       cycloneCenter,
			RadiusMeters: 320_000,
			MaxWindSpeed: 48,
		}},
		Floods: []hazard.FloodZone{{
			ID: "demo-flood",
			Polygon: orb.Polygon{orb.Ring{
				{floodLon, floodLat},
				{floodLon + 2.2, floodLat - 0.3},
				{floodLon + 2.6, floodLat + 0.5},
				{floodLon + 1.4, floodLat + 1},
				{floodLon + 0.2, floodLat + 0.8},
				{floodLon, floodLat},
			}},
			Flow:      geo.Vector{U: 0.7, V: 0.3},
			Expanding: true,
		}},
		Detections: []hazard.DetectionZone{{
			ID:           "demo-watch",
			Center:       detectCenter,
			RadiusMeters: 45_000,
			Probability:  0.65,
			Ensemble:     ensemble,
			Track: []geo.Point{
				detectCenter,
				{Lat: detectCenter.Lat + 0.4, Lon: detectCenter.Lon - 0.5},
				{Lat: detectCenter.Lat + 0.85, Lon: detectCenter.Lon - 1.1},
			},
		}},
		ObservedAt: time.Now(),
	}
}

func parseLatLon(s string) (geo.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("want lat,lon, got %q", s)
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return geo.Point{}, fmt.Errorf("want lat,lon, got %q", s)
	}
	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("coordinates out of range: %q", s)
	}
	return p, nil
}

// splitPlace separates "Moore, OK" into name and state for the geocoder.
func splitPlace(s string) (name, state string) {
	if i := strings.LastIndex(s, ","); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return strings.TrimSpace(s), ""
}
