// Command genfield generates synthetic hazard scene fixtures for the
// overlay engine. It builds an ambient wind grid stirred by random
// vortices plus a cyclone, a flood zone, and detection zones, then runs
// the result through the actual feed codec so the fixture matches what
// a live feed would deliver.
//
// Usage:
//
//	go run ./cmd/genfield \
//	  -out data/fixtures/gulf_demo.geojson \
//	  -center 28.0,-90.0 -span 14 -grid 28 -seed 7
//
// With -publish the scene is also produced onto the feed topic of a
// running broker:
//
//	go run ./cmd/genfield -publish -brokers localhost:9092 -topic hazard-field-updates
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-overlay-engine/internal/adapter/feed"
	"github.com/couchcryptid/storm-overlay-engine/internal/config"
	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
)

var baseDate = time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)

const metersPerDegree = math.Pi * geo.EarthRadius / 180

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/fixtures/gulf_demo.geojson", "output path for the GeoJSON scene fixture")
	centerStr := flag.String("center", "28.0,-90.0", "scene center as lat,lon")
	span := flag.Float64("span", 14, "scene width and height in degrees")
	grid := flag.Int("grid", 28, "wind samples per axis")
	vortices := flag.Int("vortices", 2, "random vortices stirred into the ambient field")
	seed := flag.Int64("seed", 7, "randomness seed")
	publish := flag.Bool("publish", false, "also produce the scene onto the feed topic")
	brokers := flag.String("brokers", "localhost:9092", "comma-separated brokers for -publish")
	topic := flag.String("topic", "hazard-field-updates", "feed topic for -publish")
	flag.Parse()

	center, err := parseLatLon(*centerStr)
	if err != nil {
		return fmt.Errorf("parsing -center: %w", err)
	}
	if *span <= 0 {
		return fmt.Errorf("-span must be positive, got %g", *span)
	}
	if *grid < 2 {
		return fmt.Errorf("-grid must be at least 2, got %d", *grid)
	}

	rng := rand.New(rand.NewSource(*seed))
	scene := buildScene(center, *span, *grid, *vortices, rng)

	payload, err := hazard.EncodeUpdate(scene)
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}

	// Round-trip through the real decoder so a broken fixture fails here,
	// not in a running sim.
	decoded, stats, err := hazard.DecodeUpdate(payload, baseDate)
	if err != nil {
		return fmt.Errorf("fixture failed decode: %w", err)
	}
	if stats.Dropped > 0 {
		return fmt.Errorf("fixture would drop %d features", stats.Dropped)
	}

	if err := writeGeoJSON(*out, payload); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	if *publish {
		if err := publishScene(*brokers, *topic, payload); err != nil {
			return fmt.Errorf("publishing scene: %w", err)
		}
		log.Printf("published scene to %s", *topic)
	}

	printStats(decoded, stats)
	return nil
}

// vortex is one synthetic circulation stirred into the ambient grid.
type vortex struct {
	center    geo.Point
	radiusM   float64
	peakSpeed float64
	// spin is +1 for counterclockwise, -1 for clockwise.
	spin float64
}

// at returns the vortex's tangential contribution at p: a linear core,
// peak speed at radiusM, and an exponential tail beyond it.
func (v vortex) at(p geo.Point) geo.Vector {
	dx := (p.Lon - v.center.Lon) * math.Cos(v.center.Lat*math.Pi/180) * metersPerDegree
	dy := (p.Lat - v.center.Lat) * metersPerDegree
	r := math.Hypot(dx, dy)
	if r < 1 {
		return geo.Vector{}
	}
	ratio := r / v.radiusM
	speed := v.peakSpeed * ratio * math.Exp(0.5*(1-ratio*ratio))
	return geo.Vector{U: v.spin * speed * -dy / r, V: v.spin * speed * dx / r}
}

func buildScene(center geo.Point, span float64, grid, vortexCount int, rng *rand.Rand) hazard.Update {
	// Prevailing easterly with a touch of southerly, the Gulf trade wind look.
	base := geo.Vector{U: -6, V: 1.5}

	vortices := make([]vortex, 0, vortexCount)
	for i := 0; i < vortexCount; i++ {
		vortices = append(vortices, vortex{
			center: geo.Point{
				Lat: center.Lat + (rng.Float64()-0.5)*span*0.7,
				Lon: center.Lon + (rng.Float64()-0.5)*span*0.7,
			},
			radiusM:   (80 + rng.Float64()*160) * 1000,
			peakSpeed: 4 + rng.Float64()*8,
			spin:      spinDir(rng),
		})
	}

	samples := make([]field.Sample, 0, grid*grid)
	half := span / 2
	step := span / float64(grid-1)
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			p := geo.Point{
				Lat: center.Lat - half + float64(i)*step,
				Lon: center.Lon - half + float64(j)*step,
			}
			flow := base
			for _, vx := range vortices {
				flow = flow.Add(vx.at(p))
			}
			// Mild noise so streamlines do not look machine-ruled.
			flow.U += (rng.Float64() - 0.5) * 0.8
			flow.V += (rng.Float64() - 0.5) * 0.8
			samples = append(samples, field.Sample{Point: p, Flow: flow})
		}
	}

	cycloneCenter := geo.Point{Lat: center.Lat - span*0.12, Lon: center.Lon + span*0.18}
	floodAnchor := geo.Point{Lat: center.Lat + span*0.26, Lon: center.Lon - span*0.3}

	return hazard.Update{
		Samples: samples,
		Cyclones: []hazard.Cyclone{{
			ID:           "al092026",
			Name:         "IDALIA",
			Center:       cycloneCenter,
			RadiusMeters: 350_000,
			MaxWindSpeed: 55,
		}},
		Floods: []hazard.FloodZone{{
			ID:        "coastal-lowlands",
			Polygon:   floodPolygon(floodAnchor, rng),
			Flow:      geo.Vector{U: 0.8, V: 0.35},
			Expanding: true,
		}},
		Detections: []hazard.DetectionZone{
			detection("tor-watch-1", geo.Point{Lat: center.Lat + span*0.2, Lon: center.Lon + span*0.04}, 60_000, 0.75, rng),
			detection("tor-watch-2", geo.Point{Lat: center.Lat + span*0.08, Lon: center.Lon - span*0.16}, 35_000, 0.3, rng),
		},
		ObservedAt: baseDate,
	}
}

// floodPolygon traces a quadrilateral strip with jittered edges so the
// zone reads as terrain instead of a drawn box.
func floodPolygon(anchor geo.Point, rng *rand.Rand) orb.Polygon {
	const w, h = 2.4, 0.9
	jit := func() float64 { return (rng.Float64() - 0.5) * 0.15 }
	return orb.Polygon{orb.Ring{
		{anchor.Lon, anchor.Lat},
		{anchor.Lon + w/3, anchor.Lat - 0.2 + jit()},
		{anchor.Lon + 2*w/3, anchor.Lat + jit()},
		{anchor.Lon + w, anchor.Lat + jit()},
		{anchor.Lon + w + jit(), anchor.Lat + h},
		{anchor.Lon + w/2, anchor.Lat + h + jit()},
		{anchor.Lon + jit(), anchor.Lat + h},
		{anchor.Lon, anchor.Lat},
	}}
}

// detection builds a zone with a scattered ensemble and a short
// northwest-trending track.
func detection(id string, center geo.Point, radiusM, probability float64, rng *rand.Rand) hazard.DetectionZone {
	members := 10 + rng.Intn(6)
	spread := radiusM / metersPerDegree
	ensemble := make([]geo.Point, 0, members)
	for i := 0; i < members; i++ {
		ensemble = append(ensemble, geo.Point{
			Lat: center.Lat + rng.NormFloat64()*spread*0.5,
			Lon: center.Lon + rng.NormFloat64()*spread*0.7,
		})
	}

	track := make([]geo.Point, 0, 4)
	p := center
	for i := 0; i < 4; i++ {
		track = append(track, p)
		p = geo.Point{
			Lat: p.Lat + 0.35 + rng.Float64()*0.1,
			Lon: p.Lon - 0.5 - rng.Float64()*0.15,
		}
	}

	return hazard.DetectionZone{
		ID:           id,
		Center:       center,
		RadiusMeters: radiusM,
		Probability:  probability,
		Ensemble:     ensemble,
		Track:        track,
	}
}

func spinDir(rng *rand.Rand) float64 {
	if rng.Intn(2) == 0 {
		return 1
	}
	return -1
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

func writeGeoJSON(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func publishScene(brokers, topic string, payload []byte) error {
	cfg := &config.Config{
		KafkaBrokers:   splitBrokers(brokers),
		KafkaFeedTopic: topic,
	}
	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("no brokers in %q", brokers)
	}

	// Fixed clock so the produced message timestamp is reproducible.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pub := feed.NewPublisher(cfg, clockwork.NewFakeClockAt(baseDate), logger)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return pub.Publish(ctx, "genfield", payload)
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, part := range strings.Split(s, ",") {
		if b := strings.TrimSpace(part); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func printStats(u hazard.Update, stats hazard.DecodeStats) {
	minSpeed, maxSpeed, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, s := range u.Samples {
		sp := s.Flow.Speed()
		minSpeed = math.Min(minSpeed, sp)
		maxSpeed = math.Max(maxSpeed, sp)
		sum += sp
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Features: samples=%d cyclones=%d floods=%d detections=%d dropped=%d\n",
		stats.Samples, stats.Cyclones, stats.Floods, stats.Detections, stats.Dropped)
	if len(u.Samples) > 0 {
		fmt.Printf("Sample speed m/s: min=%.2f mean=%.2f max=%.2f\n",
			minSpeed, sum/float64(len(u.Samples)), maxSpeed)
	}
	for _, c := range u.Cyclones {
		fmt.Printf("Cyclone %s: center=(%.2f, %.2f) radius=%.0fkm peak=%.0fm/s\n",
			c.ID, c.Center.Lat, c.Center.Lon, c.RadiusMeters/1000, c.MaxWindSpeed)
	}
	for _, f := range u.Floods {
		fmt.Printf("Flood %s: vertices=%d expanding=%t\n", f.ID, len(f.Polygon[0]), f.Expanding)
	}
	for _, d := range u.Detections {
		fmt.Printf("Detection %s: p=%.2f ensemble=%d track=%d\n",
			d.ID, d.Probability, len(d.Ensemble), len(d.Track))
	}
}
