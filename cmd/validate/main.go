// Command validate performs integrity checks across the overlay engine's
// data inputs: scene fixtures, preset tuning files, the analytic cyclone
// circulation, and the speed color ramps. It verifies the fixture decodes
// cleanly, every value is physically plausible, and the built-in profiles
// behave the way the overlays assume.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fixture data/fixtures/gulf_demo.geojson \
//	  -presets presets.yaml
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/storm-overlay-engine/internal/config"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/overlay"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
)

var baseDate = time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "data/fixtures/gulf_demo.geojson", "path to a GeoJSON scene fixture")
	presets := flag.String("presets", "", "path to a YAML preset file (built-in defaults when empty)")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixture, *presets); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath, presetsPath string) int {
	fmt.Println("=== Overlay Engine Data Validation ===")
	fmt.Println()

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read fixture: %v\n", err)
		return 1
	}

	update, stats, err := hazard.DecodeUpdate(data, baseDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode fixture: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateFixture(update, stats),
		validatePresets(presetsPath),
		validateCirculation(update),
		validateRamps(),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Features: %d samples, %d cyclones, %d floods, %d detections, %d dropped\n",
		stats.Samples, stats.Cyclones, stats.Floods, stats.Detections, stats.Dropped)

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Fixture Integrity ──
// Validates the decoded scene: nothing dropped, every value finite and
// physically plausible, no duplicate IDs within a category.

func validateFixture(u hazard.Update, stats hazard.DecodeStats) *phase {
	p := &phase{name: "Phase 1: Fixture Integrity (GeoJSON)"}

	if stats.Dropped > 0 {
		p.errorf("decoder dropped %d features", stats.Dropped)
	}
	if u.Empty() {
		p.errorf("fixture is empty")
	}

	checkSamples(p, u)
	checkCyclones(p, u)
	checkFloods(p, u)
	checkDetections(p, u)

	return p
}

func checkSamples(p *phase, u hazard.Update) {
	for i, s := range u.Samples {
		if !s.Point.Valid() {
			p.errorf("sample %d: invalid position (%g, %g)", i, s.Point.Lat, s.Point.Lon)
		}
		if !s.Flow.Valid() {
			p.errorf("sample %d: non-finite flow", i)
		} else if sp := s.Flow.Speed(); sp > 150 {
			p.errorf("sample %d: speed %.1f m/s exceeds anything terrestrial", i, sp)
		}
	}
}

func checkCyclones(p *phase, u hazard.Update) {
	seen := map[string]bool{}
	for i, c := range u.Cyclones {
		if c.ID == "" {
			p.errorf("cyclone %d: missing id", i)
		} else if seen[c.ID] {
			p.errorf("cyclone id %q repeats", c.ID)
		}
		seen[c.ID] = true

		if c.RadiusMeters <= 0 || c.RadiusMeters > 2_000_000 {
			p.errorf("cyclone %s: radius %.0f m outside (0, 2000 km]", c.ID, c.RadiusMeters)
		}
		if c.MaxWindSpeed <= 0 || c.MaxWindSpeed > 120 {
			p.errorf("cyclone %s: peak wind %.1f m/s outside (0, 120]", c.ID, c.MaxWindSpeed)
		}
	}
}

func checkFloods(p *phase, u hazard.Update) {
	seen := map[string]bool{}
	for i, f := range u.Floods {
		if f.ID == "" {
			p.errorf("flood %d: missing id", i)
		} else if seen[f.ID] {
			p.errorf("flood id %q repeats", f.ID)
		}
		seen[f.ID] = true

		ring := f.Polygon[0]
		if len(ring) < 4 {
			p.errorf("flood %s: ring has %d points, need at least 4", f.ID, len(ring))
		} else if ring[0] != ring[len(ring)-1] {
			p.errorf("flood %s: ring is not closed", f.ID)
		}
		if sp := f.Flow.Speed(); sp > 10 {
			p.errorf("flood %s: flow %.1f m/s is faster than any flood current", f.ID, sp)
		}
	}
}

func checkDetections(p *phase, u hazard.Update) {
	seen := map[string]bool{}
	for i, d := range u.Detections {
		if d.ID == "" {
			p.errorf("detection %d: missing id", i)
		} else if seen[d.ID] {
			p.errorf("detection id %q repeats", d.ID)
		}
		seen[d.ID] = true

		if d.Probability < 0 || d.Probability > 1 {
			p.errorf("detection %s: probability %.2f outside [0, 1]", d.ID, d.Probability)
		}
		if d.RadiusMeters > 500_000 {
			p.errorf("detection %s: radius %.0f m exceeds 500 km", d.ID, d.RadiusMeters)
		}
		for j, m := range d.Ensemble {
			if !m.Valid() {
				p.errorf("detection %s: ensemble member %d invalid", d.ID, j)
			} else if dist := geo.DistanceMeters(d.Center, m); dist > 10*d.RadiusMeters {
				p.errorf("detection %s: ensemble member %d is %.0f m out, past 10x radius", d.ID, j, dist)
			}
		}
		for j, t := range d.Track {
			if !t.Valid() {
				p.errorf("detection %s: track point %d invalid", d.ID, j)
			}
		}
	}
}

// ── Phase 2: Preset Tuning ──
// Validates the particle tuning that will drive the overlays, either the
// built-in defaults or a preset file.

func validatePresets(path string) *phase {
	p := &phase{name: "Phase 2: Preset Tuning (YAML)"}

	presets := config.DefaultPresets()
	if path != "" {
		loaded, err := config.LoadPresets(path)
		if err != nil {
			p.errorf("load presets: %v", err)
			return p
		}
		presets = loaded
	}

	if err := presets.Validate(); err != nil {
		p.errorf("presets invalid: %v", err)
	}

	total := 0
	for _, c := range []struct {
		name   string
		preset config.Preset
	}{
		{"wind", presets.Wind},
		{"cyclone", presets.Cyclone},
		{"flood", presets.Flood},
		{"detection", presets.Detection},
	} {
		total += c.preset.Particles
		if c.preset.SpeedFactor > 5 {
			p.errorf("%s: speed_factor %.1f would tear trails apart", c.name, c.preset.SpeedFactor)
		}
	}
	if total > 50_000 {
		p.errorf("particle total %d exceeds the 50000 frame budget", total)
	}

	return p
}

// ── Phase 3: Cyclone Circulation ──
// Validates the analytic circulation for every cyclone in the fixture:
// the wind maximum sits at the eyewall, the eye stays windy, the profile
// decays monotonically outward, and the spin matches the hemisphere.

func validateCirculation(u hazard.Update) *phase {
	p := &phase{name: "Phase 3: Cyclone Circulation (profile)"}

	for _, c := range u.Cyclones {
		if !c.Valid() {
			p.errorf("cyclone %s: not drivable, skipping profile checks", c.ID)
			continue
		}
		checkProfile(p, c)
	}
	return p
}

func checkProfile(p *phase, c hazard.Cyclone) {
	f := overlay.CycloneField(c)
	speedAt := func(frac float64) float64 {
		return f.At(geo.Destination(c.Center, frac*c.RadiusMeters, 90)).Speed()
	}

	// Peak sustained wind at the eyewall, 30% of the way out.
	peak := speedAt(0.3)
	if math.Abs(peak-c.MaxWindSpeed) > 0.02*c.MaxWindSpeed {
		p.errorf("cyclone %s: eyewall speed %.1f, want %.1f within 2%%", c.ID, peak, c.MaxWindSpeed)
	}

	// The eye is calmer than the eyewall but far from still.
	eye := f.At(c.Center).Speed()
	if eye < 0.4*c.MaxWindSpeed || eye > 0.8*c.MaxWindSpeed {
		p.errorf("cyclone %s: eye speed %.1f outside 40-80%% of peak", c.ID, eye)
	}

	// Monotone decay outward from the eyewall.
	prev := peak
	for _, frac := range []float64{0.6, 1.0, 1.5, 2.0} {
		sp := speedAt(frac)
		if sp >= prev {
			p.errorf("cyclone %s: speed %.2f at %.1fR does not decay", c.ID, sp, frac)
		}
		prev = sp
	}
	if far := speedAt(3.0); far > 0.02*c.MaxWindSpeed {
		p.errorf("cyclone %s: residual %.2f m/s at 3R, want under 2%% of peak", c.ID, far)
	}

	// Cyclonic spin: due east of a northern-hemisphere center the flow
	// points north; south of the equator it points south.
	v := f.At(geo.Destination(c.Center, 0.5*c.RadiusMeters, 90))
	if c.Center.Lat >= 0 && v.V <= 0 {
		p.errorf("cyclone %s: northern storm spins the wrong way (V=%.2f east of center)", c.ID, v.V)
	}
	if c.Center.Lat < 0 && v.V >= 0 {
		p.errorf("cyclone %s: southern storm spins the wrong way (V=%.2f east of center)", c.ID, v.V)
	}
}

// ── Phase 4: Speed Ramps ──
// Validates the built-in color ramps the overlays key speed against.

func validateRamps() *phase {
	p := &phase{name: "Phase 4: Speed Ramps (colors)"}

	ramp := render.WindRamp()
	if ramp.Bands() < 2 {
		p.errorf("wind ramp has %d bands, expected several", ramp.Bands())
		return p
	}

	for i := 1; i < ramp.Bands(); i++ {
		if ramp.Threshold(i) <= ramp.Threshold(i-1) {
			p.errorf("wind ramp threshold %d (%.1f) not above threshold %d (%.1f)",
				i, ramp.Threshold(i), i-1, ramp.Threshold(i-1))
		}
	}

	// Band assignment is monotone over a speed sweep and clamps at the ends.
	if ramp.Band(-5) != 0 {
		p.errorf("negative speed should clamp into band 0, got %d", ramp.Band(-5))
	}
	if ramp.Band(1e6) != ramp.Bands()-1 {
		p.errorf("huge speed should clamp into the last band, got %d", ramp.Band(1e6))
	}
	prev := 0
	for sp := 0.0; sp <= 60; sp += 0.5 {
		b := ramp.Band(sp)
		if b < prev {
			p.errorf("band went backwards at %.1f m/s: %d after %d", sp, b, prev)
		}
		prev = b
	}

	// Adjacent bands must be visually distinct or the ramp is wasted.
	for i := 1; i < ramp.Bands(); i++ {
		lo := ramp.ColorFor(ramp.Threshold(i - 1))
		hi := ramp.ColorFor(ramp.Threshold(i))
		if lo == hi {
			p.errorf("bands %d and %d share color %+v", i-1, i, lo)
		}
	}

	return p
}
