package overlay_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/overlay"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

func testDetection() hazard.DetectionZone {
	return hazard.DetectionZone{
		ID:           "dz-gulf-1",
		Center:       geo.Point{Lat: 28, Lon: -90},
		RadiusMeters: 60_000,
		Probability:  0.8,
		Ensemble: []geo.Point{
			{Lat: 28.1, Lon: -90.1},
			{Lat: 27.9, Lon: -89.9},
		},
		Track: []geo.Point{
			{Lat: 28, Lon: -90},
			{Lat: 28.3, Lon: -89.6},
			{Lat: 28.6, Lon: -89.1},
		},
	}
}

func detectionProj() *viewport.Equirect {
	return &viewport.Equirect{Center: geo.Point{Lat: 28, Lon: -90}, PixelsPerDegree: 20, Width: 64, Height: 64}
}

// --- tests ---

func TestDetectionBinding_IsDecorationOnly(t *testing.T) {
	b := overlay.NewDetectionBinding(testDetection())

	assert.Equal(t, "dz-gulf-1", b.ID())
	assert.Equal(t, overlay.KindDetection, b.Kind())
	assert.False(t, b.Anchored())

	_, ok := b.Motion()
	assert.False(t, ok, "detection zones never advect particles")
}

func TestDetectionBinding_DecorateDrawsPulsingDisk(t *testing.T) {
	b := overlay.NewDetectionBinding(testDetection())

	r, err := render.New(64, 64, render.Config{})
	require.NoError(t, err)

	// A quarter period in, the pulse is at its peak.
	b.Decorate(&overlay.Frame{R: r, Proj: detectionProj(), Elapsed: 400 * time.Millisecond})

	assert.False(t, r.Buffer().At(32, 32).IsZero(), "disk center glows")

	// The dashed track reaches well past the disk.
	farLit := false
	for y := 0; y < 64 && !farLit; y++ {
		for x := 0; x < 64; x++ {
			if r.Buffer().At(x, y).IsZero() {
				continue
			}
			if math.Hypot(float64(x-32), float64(y-32)) > 12 {
				farLit = true
				break
			}
		}
	}
	assert.True(t, farLit, "track dashes extend beyond the disk")
}

func TestDetectionBinding_EnsembleMembersDrawn(t *testing.T) {
	d := testDetection()
	b := overlay.NewDetectionBinding(d)

	r, err := render.New(64, 64, render.Config{})
	require.NoError(t, err)
	proj := detectionProj()

	b.Decorate(&overlay.Frame{R: r, Proj: proj})

	for _, member := range d.Ensemble {
		sp := proj.Project(member)
		assert.False(t, r.Buffer().At(int(math.Round(sp.X)), int(math.Round(sp.Y))).IsZero(),
			"ensemble member cell should be lit")
	}
}

func TestDetectionBinding_ZeroProbabilityDiskStaysDark(t *testing.T) {
	d := testDetection()
	d.Probability = 0
	d.Ensemble = nil
	d.Track = nil
	b := overlay.NewDetectionBinding(d)

	r, err := render.New(64, 64, render.Config{})
	require.NoError(t, err)

	b.Decorate(&overlay.Frame{R: r, Proj: detectionProj(), Elapsed: 400 * time.Millisecond})

	assert.True(t, r.Buffer().At(32, 32).IsZero(), "zero probability means no fill")
	assert.Greater(t, countLit(r.Buffer()), 0, "the rim ring still marks the zone")
}
