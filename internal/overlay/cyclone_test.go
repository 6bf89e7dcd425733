package overlay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/overlay"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

func testCyclone() hazard.Cyclone {
	return hazard.Cyclone{
		ID:           "al092023",
		Name:         "IDALIA",
		Center:       geo.Point{Lat: 25, Lon: -80},
		RadiusMeters: 300_000,
		MaxWindSpeed: 50,
	}
}

// --- tests ---

func TestCycloneField_SpeedProfile(t *testing.T) {
	c := testCyclone()
	fld := overlay.CycloneField(c)

	atEyewall := fld.At(geo.Destination(c.Center, 90_000, 90)).Speed()
	atCenter := fld.At(c.Center).Speed()
	atRim := fld.At(geo.Destination(c.Center, 300_000, 0)).Speed()

	// Peak at 30% of the radius, strong over the eye, near calm at the rim.
	assert.InDelta(t, 50.0, atEyewall, 0.2)
	assert.InDelta(t, 28.49, atCenter, 0.1)
	assert.InDelta(t, 2.34, atRim, 0.1)

	assert.Greater(t, atEyewall, atCenter)
	assert.Greater(t, atCenter, atRim)
}

func TestCycloneField_MagnitudeMatchesProfile(t *testing.T) {
	c := testCyclone()
	fld := overlay.CycloneField(c)

	// Halfway out: 50 * exp(-((0.5-0.3)/0.4)^2) = 50 * exp(-0.25).
	v := fld.At(geo.Destination(c.Center, 150_000, 180))
	assert.InDelta(t, 38.94, v.Speed(), 0.1)
}

func TestCycloneField_CounterclockwiseInNorth(t *testing.T) {
	c := testCyclone()
	fld := overlay.CycloneField(c)

	// Due east of a northern-hemisphere center the tangential flow points
	// north, tilted back toward the center by the inflow fraction.
	v := fld.At(geo.Point{Lat: c.Center.Lat, Lon: c.Center.Lon + 1})
	assert.Positive(t, v.V)
	assert.Negative(t, v.U)
	assert.InDelta(t, -3.0/7.0, v.U/v.V, 1e-6)
}

func TestCycloneField_ClockwiseInSouth(t *testing.T) {
	c := testCyclone()
	c.Center = geo.Point{Lat: -20, Lon: 150}
	fld := overlay.CycloneField(c)

	v := fld.At(geo.Point{Lat: -20, Lon: 151})
	assert.Negative(t, v.V)
	assert.Negative(t, v.U)
}

func TestCycloneField_FarFieldNearZero(t *testing.T) {
	c := testCyclone()
	fld := overlay.CycloneField(c)

	v := fld.At(geo.Destination(c.Center, 900_000, 45))
	assert.Less(t, v.Speed(), 0.01)
}

func TestCycloneBinding_Motion(t *testing.T) {
	c := testCyclone()
	b := overlay.NewCycloneBinding(c)

	assert.Equal(t, "al092023", b.ID())
	assert.Equal(t, overlay.KindCyclone, b.Kind())
	assert.False(t, b.Anchored())

	m, ok := b.Motion()
	require.True(t, ok)
	require.NotNil(t, m.Field)

	region, isDisk := m.Region.(particle.DiskRegion)
	require.True(t, isDisk)
	assert.Equal(t, c.Center, region.Center)
	assert.Equal(t, 300_000.0, region.RadiusMeters)
	assert.Equal(t, 45_000.0, region.SlackMeters)

	assert.Equal(t, render.WindRamp().Bands(), m.Ramp.Bands())
}

func TestCycloneBinding_DecorateDrawsEyewallRing(t *testing.T) {
	c := testCyclone()
	b := overlay.NewCycloneBinding(c)

	r, err := render.New(64, 64, render.Config{})
	require.NoError(t, err)
	proj := &viewport.Equirect{Center: c.Center, PixelsPerDegree: 10, Width: 64, Height: 64}

	b.Decorate(&overlay.Frame{R: r, Proj: proj})

	lit := countLit(r.Buffer())
	assert.GreaterOrEqual(t, lit, 20, "eyewall ring should light a circle of cells")
	assert.True(t, r.Buffer().At(32, 32).IsZero(), "ring leaves the eye dark")
}

// --- helpers ---

func countLit(buf *render.Buffer) int {
	lit := 0
	for _, c := range buf.Pix() {
		if !c.IsZero() {
			lit++
		}
	}
	return lit
}
