package viewport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// --- mocks ---

type stubProjector struct {
	projectCalls int
	offset       float64
}

func (s *stubProjector) Project(p geo.Point) viewport.ScreenPoint {
	s.projectCalls++
	return viewport.ScreenPoint{X: p.Lon + s.offset, Y: p.Lat + s.offset}
}

func (s *stubProjector) Bounds() geo.Bounds {
	return geo.Bounds{MinLat: -1, MinLon: -1, MaxLat: 1, MaxLon: 1}
}

func (s *stubProjector) Size() (int, int) { return 80, 24 }

// --- tests ---

func TestAdapterRequiresProjector(t *testing.T) {
	_, err := viewport.NewAdapter(nil)
	require.Error(t, err)
}

func TestAdapterDelegatesEveryCall(t *testing.T) {
	stub := &stubProjector{}
	a, err := viewport.NewAdapter(stub)
	require.NoError(t, err)

	first := a.Project(geo.Point{Lat: 1, Lon: 2})
	assert.Equal(t, viewport.ScreenPoint{X: 2, Y: 1}, first)

	// A projection change must be visible on the very next call; nothing
	// may be cached in between.
	stub.offset = 10
	second := a.Project(geo.Point{Lat: 1, Lon: 2})
	assert.Equal(t, viewport.ScreenPoint{X: 12, Y: 11}, second)
	assert.Equal(t, 2, stub.projectCalls)

	w, h := a.Size()
	assert.Equal(t, 80, w)
	assert.Equal(t, 24, h)
}

func TestAdapterNotify(t *testing.T) {
	a, err := viewport.NewAdapter(&stubProjector{})
	require.NoError(t, err)

	var got []viewport.Change
	a.OnChange(func(c viewport.Change) { got = append(got, c) })

	require.Zero(t, a.Version())

	a.Notify(viewport.Change{Moved: true})
	a.Notify(viewport.Change{Resized: true})

	assert.Equal(t, uint64(2), a.Version())
	require.Len(t, got, 2)
	assert.True(t, got[0].Moved)
	assert.True(t, got[1].Resized)
}

func TestAdapterSetProjector(t *testing.T) {
	a, err := viewport.NewAdapter(&stubProjector{})
	require.NoError(t, err)

	require.Error(t, a.SetProjector(nil))
	require.NoError(t, a.SetProjector(&stubProjector{offset: 5}))

	assert.Equal(t, uint64(1), a.Version(), "swapping projectors counts as a change")
	assert.Equal(t, viewport.ScreenPoint{X: 5, Y: 5}, a.Project(geo.Point{}))
}

func TestEquirectProject(t *testing.T) {
	e := &viewport.Equirect{
		Center:          geo.Point{Lat: 0, Lon: 0},
		PixelsPerDegree: 10,
		Width:           100,
		Height:          50,
	}

	t.Run("center lands mid-surface", func(t *testing.T) {
		sp := e.Project(geo.Point{})
		assert.InDelta(t, 50.0, sp.X, 1e-9)
		assert.InDelta(t, 25.0, sp.Y, 1e-9)
	})

	t.Run("north is up", func(t *testing.T) {
		sp := e.Project(geo.Point{Lat: 1, Lon: 0})
		assert.InDelta(t, 15.0, sp.Y, 1e-9)
	})

	t.Run("unproject inverts project", func(t *testing.T) {
		p := geo.Point{Lat: 0.7, Lon: -1.3}
		back := e.Unproject(e.Project(p))
		assert.InDelta(t, p.Lat, back.Lat, 1e-9)
		assert.InDelta(t, p.Lon, back.Lon, 1e-9)
	})

	t.Run("bounds cover the surface corners", func(t *testing.T) {
		b := e.Bounds()
		assert.InDelta(t, -2.5, b.MinLat, 1e-9)
		assert.InDelta(t, 2.5, b.MaxLat, 1e-9)
		assert.InDelta(t, -5.0, b.MinLon, 1e-9)
		assert.InDelta(t, 5.0, b.MaxLon, 1e-9)
	})
}

func TestEquirectLatitudeCompression(t *testing.T) {
	// At 60N a degree of longitude covers half the ground distance, so it
	// should cover half the pixels too.
	atEquator := &viewport.Equirect{PixelsPerDegree: 10, Width: 100, Height: 50}
	atSixty := &viewport.Equirect{
		Center: geo.Point{Lat: 60}, PixelsPerDegree: 10, Width: 100, Height: 50,
	}

	dxEquator := atEquator.Project(geo.Point{Lat: 0, Lon: 1}).X - 50
	dxSixty := atSixty.Project(geo.Point{Lat: 60, Lon: 1}).X - 50

	assert.InDelta(t, dxEquator/2, dxSixty, 1e-6)
}
