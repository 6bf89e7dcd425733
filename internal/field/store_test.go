package field_test

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

func TestNewValidation(t *testing.T) {
	logger := discardLogger()

	t.Run("rejects negative radius", func(t *testing.T) {
		_, err := field.New(field.Config{InfluenceRadius: -1}, logger)
		require.Error(t, err)
	})

	t.Run("rejects epsilon at or beyond the radius", func(t *testing.T) {
		_, err := field.New(field.Config{InfluenceRadius: 10, Epsilon: 10}, logger)
		require.Error(t, err)
	})

	t.Run("zero config takes defaults", func(t *testing.T) {
		s, err := field.New(field.Config{}, logger)
		require.NoError(t, err)
		require.NotNil(t, s)
	})
}

func TestStoreEmpty(t *testing.T) {
	s := newStore(t, field.Config{})

	assert.Equal(t, geo.Vector{}, s.At(geo.Point{Lat: 35, Lon: -97}))
	assert.Zero(t, s.Len())

	_, ok := s.Bounds()
	assert.False(t, ok)
}

func TestStoreExactSample(t *testing.T) {
	s := newStore(t, field.Config{})
	want := geo.Vector{U: 12.5, V: -3.25}

	stats := s.Load([]field.Sample{
		{Point: geo.Point{Lat: 35.3, Lon: -97.5}, Flow: want},
		{Point: geo.Point{Lat: 35.4, Lon: -97.4}, Flow: geo.Vector{U: 1, V: 1}},
	})
	require.Equal(t, 2, stats.Accepted)

	// Within epsilon of a sample the stored vector comes back untouched,
	// not an interpolated blend.
	assert.Equal(t, want, s.At(geo.Point{Lat: 35.3, Lon: -97.5}))
}

func TestStoreInterpolation(t *testing.T) {
	s := newStore(t, field.Config{})
	s.Load([]field.Sample{
		{Point: geo.Point{Lat: 0, Lon: 0}, Flow: geo.Vector{U: 10, V: 0}},
		{Point: geo.Point{Lat: 0, Lon: 0.2}, Flow: geo.Vector{U: 0, V: 10}},
	})

	t.Run("midpoint averages equal weights", func(t *testing.T) {
		v := s.At(geo.Point{Lat: 0, Lon: 0.1})
		assert.InDelta(t, 5.0, v.U, 1e-6)
		assert.InDelta(t, 5.0, v.V, 1e-6)
	})

	t.Run("inverse distance squared favors the near sample", func(t *testing.T) {
		// Distances split 1:3, so the weights split 9:1.
		v := s.At(geo.Point{Lat: 0, Lon: 0.05})
		assert.InDelta(t, 9.0, v.U, 1e-6)
		assert.InDelta(t, 1.0, v.V, 1e-6)
	})
}

func TestStoreInfluenceRadius(t *testing.T) {
	s := newStore(t, field.Config{InfluenceRadius: 10_000, Epsilon: 1})
	s.Load([]field.Sample{
		{Point: geo.Point{Lat: 0, Lon: 0}, Flow: geo.Vector{U: 10}},
	})

	t.Run("inside the radius the sample contributes", func(t *testing.T) {
		assert.InDelta(t, 10.0, s.At(geo.Point{Lat: 0, Lon: 0.05}).U, 1e-6)
	})

	t.Run("beyond the radius the field is zero", func(t *testing.T) {
		// 0.2 degrees of longitude at the equator is about 22 km.
		assert.Equal(t, geo.Vector{}, s.At(geo.Point{Lat: 0, Lon: 0.2}))
	})
}

func TestStoreDropsInvalidSamples(t *testing.T) {
	s := newStore(t, field.Config{})

	stats := s.Load([]field.Sample{
		{Point: geo.Point{Lat: 35, Lon: -97}, Flow: geo.Vector{U: 1}},
		{Point: geo.Point{Lat: 95, Lon: -97}, Flow: geo.Vector{U: 1}},
		{Point: geo.Point{Lat: 35, Lon: -97.1}, Flow: geo.Vector{U: math.NaN()}},
		{Point: geo.Point{Lat: 35, Lon: math.Inf(1)}, Flow: geo.Vector{}},
	})

	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 3, stats.Dropped)
	assert.Equal(t, 1, s.Len())
}

func TestStoreReloadReplacesEverything(t *testing.T) {
	s := newStore(t, field.Config{})

	s.Load([]field.Sample{{Point: geo.Point{Lat: 0, Lon: 0}, Flow: geo.Vector{U: 10}}})
	require.InDelta(t, 10.0, s.At(geo.Point{Lat: 0, Lon: 0}).U, 1e-9)

	s.Load([]field.Sample{{Point: geo.Point{Lat: 1, Lon: 1}, Flow: geo.Vector{V: 3}}})

	assert.Equal(t, geo.Vector{}, s.At(geo.Point{Lat: 0, Lon: 0}), "old samples must not linger")
	assert.Equal(t, geo.Vector{V: 3}, s.At(geo.Point{Lat: 1, Lon: 1}))
	assert.Equal(t, 1, s.Len())
}

func TestStoreHighLatitudeNeighborhood(t *testing.T) {
	// At 70N a degree of longitude is only ~38 km, so a sample a full
	// degree east still sits inside the 50 km influence radius. The index
	// walk has to widen its longitude span to find it.
	s := newStore(t, field.Config{})
	s.Load([]field.Sample{
		{Point: geo.Point{Lat: 70, Lon: 21}, Flow: geo.Vector{U: 7}},
	})

	v := s.At(geo.Point{Lat: 70, Lon: 20})
	assert.InDelta(t, 7.0, v.U, 1e-6)
}

func TestStoreBounds(t *testing.T) {
	s := newStore(t, field.Config{})
	s.Load([]field.Sample{
		{Point: geo.Point{Lat: 30, Lon: -100}, Flow: geo.Vector{U: 1}},
		{Point: geo.Point{Lat: 40, Lon: -90}, Flow: geo.Vector{U: 1}},
		{Point: geo.Point{Lat: 35, Lon: -95}, Flow: geo.Vector{U: 1}},
	})

	b, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, geo.Bounds{MinLat: 30, MinLon: -100, MaxLat: 40, MaxLon: -90}, b)
}

func TestUniformAndZero(t *testing.T) {
	p := geo.Point{Lat: 12, Lon: 34}

	assert.Equal(t, geo.Vector{}, field.Zero.At(p))
	assert.Equal(t, geo.Vector{U: 2, V: -1}, field.Uniform(geo.Vector{U: 2, V: -1}).At(p))
}

// --- helpers ---

func newStore(t *testing.T, cfg field.Config) *field.Store {
	t.Helper()
	s, err := field.New(cfg, discardLogger())
	require.NoError(t, err)
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
