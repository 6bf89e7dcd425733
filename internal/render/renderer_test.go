package render_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// --- mocks ---

// fixedProjector sends every geographic point to the same screen cell.
type fixedProjector struct {
	sp viewport.ScreenPoint
}

func (f fixedProjector) Project(geo.Point) viewport.ScreenPoint { return f.sp }

// linearProjector maps the test region onto the buffer one degree per
// ten pixels.
type linearProjector struct{}

func (linearProjector) Project(p geo.Point) viewport.ScreenPoint {
	return viewport.ScreenPoint{X: (p.Lon + 100) * 10, Y: (40 - p.Lat) * 10}
}

// --- tests ---

func TestBufferBounds(t *testing.T) {
	b := render.NewBuffer(4, 3)

	t.Run("out of range reads are zero and writes are dropped", func(t *testing.T) {
		b.Set(-1, 0, render.RGB{R: 9})
		b.Set(4, 0, render.RGB{R: 9})
		b.AddAt(0, 3, render.RGB{R: 9})

		assert.Equal(t, render.RGB{}, b.At(-1, 0))
		assert.Equal(t, render.RGB{}, b.At(9, 9))
		for _, c := range b.Pix() {
			assert.True(t, c.IsZero())
		}
	})

	t.Run("additive blending saturates", func(t *testing.T) {
		b.Set(1, 1, render.RGB{R: 200, G: 10})
		b.AddAt(1, 1, render.RGB{R: 100, G: 10, B: 5})
		assert.Equal(t, render.RGB{R: 255, G: 20, B: 5}, b.At(1, 1))
	})
}

func TestBufferFadeReachesZero(t *testing.T) {
	b := render.NewBuffer(8, 8)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			b.Set(x, y, render.RGB{R: 255, G: 255, B: 255})
		}
	}

	for i := 0; i < 100; i++ {
		b.Fade(0.93)
	}

	// Trails must reach full transparency; a floor that stalls above
	// zero would burn ghost pixels into the view.
	for _, c := range b.Pix() {
		require.True(t, c.IsZero(), "fade left residue %v", c)
	}
}

func TestBufferFadeIsMonotonic(t *testing.T) {
	b := render.NewBuffer(1, 1)
	b.Set(0, 0, render.RGB{R: 200})

	prev := b.At(0, 0).R
	for i := 0; i < 20; i++ {
		b.Fade(0.93)
		cur := b.At(0, 0).R
		require.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestBufferResizeClears(t *testing.T) {
	b := render.NewBuffer(10, 10)
	b.Set(5, 5, render.RGB{R: 1})

	b.Resize(6, 4)

	w, h := b.Size()
	assert.Equal(t, 6, w)
	assert.Equal(t, 4, h)
	for _, c := range b.Pix() {
		assert.True(t, c.IsZero())
	}
	assert.Len(t, b.Pix(), 24)
}

func TestNewRendererValidation(t *testing.T) {
	t.Run("rejects fade retain outside (0,1)", func(t *testing.T) {
		_, err := render.New(10, 10, render.Config{FadeRetain: 1.0})
		require.Error(t, err)
		_, err = render.New(10, 10, render.Config{FadeRetain: -0.5})
		require.Error(t, err)
	})

	t.Run("zero config takes defaults", func(t *testing.T) {
		r, err := render.New(10, 10, render.Config{})
		require.NoError(t, err)
		w, h := r.Size()
		assert.Equal(t, 10, w)
		assert.Equal(t, 10, h)
	})
}

func TestBeginFrameFadesPreviousFrame(t *testing.T) {
	r, err := render.New(10, 10, render.Config{FadeRetain: 0.9})
	require.NoError(t, err)

	r.Buffer().Set(3, 3, render.RGB{R: 100})
	r.BeginFrame()

	got := r.Buffer().At(3, 3).R
	assert.Less(t, got, uint8(100))
	assert.Greater(t, got, uint8(0))
}

func TestDrawParticlesSegmentAndTrail(t *testing.T) {
	r, err := render.New(20, 20, render.Config{})
	require.NoError(t, err)

	sys := singleParticleSystem(t)
	ps := sys.Particles()
	ps[0].PushTrail(viewport.ScreenPoint{X: 2, Y: 2})

	ramp := testRamp(t)
	r.DrawParticles(sys, fixedProjector{sp: viewport.ScreenPoint{X: 6, Y: 2}}, ramp)

	for x := 2; x <= 6; x++ {
		assert.False(t, r.Buffer().At(x, 2).IsZero(), "segment cell %d,2 not drawn", x)
	}
	assert.Equal(t, 2, ps[0].TrailLen())

	last, ok := ps[0].LastTrail()
	require.True(t, ok)
	assert.Equal(t, viewport.ScreenPoint{X: 6, Y: 2}, last)
}

func TestDrawParticlesTeleportGuard(t *testing.T) {
	r, err := render.New(300, 10, render.Config{MaxSegment: 64})
	require.NoError(t, err)

	sys := singleParticleSystem(t)
	ps := sys.Particles()
	ps[0].PushTrail(viewport.ScreenPoint{X: 0, Y: 0})

	// A 200 pixel jump is a projection change, not motion; it must not
	// leave a streak across the surface.
	r.DrawParticles(sys, fixedProjector{sp: viewport.ScreenPoint{X: 200, Y: 0}}, testRamp(t))

	assert.True(t, r.Buffer().At(100, 0).IsZero(), "teleport drew a streak")
	assert.False(t, r.Buffer().At(200, 0).IsZero(), "landing dot missing")
	assert.Equal(t, 1, ps[0].TrailLen(), "trail should restart at the new position")
}

func TestDrawParticlesFirstFrameDrawsDots(t *testing.T) {
	sys, err := particle.New(particle.Config{
		Count:  30,
		MinAge: 50, MaxAge: 100,
		SpeedFactor: 1,
		Region: particle.BoxRegion{
			Bounds: geo.Bounds{MinLat: 30, MinLon: -100, MaxLat: 40, MaxLon: -90},
		},
		Seed: 21,
	})
	require.NoError(t, err)

	r, rerr := render.New(100, 100, render.Config{})
	require.NoError(t, rerr)

	sys.Tick(33*time.Millisecond, field.Uniform(geo.Vector{U: 5}))
	r.DrawParticles(sys, linearProjector{}, testRamp(t))

	lit := 0
	for _, c := range r.Buffer().Pix() {
		if !c.IsZero() {
			lit++
		}
	}
	assert.Positive(t, lit, "no particles made it onto the buffer")

	for i := range sys.Particles() {
		assert.Positive(t, sys.Particles()[i].TrailLen(), "particle %d trail not recorded", i)
	}
}

func TestDrawDashedPolyline(t *testing.T) {
	r, err := render.New(30, 10, render.Config{})
	require.NoError(t, err)

	r.DrawDashedPolyline([]viewport.ScreenPoint{
		{X: 0, Y: 5}, {X: 20, Y: 5},
	}, render.RGB{G: 255}, 3, 2)

	buf := r.Buffer()
	onCells := []int{0, 1, 2, 5, 6, 7, 10}
	offCells := []int{3, 4, 8, 9, 13}
	for _, x := range onCells {
		assert.False(t, buf.At(x, 5).IsZero(), "dash cell %d should be lit", x)
	}
	for _, x := range offCells {
		assert.True(t, buf.At(x, 5).IsZero(), "gap cell %d should be dark", x)
	}
}

func TestDrawRing(t *testing.T) {
	r, err := render.New(30, 30, render.Config{})
	require.NoError(t, err)

	center := viewport.ScreenPoint{X: 15, Y: 15}
	r.DrawRing(center, 5, render.RGB{R: 255})

	assert.False(t, r.Buffer().At(20, 15).IsZero())
	assert.False(t, r.Buffer().At(15, 20).IsZero())
	assert.False(t, r.Buffer().At(10, 15).IsZero())
	assert.True(t, r.Buffer().At(15, 15).IsZero(), "ring must not fill the center")
}

func TestDrawDisk(t *testing.T) {
	r, err := render.New(30, 30, render.Config{})
	require.NoError(t, err)

	center := viewport.ScreenPoint{X: 10, Y: 10}
	r.DrawDisk(center, 3, render.RGB{B: 40})

	assert.False(t, r.Buffer().At(10, 10).IsZero(), "disk center must fill")
	assert.False(t, r.Buffer().At(13, 10).IsZero(), "disk rim must fill")
	assert.True(t, r.Buffer().At(15, 10).IsZero(), "beyond the rim stays dark")
}

// --- helpers ---

func singleParticleSystem(t *testing.T) *particle.System {
	t.Helper()
	sys, err := particle.New(particle.Config{
		Count:  1,
		MinAge: 1000, MaxAge: 1000,
		SpeedFactor: 1,
		Region: particle.BoxRegion{
			Bounds: geo.Bounds{MinLat: -1, MinLon: -1, MaxLat: 1, MaxLon: 1},
		},
		Seed: 1,
	})
	require.NoError(t, err)
	return sys
}

func testRamp(t *testing.T) render.Ramp {
	t.Helper()
	ramp, err := render.NewRamp(
		[]float64{0, 10},
		[]render.RGB{{B: 255}, {R: 255}},
	)
	require.NoError(t, err)
	return ramp
}
