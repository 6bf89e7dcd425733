package render

import (
	"errors"
	"math"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/particle"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

const (
	// DefaultFadeRetain keeps most of the previous frame, which is what
	// stretches particle motion into visible trails.
	DefaultFadeRetain = 0.93
	// DefaultMaxSegment caps a particle segment in pixels. Longer jumps
	// mean the projection moved under the particle, not the particle
	// across the map, and are drawn as a fresh dot instead of a streak.
	DefaultMaxSegment = 64.0
)

// Projector is the slice of the viewport the renderer needs.
type Projector interface {
	Project(p geo.Point) viewport.ScreenPoint
}

// Config tunes a renderer. Zero values take the package defaults.
type Config struct {
	// FadeRetain is the per-frame brightness multiplier in (0, 1).
	FadeRetain float64
	// MaxSegment is the longest particle segment drawn, in pixels.
	MaxSegment float64
}

// Renderer paints frames into an owned Buffer. All drawing is additive,
// so overlapping overlays brighten each other instead of overpainting.
// Not safe for concurrent use; one animation loop is the single caller.
type Renderer struct {
	buf        *Buffer
	retain     float64
	maxSegment float64
}

// New builds a renderer over a w by h buffer.
func New(w, h int, cfg Config) (*Renderer, error) {
	if cfg.FadeRetain == 0 {
		cfg.FadeRetain = DefaultFadeRetain
	}
	if cfg.MaxSegment == 0 {
		cfg.MaxSegment = DefaultMaxSegment
	}
	if cfg.FadeRetain <= 0 || cfg.FadeRetain >= 1 {
		return nil, errors.New("render: fade retain must be inside (0, 1)")
	}
	if cfg.MaxSegment <= 0 {
		return nil, errors.New("render: max segment must be positive")
	}
	return &Renderer{
		buf:        NewBuffer(w, h),
		retain:     cfg.FadeRetain,
		maxSegment: cfg.MaxSegment,
	}, nil
}

// BeginFrame fades the previous frame down instead of clearing it; the
// residue is the trail effect.
func (r *Renderer) BeginFrame() {
	r.buf.Fade(r.retain)
}

// Buffer returns the frame buffer for presenters to copy out.
func (r *Renderer) Buffer() *Buffer { return r.buf }

// Size returns the buffer dimensions.
func (r *Renderer) Size() (int, int) { return r.buf.Size() }

// Resize follows a surface resize, dropping the old frame.
func (r *Renderer) Resize(w, h int) {
	r.buf.Resize(w, h)
}

// DrawParticles projects every particle through proj, draws a segment
// from its previous trail point to its new position colored by current
// speed, and records the new point on the trail. Projection happens here,
// every frame, for every particle; screen positions are never reused
// across frames.
func (r *Renderer) DrawParticles(sys *particle.System, proj Projector, ramp Ramp) {
	ps := sys.Particles()
	for i := range ps {
		p := &ps[i]
		sp := proj.Project(p.Pos)
		c := ramp.ColorFor(p.Vel.Speed())

		if last, ok := p.LastTrail(); ok {
			dx, dy := sp.X-last.X, sp.Y-last.Y
			if dx*dx+dy*dy <= r.maxSegment*r.maxSegment {
				r.line(last, sp, c)
			} else {
				p.ClearTrail()
				r.DrawDot(sp, c)
			}
		} else {
			r.DrawDot(sp, c)
		}
		p.PushTrail(sp)
	}
}

// DrawDot blends a single cell.
func (r *Renderer) DrawDot(sp viewport.ScreenPoint, c RGB) {
	r.buf.AddAt(int(math.Round(sp.X)), int(math.Round(sp.Y)), c)
}

// DrawPolyline draws connected segments through pts.
func (r *Renderer) DrawPolyline(pts []viewport.ScreenPoint, c RGB) {
	for i := 1; i < len(pts); i++ {
		r.line(pts[i-1], pts[i], c)
	}
}

// DrawDashedPolyline draws pts with a dash pattern, keeping the phase
// across joints so corners do not restart the pattern.
func (r *Renderer) DrawDashedPolyline(pts []viewport.ScreenPoint, c RGB, dashLen, gapLen float64) {
	if dashLen <= 0 || gapLen < 0 {
		r.DrawPolyline(pts, c)
		return
	}
	period := dashLen + gapLen
	phase := 0.0
	for i := 1; i < len(pts); i++ {
		phase = r.dashedLine(pts[i-1], pts[i], c, dashLen, period, phase)
	}
}

// DrawRing draws a one-pixel circle outline, the eyewall and ripple
// primitive.
func (r *Renderer) DrawRing(center viewport.ScreenPoint, radius float64, c RGB) {
	if radius <= 0 {
		r.DrawDot(center, c)
		return
	}
	steps := int(2 * math.Pi * radius)
	if steps < 12 {
		steps = 12
	}
	lastX, lastY := math.MinInt32, math.MinInt32
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := int(math.Round(center.X + radius*math.Cos(a)))
		y := int(math.Round(center.Y + radius*math.Sin(a)))
		if x == lastX && y == lastY {
			continue
		}
		r.buf.AddAt(x, y, c)
		lastX, lastY = x, y
	}
}

// DrawDisk fills a circle additively. Callers scale the color to pulse.
func (r *Renderer) DrawDisk(center viewport.ScreenPoint, radius float64, c RGB) {
	if radius <= 0 {
		r.DrawDot(center, c)
		return
	}
	cy := int(math.Round(center.Y))
	ri := int(math.Ceil(radius))
	for dy := -ri; dy <= ri; dy++ {
		fy := float64(dy)
		if math.Abs(fy) > radius {
			continue
		}
		half := math.Sqrt(radius*radius - fy*fy)
		x0 := int(math.Round(center.X - half))
		x1 := int(math.Round(center.X + half))
		for x := x0; x <= x1; x++ {
			r.buf.AddAt(x, cy+dy, c)
		}
	}
}

// line steps along the major axis, skipping repeated cells so additive
// blending does not double-expose within one segment.
func (r *Renderer) line(a, b viewport.ScreenPoint, c RGB) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		r.DrawDot(b, c)
		return
	}
	lastX, lastY := math.MinInt32, math.MinInt32
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + dx*t))
		y := int(math.Round(a.Y + dy*t))
		if x == lastX && y == lastY {
			continue
		}
		r.buf.AddAt(x, y, c)
		lastX, lastY = x, y
	}
}

// dashedLine draws one segment of a dashed path and returns the pattern
// phase at its end.
func (r *Renderer) dashedLine(a, b viewport.ScreenPoint, c RGB, dashLen, period, phase float64) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	steps := int(length)
	if steps == 0 {
		return math.Mod(phase+length, period)
	}
	lastX, lastY := math.MinInt32, math.MinInt32
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		at := math.Mod(phase+length*t, period)
		if at >= dashLen {
			continue
		}
		x := int(math.Round(a.X + dx*t))
		y := int(math.Round(a.Y + dy*t))
		if x == lastX && y == lastY {
			continue
		}
		r.buf.AddAt(x, y, c)
		lastX, lastY = x, y
	}
	return math.Mod(phase+length, period)
}
