// Package render turns particle systems and hazard decorations into an
// RGB frame buffer that any presenter (terminal, image writer) can show.
package render

import "github.com/lucasb-eyer/go-colorful"

// RGB is one buffer cell. Channels are 8-bit; blending saturates rather
// than wraps.
type RGB struct {
	R, G, B uint8
}

// Add returns the channel-wise saturating sum, the additive blend used
// for overlapping particle glow.
func (c RGB) Add(o RGB) RGB {
	return RGB{
		R: clampU8(uint16(c.R) + uint16(o.R)),
		G: clampU8(uint16(c.G) + uint16(o.G)),
		B: clampU8(uint16(c.B) + uint16(o.B)),
	}
}

// Scale multiplies every channel by f, clamped to [0, 255]. Values of f
// below one darken, which is what the per-frame fade relies on.
func (c RGB) Scale(f float64) RGB {
	if f <= 0 {
		return RGB{}
	}
	return RGB{
		R: clampF(float64(c.R) * f),
		G: clampF(float64(c.G) * f),
		B: clampF(float64(c.B) * f),
	}
}

// IsZero reports whether the cell is fully dark.
func (c RGB) IsZero() bool { return c.R == 0 && c.G == 0 && c.B == 0 }

// Lerp blends a toward b by t in [0, 1] through HCL space, which keeps
// the intermediate hues clean instead of muddy.
func Lerp(a, b RGB, t float64) RGB {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	m := ca.BlendHcl(cb, t).Clamped()
	return RGB{
		R: clampF(m.R * 255),
		G: clampF(m.G * 255),
		B: clampF(m.B * 255),
	}
}

func clampU8(v uint16) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampF(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
