package render

import "errors"

// Ramp maps flow speed to a fixed color band. Band i covers speeds from
// thresholds[i] up to but not including thresholds[i+1]; the last band
// is open-ended and speeds below the first threshold clamp into band 0,
// so every finite speed maps to some band.
type Ramp struct {
	thresholds []float64
	colors     []RGB
}

// NewRamp builds a ramp from ascending speed thresholds and one color
// per band.
func NewRamp(thresholds []float64, colors []RGB) (Ramp, error) {
	if len(thresholds) == 0 {
		return Ramp{}, errors.New("render: ramp needs at least one threshold")
	}
	if len(thresholds) != len(colors) {
		return Ramp{}, errors.New("render: ramp thresholds and colors must pair up")
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return Ramp{}, errors.New("render: ramp thresholds must be strictly ascending")
		}
	}
	return Ramp{thresholds: thresholds, colors: colors}, nil
}

// Band returns the band index for speed.
func (r Ramp) Band(speed float64) int {
	band := 0
	for i, t := range r.thresholds {
		if speed < t {
			break
		}
		band = i
	}
	return band
}

// ColorFor returns the band color for speed.
func (r Ramp) ColorFor(speed float64) RGB {
	return r.colors[r.Band(speed)]
}

// Bands returns how many bands the ramp has.
func (r Ramp) Bands() int { return len(r.thresholds) }

// Threshold returns the lower speed edge of band i.
func (r Ramp) Threshold(i int) float64 { return r.thresholds[i] }

// GradientRamp builds a ramp over the given thresholds by blending
// between anchor colors in HCL space, spreading the anchors evenly
// across the bands.
func GradientRamp(thresholds []float64, anchors ...RGB) (Ramp, error) {
	if len(anchors) < 2 {
		return Ramp{}, errors.New("render: gradient ramp needs at least two anchors")
	}
	n := len(thresholds)
	colors := make([]RGB, n)
	for i := range colors {
		pos := 0.0
		if n > 1 {
			pos = float64(i) / float64(n-1)
		}
		seg := pos * float64(len(anchors)-1)
		lo := int(seg)
		if lo >= len(anchors)-1 {
			lo = len(anchors) - 2
		}
		colors[i] = Lerp(anchors[lo], anchors[lo+1], seg-float64(lo))
	}
	return NewRamp(thresholds, colors)
}

// WindRamp is the standard wind-speed ramp: calm blue through green and
// yellow into storm red, banded at the usual meters-per-second cuts.
func WindRamp() Ramp {
	ramp, err := GradientRamp(
		[]float64{0, 5, 10, 15, 20, 25, 30, 40},
		RGB{R: 40, G: 80, B: 200},
		RGB{R: 60, G: 200, B: 180},
		RGB{R: 240, G: 220, B: 60},
		RGB{R: 230, G: 40, B: 40},
	)
	if err != nil {
		panic(err)
	}
	return ramp
}
