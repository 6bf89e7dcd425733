package render

// Buffer is a dense RGB surface addressed by integer pixel coordinates.
// Out-of-range writes are dropped, so callers can draw shapes that hang
// off the edge without checking first.
type Buffer struct {
	w, h int
	pix  []RGB
}

// NewBuffer allocates a zeroed w by h buffer. Non-positive dimensions
// collapse to an empty buffer that silently swallows all drawing.
func NewBuffer(w, h int) *Buffer {
	b := &Buffer{}
	b.Resize(w, h)
	return b
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() (int, int) { return b.w, b.h }

// At returns the cell at x, y, or a zero cell out of range.
func (b *Buffer) At(x, y int) RGB {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		return RGB{}
	}
	return b.pix[y*b.w+x]
}

// Set overwrites the cell at x, y.
func (b *Buffer) Set(x, y int, c RGB) {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		return
	}
	b.pix[y*b.w+x] = c
}

// AddAt additively blends c into the cell at x, y.
func (b *Buffer) AddAt(x, y int, c RGB) {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		return
	}
	i := y*b.w + x
	b.pix[i] = b.pix[i].Add(c)
}

// Fade scales every cell by retain, pulling the whole frame toward
// black. Run once per frame this is what turns last frame's particles
// into this frame's trails. The integer math floors on purpose: a
// rounded multiply stalls at low values and leaves ghost pixels that
// never finish fading.
func (b *Buffer) Fade(retain float64) {
	alpha := uint32(retain * 256)
	if alpha >= 256 {
		alpha = 255
	}
	for i := range b.pix {
		c := &b.pix[i]
		c.R = uint8(uint32(c.R) * alpha >> 8)
		c.G = uint8(uint32(c.G) * alpha >> 8)
		c.B = uint8(uint32(c.B) * alpha >> 8)
	}
}

// Clear zeroes every cell.
func (b *Buffer) Clear() {
	for i := range b.pix {
		b.pix[i] = RGB{}
	}
}

// Resize adjusts the dimensions, reusing the allocation when it still
// fits. Content is always cleared; stale pixels from the old geometry
// would land in the wrong place anyway.
func (b *Buffer) Resize(w, h int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	b.w, b.h = w, h
	need := w * h
	if cap(b.pix) < need {
		b.pix = make([]RGB, need)
		return
	}
	b.pix = b.pix[:need]
	b.Clear()
}

// Pix exposes the backing row-major cells for presenters to copy out.
func (b *Buffer) Pix() []RGB { return b.pix }
