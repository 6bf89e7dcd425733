package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/couchcryptid/storm-overlay-engine/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/overlay"
	"github.com/couchcryptid/storm-overlay-engine/internal/render"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
	"github.com/gdamore/tcell/v2"
)

// statusRows is the screen height reserved for the status line.
const statusRows = 1

const (
	// panStep jumps the target a quarter of the visible span per keypress.
	panStep  = 0.25
	zoomStep = 1.5
	minZoom  = 0.8
	maxZoom  = 400.0
)

// camera smooths pan and zoom onto the projection with spring physics,
// one spring state per axis. Keypresses move the targets; the projection
// glides after them over a few frames.
type camera struct {
	proj   *viewport.Equirect
	spring harmonica.Spring

	lat, latVel   float64
	lon, lonVel   float64
	zoom, zoomVel float64

	targetLat, targetLon, targetZoom float64
}

func newCamera(center geo.Point, pixelsPerDegree float64, interval time.Duration) *camera {
	fps := int(time.Second / interval)
	if fps < 1 {
		fps = 1
	}
	return &camera{
		proj: &viewport.Equirect{
			Center:          center,
			PixelsPerDegree: pixelsPerDegree,
			// Terminal cells are about twice as tall as wide, so the
			// longitude axis needs twice the cells per degree.
			Aspect: 2,
		},
		// Critically damped so the map never overshoots the target.
		spring:     harmonica.NewSpring(harmonica.FPS(fps), 4.5, 1.0),
		lat:        center.Lat,
		lon:        center.Lon,
		zoom:       pixelsPerDegree,
		targetLat:  center.Lat,
		targetLon:  center.Lon,
		targetZoom: pixelsPerDegree,
	}
}

func (c *camera) setSize(w, h int) {
	c.proj.Width = w
	c.proj.Height = h
}

// step advances the springs one frame and publishes the result into the
// projection. It reports whether the camera is still in motion.
func (c *camera) step() bool {
	c.lat, c.latVel = c.spring.Update(c.lat, c.latVel, c.targetLat)
	c.lon, c.lonVel = c.spring.Update(c.lon, c.lonVel, c.targetLon)
	c.zoom, c.zoomVel = c.spring.Update(c.zoom, c.zoomVel, c.targetZoom)

	if !c.moving() {
		// Snap the residual so settling does not dribble on forever.
		c.lat, c.latVel = c.targetLat, 0
		c.lon, c.lonVel = c.targetLon, 0
		c.zoom, c.zoomVel = c.targetZoom, 0
	}

	c.proj.Center = geo.Point{Lat: c.lat, Lon: geo.NormalizeLon(c.lon)}
	c.proj.PixelsPerDegree = c.zoom
	return c.moving()
}

func (c *camera) moving() bool {
	const eps = 1e-3
	zoomEps := eps * math.Max(1, c.zoom)
	return math.Abs(c.targetLat-c.lat) > eps || math.Abs(c.latVel) > eps ||
		math.Abs(c.targetLon-c.lon) > eps || math.Abs(c.lonVel) > eps ||
		math.Abs(c.targetZoom-c.zoom) > zoomEps || math.Abs(c.zoomVel) > zoomEps
}

// pan nudges the target center by fractions of the visible span.
func (c *camera) pan(dLatFrac, dLonFrac float64) {
	b := c.proj.Bounds()
	c.targetLat = clamp(c.targetLat+dLatFrac*b.Height(), -85, 85)
	c.targetLon += dLonFrac * b.Width()
}

func (c *camera) zoomBy(factor float64) {
	c.targetZoom = clamp(c.targetZoom*factor, minZoom, maxZoom)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// layer is one overlay's drawing surface. Present copies the frame out
// under a lock; the draw loop composites all layers additively, so the
// stacking order never matters.
type layer struct {
	host *host
	kind string

	mu   sync.Mutex
	w, h int
	pix  []render.RGB
}

func (l *layer) Present(buf *render.Buffer) error {
	w, h := buf.Size()
	l.mu.Lock()
	l.w, l.h = w, h
	l.pix = append(l.pix[:0], buf.Pix()...)
	l.mu.Unlock()
	return nil
}

func (l *layer) Close() error {
	l.host.removeLayer(l)
	return nil
}

// host owns the terminal. It mints layer surfaces for the overlay
// manager, runs the input and draw loop, and drives the camera.
type host struct {
	screen         tcell.Screen
	cam            *camera
	view           *viewport.Adapter
	geocoder       mapbox.Geocoder
	geocodeTimeout time.Duration
	logger         *slog.Logger

	mu     sync.Mutex
	layers []*layer
	place  string

	scratch []render.RGB

	// paused and visible are only touched from the run goroutine.
	paused  bool
	visible map[string]bool
}

func newHost(screen tcell.Screen, cam *camera, view *viewport.Adapter, geocoder mapbox.Geocoder, geocodeTimeout time.Duration, logger *slog.Logger) *host {
	return &host{
		screen:         screen,
		cam:            cam,
		view:           view,
		geocoder:       geocoder,
		geocodeTimeout: geocodeTimeout,
		logger:         logger,
		visible: map[string]bool{
			overlay.KindWind:      true,
			overlay.KindCyclone:   true,
			overlay.KindFlood:     true,
			overlay.KindDetection: true,
		},
	}
}

// AcquireSurface mints a surface for one overlay.
func (h *host) AcquireSurface(kind string) (overlay.Surface, error) {
	l := &layer{host: h, kind: kind}
	h.mu.Lock()
	h.layers = append(h.layers, l)
	h.mu.Unlock()
	return l, nil
}

func (h *host) removeLayer(target *layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, l := range h.layers {
		if l == target {
			h.layers = append(h.layers[:i], h.layers[i+1:]...)
			return
		}
	}
}

// run owns the calling goroutine until quit or signal. One goroutine
// pumps tcell events into a channel so the select can also watch the
// frame ticker and the context.
func (h *host) run(ctx context.Context, m *overlay.Manager, interval time.Duration) {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.requestPlace()

	wasMoving := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if h.handleEvent(ev, m) {
				return
			}
		case <-ticker.C:
			moving := h.cam.step()
			if moving || wasMoving {
				// The settle frame still publishes the final position.
				h.view.Notify(viewport.Change{Moved: true})
			}
			if moving != wasMoving {
				h.onMotionChange(m, moving)
				wasMoving = moving
			}
			h.draw(m)
		}
	}
}

// onMotionChange suspends the overlays while the camera glides and
// resumes them once it settles, then refreshes the place label.
func (h *host) onMotionChange(m *overlay.Manager, moving bool) {
	if moving {
		if !h.paused {
			m.Suspend()
		}
		return
	}
	if !h.paused {
		m.Resume()
	}
	h.requestPlace()
}

func (h *host) handleEvent(ev tcell.Event, m *overlay.Manager) (quit bool) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		w, ht := ev.Size()
		h.resize(w, ht)
	case *tcell.EventKey:
		return h.handleKey(ev, m)
	}
	return false
}

func (h *host) handleKey(ev *tcell.EventKey, m *overlay.Manager) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		h.cam.pan(panStep, 0)
	case tcell.KeyDown:
		h.cam.pan(-panStep, 0)
	case tcell.KeyLeft:
		h.cam.pan(0, -panStep)
	case tcell.KeyRight:
		h.cam.pan(0, panStep)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case '+', '=':
			h.cam.zoomBy(zoomStep)
		case '-', '_':
			h.cam.zoomBy(1 / zoomStep)
		case ' ':
			h.togglePause(m)
		case '1':
			h.toggleKind(m, overlay.KindWind)
		case '2':
			h.toggleKind(m, overlay.KindCyclone)
		case '3':
			h.toggleKind(m, overlay.KindFlood)
		case '4':
			h.toggleKind(m, overlay.KindDetection)
		}
	}
	return false
}

func (h *host) togglePause(m *overlay.Manager) {
	h.paused = !h.paused
	if h.paused {
		m.Suspend()
	} else {
		m.Resume()
	}
}

func (h *host) toggleKind(m *overlay.Manager, kind string) {
	h.visible[kind] = !h.visible[kind]
	m.SetKindVisible(kind, h.visible[kind])
}

func (h *host) resize(w, ht int) {
	mapH := ht - statusRows
	if mapH < 1 {
		mapH = 1
	}
	h.cam.setSize(w, mapH)
	h.view.Notify(viewport.Change{Resized: true, Moved: true})
	h.screen.Sync()
}

// draw composites every layer additively and repaints the screen.
func (h *host) draw(m *overlay.Manager) {
	w, ht := h.cam.proj.Size()
	if w <= 0 || ht <= 0 {
		return
	}
	if len(h.scratch) < w*ht {
		h.scratch = make([]render.RGB, w*ht)
	}
	combined := h.scratch[:w*ht]
	for i := range combined {
		combined[i] = render.RGB{}
	}

	h.mu.Lock()
	layers := append([]*layer(nil), h.layers...)
	place := h.place
	h.mu.Unlock()

	for _, l := range layers {
		l.mu.Lock()
		cw, ch := l.w, l.h
		if cw > w {
			cw = w
		}
		if ch > ht {
			ch = ht
		}
		for y := 0; y < ch; y++ {
			src := l.pix[y*l.w : y*l.w+cw]
			dst := combined[y*w : y*w+cw]
			for x, c := range src {
				if !c.IsZero() {
					dst[x] = dst[x].Add(c)
				}
			}
		}
		l.mu.Unlock()
	}

	h.screen.Clear()
	for y := 0; y < ht; y++ {
		row := combined[y*w : (y+1)*w]
		for x, c := range row {
			if c.IsZero() {
				continue
			}
			style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
			h.screen.SetContent(x, y, '█', nil, style)
		}
	}
	h.drawStatus(m, ht, w, place)
	h.screen.Show()
}

// drawStatus paints the bottom line: center, zoom, overlay count, and
// the reverse-geocoded place when known.
func (h *host) drawStatus(m *overlay.Manager, row, width int, place string) {
	c := h.cam.proj.Center
	status := fmt.Sprintf(" %.2f,%.2f  %.1f px/deg  %d overlays",
		c.Lat, c.Lon, h.cam.proj.PixelsPerDegree, len(m.Snapshot()))
	if place != "" {
		status += "  " + place
	}
	if h.paused {
		status += "  [paused]"
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkSlateGray)
	x := 0
	for _, r := range status {
		if x >= width {
			break
		}
		h.screen.SetContent(x, row, r, nil, style)
		x++
	}
	for ; x < width; x++ {
		h.screen.SetContent(x, row, ' ', nil, style)
	}
}

// requestPlace refreshes the status-line place label in the background.
// The cached geocoder absorbs repeat lookups when the camera settles on
// the same spot.
func (h *host) requestPlace() {
	if h.geocoder == nil {
		return
	}
	center := h.cam.proj.Center
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.geocodeTimeout)
		defer cancel()
		res, err := h.geocoder.ReverseGeocode(ctx, center.Lat, center.Lon)
		if err != nil {
			h.logger.Debug("reverse geocode failed", "error", err)
			return
		}
		if res.PlaceName == "" {
			return
		}
		h.mu.Lock()
		h.place = res.PlaceName
		h.mu.Unlock()
	}()
}
