package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/observability"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// Tunings carries the per-kind overlay tuning.
type Tunings struct {
	Wind      Tuning
	Cyclone   Tuning
	Flood     Tuning
	Detection Tuning
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Viewport *viewport.Adapter
	Surfaces SurfaceProvider
	// Store is the shared wind sample store. Feed samples load into it;
	// the ambient wind overlay reads it live.
	Store   *field.Store
	Tunings Tunings

	Interval time.Duration
	MaxDelta time.Duration
	Clock    clockwork.Clock
	// Seed fixes particle randomness across all overlays; zero draws
	// fresh seeds.
	Seed int64

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Manager owns every attached overlay. It reconciles them against feed
// deliveries, fans out visibility and suspend calls, and guarantees
// each overlay's surface is released exactly once.
type Manager struct {
	cfg ManagerConfig

	ready atomic.Bool

	mu     sync.Mutex
	closed bool
	wind   *Overlay
	// Hazard overlays keyed by feed ID, per category.
	cyclones   map[string]*Overlay
	floods     map[string]*Overlay
	detections map[string]*Overlay
}

// NewManager validates deps and builds an empty manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Viewport == nil {
		return nil, errors.New("overlay: manager viewport must not be nil")
	}
	if cfg.Surfaces == nil {
		return nil, errors.New("overlay: manager surface provider must not be nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("overlay: manager field store must not be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("overlay: manager logger must not be nil")
	}
	if cfg.Metrics == nil {
		return nil, errors.New("overlay: manager metrics must not be nil")
	}
	return &Manager{
		cfg:        cfg,
		cyclones:   make(map[string]*Overlay),
		floods:     make(map[string]*Overlay),
		detections: make(map[string]*Overlay),
	}, nil
}

// AttachWind creates and attaches the ambient wind overlay. Calling it
// again returns the existing overlay.
func (m *Manager) AttachWind() (*Overlay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("overlay: manager closed")
	}
	if m.wind != nil {
		return m.wind, nil
	}
	o, err := m.attach(NewWindBinding(m.cfg.Store, m.cfg.Viewport), m.cfg.Tunings.Wind)
	if err != nil {
		return nil, err
	}
	m.wind = o
	return o, nil
}

// Apply reconciles overlays against one feed delivery. Wind samples
// replace the store contents; each hazard category is brought in line
// with the update, attaching the new, rebinding the known, and
// detaching what the feed no longer reports. Individual failures are
// collected, not fatal; the rest of the update still lands.
func (m *Manager) Apply(u hazard.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("overlay: manager closed")
	}

	if len(u.Samples) > 0 {
		stats := m.cfg.Store.Load(u.Samples)
		m.cfg.Metrics.SamplesLoaded.Add(float64(stats.Accepted))
		m.cfg.Metrics.SamplesDropped.Add(float64(stats.Dropped))
	}

	var errs []error
	errs = append(errs, m.reconcileCyclones(u.Cyclones)...)
	errs = append(errs, m.reconcileFloods(u.Floods)...)
	errs = append(errs, m.reconcileDetections(u.Detections)...)

	m.cfg.Metrics.FeedUpdates.Inc()
	m.ready.Store(true)

	m.cfg.Logger.Debug("update applied",
		"samples", len(u.Samples),
		"cyclones", len(u.Cyclones),
		"floods", len(u.Floods),
		"detections", len(u.Detections),
		"observed_at", u.ObservedAt,
	)
	return errors.Join(errs...)
}

func (m *Manager) reconcileCyclones(desired []hazard.Cyclone) []error {
	var errs []error
	seen := make(map[string]bool, len(desired))
	for _, c := range desired {
		seen[c.ID] = true
		if o, ok := m.cyclones[c.ID]; ok {
			if err := o.SetBinding(NewCycloneBinding(c)); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		o, err := m.attach(NewCycloneBinding(c), m.cfg.Tunings.Cyclone)
		if err != nil {
			errs = append(errs, fmt.Errorf("cyclone %s: %w", c.ID, err))
			continue
		}
		m.cyclones[c.ID] = o
	}
	errs = append(errs, m.detachStale(m.cyclones, seen)...)
	return errs
}

func (m *Manager) reconcileFloods(desired []hazard.FloodZone) []error {
	var errs []error
	seen := make(map[string]bool, len(desired))
	for _, z := range desired {
		seen[z.ID] = true
		if o, ok := m.floods[z.ID]; ok {
			if err := o.SetBinding(NewFloodBinding(z)); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		o, err := m.attach(NewFloodBinding(z), m.cfg.Tunings.Flood)
		if err != nil {
			errs = append(errs, fmt.Errorf("flood %s: %w", z.ID, err))
			continue
		}
		m.floods[z.ID] = o
	}
	errs = append(errs, m.detachStale(m.floods, seen)...)
	return errs
}

func (m *Manager) reconcileDetections(desired []hazard.DetectionZone) []error {
	var errs []error
	seen := make(map[string]bool, len(desired))
	for _, d := range desired {
		seen[d.ID] = true
		if o, ok := m.detections[d.ID]; ok {
			if err := o.SetBinding(NewDetectionBinding(d)); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		o, err := m.attach(NewDetectionBinding(d), m.cfg.Tunings.Detection)
		if err != nil {
			errs = append(errs, fmt.Errorf("detection %s: %w", d.ID, err))
			continue
		}
		m.detections[d.ID] = o
	}
	errs = append(errs, m.detachStale(m.detections, seen)...)
	return errs
}

// detachStale removes overlays whose hazards the feed stopped reporting.
func (m *Manager) detachStale(overlays map[string]*Overlay, seen map[string]bool) []error {
	var errs []error
	for id, o := range overlays {
		if seen[id] {
			continue
		}
		if err := o.Detach(); err != nil {
			errs = append(errs, err)
		}
		delete(overlays, id)
	}
	return errs
}

// attach acquires a surface, builds the overlay, and starts it. The
// surface is closed on every failure path so a half-built overlay never
// leaks it. Callers hold m.mu.
func (m *Manager) attach(b Binding, t Tuning) (*Overlay, error) {
	surface, err := m.cfg.Surfaces.AcquireSurface(b.Kind())
	if err != nil {
		return nil, fmt.Errorf("acquire %s surface: %w", b.Kind(), err)
	}
	o, err := New(Config{
		Binding:  b,
		Viewport: m.cfg.Viewport,
		Surface:  surface,
		Tuning:   t,
		Interval: m.cfg.Interval,
		MaxDelta: m.cfg.MaxDelta,
		Clock:    m.cfg.Clock,
		Seed:     m.cfg.Seed,
		Logger:   m.cfg.Logger,
		Metrics:  m.cfg.Metrics,
	})
	if err != nil {
		if closeErr := surface.Close(); closeErr != nil {
			m.cfg.Logger.Warn("surface close failed after overlay error", "error", closeErr)
		}
		return nil, err
	}
	if err := o.Attach(); err != nil {
		return nil, errors.Join(err, o.Detach())
	}
	return o, nil
}

// SetKindVisible toggles every overlay of one kind.
func (m *Manager) SetKindVisible(kind string, visible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.all() {
		if o.Kind() == kind {
			o.SetVisible(visible)
		}
	}
}

// Suspend pauses every frame loop, used while the camera is dragged.
func (m *Manager) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.all() {
		o.Suspend()
	}
}

// Resume continues every frame loop after Suspend.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.all() {
		o.Resume()
	}
}

// Info is a point-in-time status view of one overlay.
type Info struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	HazardID  string    `json:"hazard_id"`
	State     string    `json:"state"`
	Visible   bool      `json:"visible"`
	Particles int       `json:"particles"`
	Frames    uint64    `json:"frames"`
}

// Snapshot returns the attached overlays in a stable order.
func (m *Manager) Snapshot() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0)
	for _, o := range m.all() {
		infos = append(infos, Info{
			ID:        o.ID(),
			Kind:      o.Kind(),
			HazardID:  o.HazardID(),
			State:     o.State().String(),
			Visible:   o.Visible(),
			Particles: o.Particles(),
			Frames:    o.Frames(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Kind != infos[j].Kind {
			return infos[i].Kind < infos[j].Kind
		}
		return infos[i].HazardID < infos[j].HazardID
	})
	return infos
}

// CheckReadiness returns nil once at least one feed update has been
// applied.
func (m *Manager) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("no feed update applied yet")
	}
	return nil
}

// Close detaches every overlay. The manager refuses further work after.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, o := range m.all() {
		if err := o.Detach(); err != nil {
			errs = append(errs, err)
		}
	}
	m.wind = nil
	m.cyclones = make(map[string]*Overlay)
	m.floods = make(map[string]*Overlay)
	m.detections = make(map[string]*Overlay)
	return errors.Join(errs...)
}

// all collects every attached overlay. Callers hold m.mu.
func (m *Manager) all() []*Overlay {
	overlays := make([]*Overlay, 0, 1+len(m.cyclones)+len(m.floods)+len(m.detections))
	if m.wind != nil {
		overlays = append(overlays, m.wind)
	}
	for _, o := range m.cyclones {
		overlays = append(overlays, o)
	}
	for _, o := range m.floods {
		overlays = append(overlays, o)
	}
	for _, o := range m.detections {
		overlays = append(overlays, o)
	}
	return overlays
}
