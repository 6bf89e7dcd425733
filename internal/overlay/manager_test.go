package overlay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/observability"
	"github.com/couchcryptid/storm-overlay-engine/internal/overlay"
)

// --- mocks ---

// surfacePool mints frameSurfaces and remembers every one it handed out.
type surfacePool struct {
	mu        sync.Mutex
	handedOut []*frameSurface
	kinds     []string
	failKinds map[string]bool
}

func (p *surfacePool) AcquireSurface(kind string) (overlay.Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failKinds[kind] {
		return nil, errors.New("compositor out of layers")
	}
	s := &frameSurface{}
	p.handedOut = append(p.handedOut, s)
	p.kinds = append(p.kinds, kind)
	return s, nil
}

func (p *surfacePool) closedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	closed := 0
	for _, s := range p.handedOut {
		_, closes, _, _, _ := s.snapshot()
		if closes > 0 {
			closed++
		}
	}
	return closed
}

func newTestManager(t *testing.T) (*overlay.Manager, *surfacePool, *field.Store) {
	t.Helper()
	store, err := field.New(field.Config{}, discardLogger())
	require.NoError(t, err)

	pool := &surfacePool{failKinds: map[string]bool{}}
	m, err := overlay.NewManager(overlay.ManagerConfig{
		Viewport: testViewport(t),
		Surfaces: pool,
		Store:    store,
		Tunings: overlay.Tunings{
			Wind:      overlay.Tuning{Particles: 50, MinAgeTicks: 20, MaxAgeTicks: 40, SpeedFactor: 1, FadeRetain: 0.92},
			Cyclone:   testTuning(),
			Flood:     overlay.Tuning{Particles: 20, MinAgeTicks: 40, MaxAgeTicks: 80, SpeedFactor: 1, FadeRetain: 0.94},
			Detection: overlay.Tuning{FadeRetain: 0.88},
		},
		Interval: testInterval,
		MaxDelta: 100 * time.Millisecond,
		Clock:    clockwork.NewFakeClock(),
		Seed:     11,
		Logger:   discardLogger(),
		Metrics:  observability.NewMetricsForTesting(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, pool, store
}

func fullUpdate() hazard.Update {
	return hazard.Update{
		Samples: []field.Sample{
			{Point: geo.Point{Lat: 29, Lon: -95}, Flow: geo.Vector{U: 5, V: 1}},
			{Point: geo.Point{Lat: 29.5, Lon: -95.2}, Flow: geo.Vector{U: 4, V: 2}},
		},
		Cyclones:   []hazard.Cyclone{testCyclone()},
		Floods:     []hazard.FloodZone{testFloodZone(true)},
		Detections: []hazard.DetectionZone{testDetection()},
		ObservedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

// --- tests ---

func TestManager_ApplyAttachesOverlays(t *testing.T) {
	m, pool, store := newTestManager(t)

	require.NoError(t, m.Apply(fullUpdate()))

	assert.Equal(t, 2, store.Len())

	infos := m.Snapshot()
	require.Len(t, infos, 3)
	assert.Equal(t, overlay.KindCyclone, infos[0].Kind)
	assert.Equal(t, overlay.KindDetection, infos[1].Kind)
	assert.Equal(t, overlay.KindFlood, infos[2].Kind)

	assert.Equal(t, 40, infos[0].Particles)
	assert.Equal(t, 0, infos[1].Particles, "detection overlays are decoration-only")
	assert.Equal(t, "running", infos[0].State)

	pool.mu.Lock()
	kinds := append([]string(nil), pool.kinds...)
	pool.mu.Unlock()
	assert.ElementsMatch(t, []string{"cyclone", "flood", "detection"}, kinds)
}

func TestManager_ApplyReconcilesStaleHazards(t *testing.T) {
	m, pool, _ := newTestManager(t)

	require.NoError(t, m.Apply(fullUpdate()))
	first := m.Snapshot()
	require.Len(t, first, 3)
	var cycloneID string
	for _, info := range first {
		if info.Kind == overlay.KindCyclone {
			cycloneID = info.ID.String()
		}
	}

	// Next delivery has only the cyclone; flood and detection are gone.
	next := hazard.Update{Cyclones: []hazard.Cyclone{testCyclone()}}
	require.NoError(t, m.Apply(next))

	infos := m.Snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, overlay.KindCyclone, infos[0].Kind)
	assert.Equal(t, cycloneID, infos[0].ID.String(),
		"a hazard that persists keeps its overlay across updates")

	assert.Equal(t, 2, pool.closedCount(), "stale overlays release their surfaces")
}

func TestManager_UpdateMovesHazardWithoutNewOverlay(t *testing.T) {
	m, pool, _ := newTestManager(t)

	require.NoError(t, m.Apply(hazard.Update{Cyclones: []hazard.Cyclone{testCyclone()}}))

	moved := testCyclone()
	moved.Center = geo.Point{Lat: 26.5, Lon: -78}
	require.NoError(t, m.Apply(hazard.Update{Cyclones: []hazard.Cyclone{moved}}))

	pool.mu.Lock()
	minted := len(pool.handedOut)
	pool.mu.Unlock()
	assert.Equal(t, 1, minted, "rebinding reuses the existing overlay and surface")
}

func TestManager_AttachWindIdempotent(t *testing.T) {
	m, pool, _ := newTestManager(t)

	first, err := m.AttachWind()
	require.NoError(t, err)
	again, err := m.AttachWind()
	require.NoError(t, err)
	assert.Same(t, first, again)

	pool.mu.Lock()
	minted := len(pool.handedOut)
	pool.mu.Unlock()
	assert.Equal(t, 1, minted)

	infos := m.Snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, overlay.KindWind, infos[0].Kind)
	assert.Equal(t, overlay.WindID, infos[0].HazardID)
	assert.Equal(t, 50, infos[0].Particles)
}

func TestManager_SurfaceFailureDoesNotBlockRest(t *testing.T) {
	m, pool, _ := newTestManager(t)
	pool.failKinds[overlay.KindFlood] = true

	err := m.Apply(fullUpdate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flood")

	infos := m.Snapshot()
	require.Len(t, infos, 2, "cyclone and detection still attach")
}

func TestManager_SuspendResume(t *testing.T) {
	m, _, _ := newTestManager(t)
	require.NoError(t, m.Apply(fullUpdate()))

	m.Suspend()
	for _, info := range m.Snapshot() {
		assert.Equal(t, "suspended", info.State)
	}

	m.Resume()
	for _, info := range m.Snapshot() {
		assert.Equal(t, "running", info.State)
	}
}

func TestManager_SetKindVisible(t *testing.T) {
	m, _, _ := newTestManager(t)
	require.NoError(t, m.Apply(fullUpdate()))

	m.SetKindVisible(overlay.KindFlood, false)
	for _, info := range m.Snapshot() {
		if info.Kind == overlay.KindFlood {
			assert.False(t, info.Visible)
		} else {
			assert.True(t, info.Visible)
		}
	}

	m.SetKindVisible(overlay.KindFlood, true)
	for _, info := range m.Snapshot() {
		assert.True(t, info.Visible)
	}
}

func TestManager_Readiness(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.Error(t, m.CheckReadiness(context.Background()))
	require.NoError(t, m.Apply(hazard.Update{Samples: []field.Sample{
		{Point: geo.Point{Lat: 29, Lon: -95}, Flow: geo.Vector{U: 5, V: 1}},
	}}))
	require.NoError(t, m.CheckReadiness(context.Background()))
}

func TestManager_CloseDetachesEverything(t *testing.T) {
	m, pool, _ := newTestManager(t)
	_, err := m.AttachWind()
	require.NoError(t, err)
	require.NoError(t, m.Apply(fullUpdate()))

	require.NoError(t, m.Close())

	assert.Empty(t, m.Snapshot())
	assert.Equal(t, 4, pool.closedCount(), "every surface is released on close")

	require.Error(t, m.Apply(fullUpdate()))
	_, err = m.AttachWind()
	require.Error(t, err)
}
