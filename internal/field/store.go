package field

import (
	"errors"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
)

const (
	// DefaultInfluenceRadius bounds how far a sample contributes, in meters.
	DefaultInfluenceRadius = 50_000.0
	// DefaultEpsilon is the distance under which a query returns a sample's
	// vector directly instead of interpolating, in meters.
	DefaultEpsilon = 1.0

	metersPerDegree = math.Pi * geo.EarthRadius / 180
)

// Config controls interpolation behavior. Zero values take the package
// defaults.
type Config struct {
	// InfluenceRadius is the maximum distance in meters at which a sample
	// still contributes to a query.
	InfluenceRadius float64
	// Epsilon is the direct-return distance in meters.
	Epsilon float64
}

// LoadStats reports what a Load call did with its input.
type LoadStats struct {
	Accepted int
	Dropped  int
}

// Store interpolates sparse flow samples with inverse-distance weighting.
// Load replaces the whole sample set atomically, so queries racing a
// reload see either the old snapshot or the new one, never a mix.
type Store struct {
	radius  float64
	epsilon float64
	logger  *slog.Logger

	snap atomic.Pointer[snapshot]
}

// cellKey addresses one bucket of the spatial index. Cells are square in
// degrees, sized to the influence radius, so a query only has to visit
// its own cell row and the neighboring rows.
type cellKey struct {
	X int32 // floor(lon / cellDeg)
	Y int32 // floor(lat / cellDeg)
}

type snapshot struct {
	samples []Sample
	cells   map[cellKey][]int32
	cellDeg float64
	bounds  geo.Bounds
}

// New returns an empty store. Queries against it yield zero vectors until
// the first Load.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.InfluenceRadius == 0 {
		cfg.InfluenceRadius = DefaultInfluenceRadius
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.InfluenceRadius < 0 {
		return nil, errors.New("field: influence radius must be positive")
	}
	if cfg.Epsilon < 0 {
		return nil, errors.New("field: epsilon must not be negative")
	}
	if cfg.Epsilon >= cfg.InfluenceRadius {
		return nil, errors.New("field: epsilon must be smaller than the influence radius")
	}
	return &Store{
		radius:  cfg.InfluenceRadius,
		epsilon: cfg.Epsilon,
		logger:  logger,
	}, nil
}

// Load replaces the entire sample set. Samples with non-finite or
// out-of-range values are dropped and counted, never partially indexed.
func (s *Store) Load(samples []Sample) LoadStats {
	cellDeg := s.radius / metersPerDegree

	snap := &snapshot{
		samples: make([]Sample, 0, len(samples)),
		cells:   make(map[cellKey][]int32),
		cellDeg: cellDeg,
	}

	var stats LoadStats
	for _, sm := range samples {
		if !sm.Valid() {
			stats.Dropped++
			continue
		}
		idx := int32(len(snap.samples))
		snap.samples = append(snap.samples, sm)
		key := snap.keyFor(sm.Point)
		snap.cells[key] = append(snap.cells[key], idx)

		if stats.Accepted == 0 {
			snap.bounds = geo.Bounds{
				MinLat: sm.Point.Lat, MaxLat: sm.Point.Lat,
				MinLon: sm.Point.Lon, MaxLon: sm.Point.Lon,
			}
		} else {
			snap.bounds.MinLat = math.Min(snap.bounds.MinLat, sm.Point.Lat)
			snap.bounds.MaxLat = math.Max(snap.bounds.MaxLat, sm.Point.Lat)
			snap.bounds.MinLon = math.Min(snap.bounds.MinLon, sm.Point.Lon)
			snap.bounds.MaxLon = math.Max(snap.bounds.MaxLon, sm.Point.Lon)
		}
		stats.Accepted++
	}

	s.snap.Store(snap)

	if stats.Dropped > 0 {
		s.logger.Warn("dropped invalid field samples",
			"dropped", stats.Dropped,
			"accepted", stats.Accepted,
		)
	}
	return stats
}

// At interpolates the flow at p with inverse-distance-squared weights over
// the samples within the influence radius. A query within epsilon of a
// sample returns that sample's vector directly. With no sample in range,
// or before the first Load, the result is a zero vector.
func (s *Store) At(p geo.Point) geo.Vector {
	snap := s.snap.Load()
	if snap == nil || len(snap.samples) == 0 {
		return geo.Vector{}
	}

	center := snap.keyFor(p)

	// The latitude span of the radius is one cell by construction. The
	// longitude span widens toward the poles because cells are square in
	// degrees but narrow in meters.
	lonCells := int32(1)
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	if abs := math.Abs(cosLat); abs > 1e-6 {
		lonCells = int32(math.Ceil(1 / abs))
		if lonCells > 180 {
			lonCells = 180
		}
	} else {
		lonCells = 180
	}

	var sumU, sumV, sumW float64
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := -lonCells; dx <= lonCells; dx++ {
			indices, ok := snap.cells[cellKey{X: center.X + dx, Y: center.Y + dy}]
			if !ok {
				continue
			}
			for _, i := range indices {
				sm := snap.samples[i]
				d := geo.DistanceMeters(p, sm.Point)
				if d <= s.epsilon {
					return sm.Flow
				}
				if d > s.radius {
					continue
				}
				w := 1 / (d * d)
				sumU += w * sm.Flow.U
				sumV += w * sm.Flow.V
				sumW += w
			}
		}
	}

	if sumW == 0 {
		return geo.Vector{}
	}
	return geo.Vector{U: sumU / sumW, V: sumV / sumW}
}

// Len returns the number of samples in the current snapshot.
func (s *Store) Len() int {
	snap := s.snap.Load()
	if snap == nil {
		return 0
	}
	return len(snap.samples)
}

// Bounds returns the tight box around the current samples. ok is false
// when the store is empty.
func (s *Store) Bounds() (geo.Bounds, bool) {
	snap := s.snap.Load()
	if snap == nil || len(snap.samples) == 0 {
		return geo.Bounds{}, false
	}
	return snap.bounds, true
}

func (sn *snapshot) keyFor(p geo.Point) cellKey {
	return cellKey{
		X: int32(math.Floor(p.Lon / sn.cellDeg)),
		Y: int32(math.Floor(p.Lat / sn.cellDeg)),
	}
}
