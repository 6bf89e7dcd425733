// Package particle runs the fixed-size particle ensembles that make flow
// fields visible. Particles live in geographic space; only their short
// motion trails are kept in screen space, pushed by the renderer as it
// draws.
package particle

import (
	"errors"
	"math/rand"
	"time"

	"github.com/couchcryptid/storm-overlay-engine/internal/field"
	"github.com/couchcryptid/storm-overlay-engine/internal/geo"
	"github.com/couchcryptid/storm-overlay-engine/internal/viewport"
)

// TrailCap is the fixed trail length per particle. Trails are small ring
// buffers inside the particle struct so ticks never touch the heap.
const TrailCap = 8

// Particle is one moving sample of the flow field.
type Particle struct {
	// Pos is the current geographic position.
	Pos geo.Point
	// Vel is the flow sampled at Pos on the last tick, kept for
	// speed-based coloring.
	Vel geo.Vector
	// Age counts ticks since the last spawn.
	Age int
	// MaxAge is this particle's lifespan in ticks, randomized per spawn.
	MaxAge int

	trail     [TrailCap]viewport.ScreenPoint
	trailHead int
	trailLen  int
}

// PushTrail records the screen position the particle was drawn at.
func (p *Particle) PushTrail(sp viewport.ScreenPoint) {
	p.trail[p.trailHead] = sp
	p.trailHead = (p.trailHead + 1) % TrailCap
	if p.trailLen < TrailCap {
		p.trailLen++
	}
}

// LastTrail returns the most recently pushed trail point. ok is false for
// a particle that has not been drawn since its last spawn.
func (p *Particle) LastTrail() (viewport.ScreenPoint, bool) {
	if p.trailLen == 0 {
		return viewport.ScreenPoint{}, false
	}
	return p.trail[(p.trailHead+TrailCap-1)%TrailCap], true
}

// TrailLen returns how many trail points are recorded.
func (p *Particle) TrailLen() int { return p.trailLen }

// TrailAt returns the i-th recorded point, oldest first.
func (p *Particle) TrailAt(i int) viewport.ScreenPoint {
	return p.trail[(p.trailHead+TrailCap-p.trailLen+i)%TrailCap]
}

// ClearTrail drops the recorded points, breaking the drawn line when a
// particle teleports to its next spawn position.
func (p *Particle) ClearTrail() {
	p.trailHead = 0
	p.trailLen = 0
}

// Config sizes and seeds a particle system.
type Config struct {
	// Count is the fixed ensemble size.
	Count int
	// MinAge and MaxAge bound the per-particle lifespan in ticks.
	MinAge int
	MaxAge int
	// SpeedFactor scales sampled flow before advection, trading physical
	// accuracy for legible motion.
	SpeedFactor float64
	// Region decides spawn positions and recycle bounds.
	Region SpawnRegion
	// Seed fixes the random sequence; zero draws an arbitrary seed.
	Seed int64
}

// System owns a fixed ensemble of particles. It is not safe for
// concurrent use; the animation loop is its single writer.
type System struct {
	count       int
	minAge      int
	maxAge      int
	speedFactor float64
	region      SpawnRegion
	rng         *rand.Rand

	particles []Particle
	respawns  uint64
}

// New builds the ensemble and spawns every particle with a randomized
// initial age, so lifespans do not expire in lockstep.
func New(cfg Config) (*System, error) {
	if cfg.Count <= 0 {
		return nil, errors.New("particle: count must be positive")
	}
	if cfg.MinAge <= 0 || cfg.MaxAge < cfg.MinAge {
		return nil, errors.New("particle: age range must satisfy 0 < min <= max")
	}
	if cfg.SpeedFactor <= 0 {
		return nil, errors.New("particle: speed factor must be positive")
	}
	if cfg.Region == nil {
		return nil, errors.New("particle: spawn region must not be nil")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &System{
		count:       cfg.Count,
		minAge:      cfg.MinAge,
		maxAge:      cfg.MaxAge,
		speedFactor: cfg.SpeedFactor,
		region:      cfg.Region,
		rng:         rand.New(rand.NewSource(seed)),
		particles:   make([]Particle, cfg.Count),
	}
	for i := range s.particles {
		s.spawn(&s.particles[i])
		// Scatter initial ages across the lifespan.
		s.particles[i].Age = s.rng.Intn(s.particles[i].MaxAge)
	}
	return s, nil
}

// Tick advances every particle by one explicit Euler step: sample the
// flow at the particle, displace by flow times speed factor times dt,
// age, and recycle the expired and the escaped. The ensemble size never
// changes and nothing is allocated.
func (s *System) Tick(dt time.Duration, f field.Field) {
	seconds := dt.Seconds()
	for i := range s.particles {
		p := &s.particles[i]

		v := f.At(p.Pos)
		p.Vel = v
		if !v.IsZero() {
			p.Pos = geo.Displace(p.Pos, v.Scale(s.speedFactor), seconds)
		}
		p.Age++

		if p.Age >= p.MaxAge || !p.Pos.Valid() || !s.region.Contains(p.Pos) {
			s.spawn(p)
			s.respawns++
		}
	}
}

// Particles exposes the backing slice for rendering. Renderers update
// trails through it; everything else must treat it as read-only.
func (s *System) Particles() []Particle { return s.particles }

// Len returns the fixed ensemble size.
func (s *System) Len() int { return s.count }

// Respawns returns how many recycles Tick has performed.
func (s *System) Respawns() uint64 { return s.respawns }

// SetRegion swaps the spawn region without touching live particles.
// Hazard updates use this so a moving cyclone migrates its ensemble
// through natural recycling instead of a visible reset.
func (s *System) SetRegion(region SpawnRegion) error {
	if region == nil {
		return errors.New("particle: spawn region must not be nil")
	}
	s.region = region
	return nil
}

// Reseed swaps the spawn region and respawns the whole ensemble, used
// when a viewport-relative region follows a pan or zoom.
func (s *System) Reseed(region SpawnRegion) error {
	if region == nil {
		return errors.New("particle: spawn region must not be nil")
	}
	s.region = region
	for i := range s.particles {
		s.spawn(&s.particles[i])
		s.particles[i].Age = s.rng.Intn(s.particles[i].MaxAge)
	}
	return nil
}

func (s *System) spawn(p *Particle) {
	p.Pos = s.region.Sample(s.rng)
	p.Vel = geo.Vector{}
	p.Age = 0
	p.MaxAge = s.minAge
	if s.maxAge > s.minAge {
		p.MaxAge += s.rng.Intn(s.maxAge - s.minAge + 1)
	}
	p.ClearTrail()
}
