package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset tunes one overlay category's particle ensemble.
// Ages are in ticks, so visual lifetime scales with the frame interval.
type Preset struct {
	Particles   int     `yaml:"particles"`
	MinAgeTicks int     `yaml:"min_age_ticks"`
	MaxAgeTicks int     `yaml:"max_age_ticks"`
	SpeedFactor float64 `yaml:"speed_factor"`
	FadeRetain  float64 `yaml:"fade_retain"`
}

// Presets carries the per-category tuning. Zero particles means the
// category renders decorations only.
type Presets struct {
	Wind      Preset `yaml:"wind"`
	Cyclone   Preset `yaml:"cyclone"`
	Flood     Preset `yaml:"flood"`
	Detection Preset `yaml:"detection"`
}

// DefaultPresets returns the built-in tuning used when no preset file is given.
func DefaultPresets() Presets {
	return Presets{
		Wind:      Preset{Particles: 2500, MinAgeTicks: 60, MaxAgeTicks: 180, SpeedFactor: 1.0, FadeRetain: 0.92},
		Cyclone:   Preset{Particles: 1200, MinAgeTicks: 40, MaxAgeTicks: 120, SpeedFactor: 1.0, FadeRetain: 0.90},
		Flood:     Preset{Particles: 600, MinAgeTicks: 80, MaxAgeTicks: 240, SpeedFactor: 1.0, FadeRetain: 0.94},
		Detection: Preset{Particles: 0, FadeRetain: 0.88},
	}
}

// LoadPresets reads a YAML preset file layered over the defaults.
// Unknown keys are rejected so typos surface at startup instead of
// silently falling back to defaults.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()

	data, err := os.ReadFile(path)
	if err != nil {
		return Presets{}, fmt.Errorf("read presets: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&presets); err != nil {
		return Presets{}, fmt.Errorf("parse presets %s: %w", path, err)
	}

	if err := presets.Validate(); err != nil {
		return Presets{}, fmt.Errorf("presets %s: %w", path, err)
	}
	return presets, nil
}

// Validate checks every category for usable tuning values.
func (p Presets) Validate() error {
	for _, c := range []struct {
		name   string
		preset Preset
	}{
		{"wind", p.Wind},
		{"cyclone", p.Cyclone},
		{"flood", p.Flood},
		{"detection", p.Detection},
	} {
		if err := c.preset.validate(); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

func (p Preset) validate() error {
	if p.Particles < 0 {
		return fmt.Errorf("particles must not be negative, got %d", p.Particles)
	}
	if p.FadeRetain <= 0 || p.FadeRetain >= 1 {
		return fmt.Errorf("fade_retain must be in (0, 1), got %g", p.FadeRetain)
	}
	if p.Particles == 0 {
		return nil
	}
	if p.MinAgeTicks <= 0 || p.MaxAgeTicks < p.MinAgeTicks {
		return fmt.Errorf("age ticks must satisfy 0 < min <= max, got min=%d max=%d", p.MinAgeTicks, p.MaxAgeTicks)
	}
	if p.SpeedFactor <= 0 {
		return fmt.Errorf("speed_factor must be positive, got %g", p.SpeedFactor)
	}
	return nil
}
