package pupil

import (
	"fmt"
	"math"
	"strings"
)

// Option keys understood by the built-in variants.
const (
	OptPhaseScale = "phase_scale" // multiplier applied to random-field phase maps
	OptInnerScale = "inner_scale" // von Kármán inner scale, meters
	OptOuterScale = "outer_scale" // von Kármán outer scale, meters
	OptR0         = "r0"          // Fried parameter, meters
	OptAmplitude  = "amplitude"   // von Kármán prefactor
)

// Spectrum names accepted by Config.Spectrum for the turbulent Model.
const (
	SpectrumVonKarman  = "vonkarman"
	SpectrumKolmogorov = "kolmogorov"
)

// DefaultStrutWidthFraction is the strut width used by the Model variant
// when none is configured.
const DefaultStrutWidthFraction = 0.04

// Config holds the parameters of one pupil. It is copied into the Pupil at
// construction and never mutated afterwards; a different diameter or sample
// count means a new Pupil.
type Config struct {
	Diameter float64 // aperture diameter, physical units
	Samples  int     // grid points per axis
	Padscale float64 // the domain spans [-Padscale*Diameter, Padscale*Diameter]

	ObstructionRadius  *float64 // secondary mirror radius b, obstructed variants only
	StrutWidthFraction *float64 // strut width as a fraction of the radius, Model only
	Turbulence         bool     // Model: draw W from a random field
	Spectrum           string   // Model turbulence spectrum, SpectrumVonKarman when empty

	// Seed fixes the random-field noise stream. Nil draws a random seed,
	// which is logged so the run can be reproduced.
	Seed *uint64

	// Options holds variant-specific numeric parameters (see Opt* keys).
	Options map[string]float64
}

// DefaultConfig returns a 2-unit aperture sampled at 100 points.
func DefaultConfig() Config {
	return Config{Diameter: 2, Samples: 100, Padscale: 1}
}

// Normalize returns a copy with a negative diameter made positive and a zero
// padscale replaced by 1.
func (c Config) Normalize() Config {
	out := c
	if out.Diameter < 0 {
		out.Diameter = -out.Diameter
	}
	if out.Padscale == 0 {
		out.Padscale = 1
	}
	if c.Options != nil {
		out.Options = make(map[string]float64, len(c.Options))
		for k, v := range c.Options {
			out.Options[k] = v
		}
	}
	return out
}

// Option returns Options[key], or def when the key is absent.
func (c Config) Option(key string, def float64) float64 {
	if v, ok := c.Options[key]; ok {
		return v
	}
	return def
}

// Radius returns Diameter/2.
func (c Config) Radius() float64 { return c.Diameter / 2 }

// obstruction validates and returns the obstruction radius.
func (c Config) obstruction() (float64, error) {
	if c.ObstructionRadius == nil {
		return 0, fmt.Errorf("%w: obstruction radius b is required", ErrConfig)
	}
	b := *c.ObstructionRadius
	if b < 0 || math.IsNaN(b) {
		return 0, fmt.Errorf("%w: obstruction radius must be non-negative, got %g", ErrConfig, b)
	}
	return b, nil
}

// strutFraction validates and returns the strut width fraction.
func (c Config) strutFraction() (float64, error) {
	if c.StrutWidthFraction == nil {
		return DefaultStrutWidthFraction, nil
	}
	s := *c.StrutWidthFraction
	if s < 0 || s >= 1 || math.IsNaN(s) {
		return 0, fmt.Errorf("%w: strut width fraction must be in [0, 1), got %g", ErrConfig, s)
	}
	return s, nil
}

// Float returns a pointer to v, for the optional Config fields.
func Float(v float64) *float64 { return &v }

// Seed returns a pointer to v, for Config.Seed.
func Seed(v uint64) *uint64 { return &v }

// turbulence resolves the Model spectrum name.
func (c Config) turbulence() (string, error) {
	switch name := strings.ToLower(strings.TrimSpace(c.Spectrum)); name {
	case "", SpectrumVonKarman:
		return SpectrumVonKarman, nil
	case SpectrumKolmogorov:
		return SpectrumKolmogorov, nil
	default:
		return "", fmt.Errorf("%w: unknown turbulence spectrum %q", ErrConfig, c.Spectrum)
	}
}
