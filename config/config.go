// Package config loads the run configuration: defaults, then a YAML or TOML
// file, then .env files and PUPILSIM_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/psanker/pupilsim/fourier"
	"github.com/psanker/pupilsim/pupil"
)

var (
	// ErrInvalid wraps every validation failure reported by Validate.
	ErrInvalid = errors.New("config: invalid configuration")
	// ErrUnsupportedFormat is returned by Load for extensions other than
	// .yaml, .yml and .toml.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
)

// Log configures the logger built by package logging.
type Log struct {
	Development bool   `yaml:"development" toml:"development"`
	File        string `yaml:"file" toml:"file"`
	Level       string `yaml:"level" toml:"level"`
}

// PupilSpec describes one named pupil of the telescope project.
type PupilSpec struct {
	Name       string             `yaml:"name" toml:"name"`
	Variant    string             `yaml:"variant" toml:"variant"`
	Diameter   float64            `yaml:"diameter" toml:"diameter"`
	Samples    int                `yaml:"samples" toml:"samples"`
	Padscale   float64            `yaml:"padscale" toml:"padscale"`
	B          *float64           `yaml:"b,omitempty" toml:"b,omitempty"`
	Struts     *float64           `yaml:"struts,omitempty" toml:"struts,omitempty"`
	Turbulence bool               `yaml:"turbulence" toml:"turbulence"`
	Spectrum   string             `yaml:"spectrum,omitempty" toml:"spectrum,omitempty"`
	Seed       *uint64            `yaml:"seed,omitempty" toml:"seed,omitempty"`
	Options    map[string]float64 `yaml:"options,omitempty" toml:"options,omitempty"`
}

// Config holds everything a run needs.
type Config struct {
	Log        Log     `yaml:"log" toml:"log"`
	OutputDir  string  `yaml:"output_dir" toml:"output_dir"`
	Wavelength float64 `yaml:"wavelength" toml:"wavelength"` // meters
	Filtering  bool    `yaml:"filtering" toml:"filtering"`
	FFT        string  `yaml:"fft" toml:"fft"` // dsp or gonum
	Seed       *uint64 `yaml:"seed,omitempty" toml:"seed,omitempty"`
	ImageSize  int     `yaml:"image_size" toml:"image_size"` // PNG edge length, pixels
	PSFFloor   float64 `yaml:"psf_floor" toml:"psf_floor"`
	Bands      int     `yaml:"bands" toml:"bands"` // wavelengths in a polychromatic run

	Pupils []PupilSpec `yaml:"pupils" toml:"pupils"`
}

// Default returns the built-in configuration: a 6.5 m strutted telescope
// and its clear reference, observed at 550 nm.
func Default() Config {
	return Config{
		OutputDir:  "out",
		Wavelength: 550e-9,
		Filtering:  true,
		FFT:        "dsp",
		ImageSize:  512,
		PSFFloor:   1e-3,
		Bands:      5,
		Pupils: []PupilSpec{
			{Name: "reference", Variant: "simple", Diameter: 6.5, Samples: 256, Padscale: 2},
			{Name: "telescope", Variant: "model", Diameter: 6.5, Samples: 256, Padscale: 2, B: pupil.Float(0.7)},
			{Name: "dirty", Variant: "dirty-cassegrain", Diameter: 6.5, Samples: 256, Padscale: 2, B: pupil.Float(0.7),
				Options: map[string]float64{pupil.OptPhaseScale: 2e-8}},
		},
	}
}

// Load builds a Config from the defaults and the file at path, if any, then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

// Validate checks ranges and names. All problems are reported together.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !(c.Wavelength > 0) || math.IsInf(c.Wavelength, 0) {
		bad("wavelength must be positive, got %g", c.Wavelength)
	}
	if c.ImageSize <= 0 {
		bad("image_size must be positive, got %d", c.ImageSize)
	}
	if c.PSFFloor < 0 || c.PSFFloor >= 1 {
		bad("psf_floor must be in [0, 1), got %g", c.PSFFloor)
	}
	if c.Bands < 1 {
		bad("bands must be at least 1, got %d", c.Bands)
	}
	if _, err := fourier.ByName(c.FFT); err != nil {
		bad("fft: %v", err)
	}
	if len(c.Pupils) == 0 {
		bad("no pupils configured")
	}

	seen := make(map[string]bool, len(c.Pupils))
	for i, p := range c.Pupils {
		if p.Name == "" {
			bad("pupils[%d]: name is required", i)
		} else if seen[p.Name] {
			bad("pupils[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if !slices.Contains(pupil.Variants, strings.ToLower(p.Variant)) {
			bad("pupils[%d]: unknown variant %q", i, p.Variant)
		}
		if p.Samples <= 0 {
			bad("pupils[%d]: samples must be positive, got %d", i, p.Samples)
		}
		if p.Diameter == 0 {
			bad("pupils[%d]: diameter is required", i)
		}
		switch strings.ToLower(strings.TrimSpace(p.Spectrum)) {
		case "", pupil.SpectrumVonKarman, pupil.SpectrumKolmogorov:
		default:
			bad("pupils[%d]: unknown spectrum %q", i, p.Spectrum)
		}
	}
	return errors.Join(errs...)
}

// Wavenumber returns 2π/λ for the configured wavelength.
func (c Config) Wavenumber() float64 { return 2 * math.Pi / c.Wavelength }

// Transformer returns the configured FFT backend.
func (c Config) Transformer() (fourier.Transformer, error) { return fourier.ByName(c.FFT) }

// Pupil looks up a pupil spec by name.
func (c Config) Pupil(name string) (PupilSpec, bool) {
	for _, p := range c.Pupils {
		if p.Name == name {
			return p, true
		}
	}
	return PupilSpec{}, false
}

// PupilConfig converts the spec into a pupil.Config. A spec without a seed
// inherits the global one.
func (p PupilSpec) PupilConfig(global *uint64) pupil.Config {
	seed := p.Seed
	if seed == nil {
		seed = global
	}
	return pupil.Config{
		Diameter:           p.Diameter,
		Samples:            p.Samples,
		Padscale:           p.Padscale,
		ObstructionRadius:  p.B,
		StrutWidthFraction: p.Struts,
		Turbulence:         p.Turbulence,
		Spectrum:           p.Spectrum,
		Seed:               seed,
		Options:            p.Options,
	}
}
