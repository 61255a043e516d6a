package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/psanker/pupilsim/pupil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	for _, p := range cfg.Pupils {
		if _, err := pupil.NewVariant(p.Variant, p.PupilConfig(nil)); err != nil {
			t.Errorf("default pupil %q: %v", p.Name, err)
		}
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Wavelength != 550e-9 || len(cfg.Pupils) != len(Default().Pupils) {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
output_dir: plots
wavelength: 6.5e-7
filtering: false
fft: gonum
seed: 42
image_size: 256
log:
  development: true
  level: debug
pupils:
  - name: hubble
    variant: model
    diameter: 2.4
    samples: 128
    padscale: 2
    b: 0.3
    struts: 0.02
    turbulence: true
    spectrum: kolmogorov
    options:
      r0: 0.1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutputDir != "plots" || cfg.Wavelength != 6.5e-7 || cfg.Filtering || cfg.FFT != "gonum" {
		t.Errorf("top-level fields = %+v", cfg)
	}
	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Errorf("Seed = %v, want 42", cfg.Seed)
	}
	if !cfg.Log.Development || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	// Unset fields keep their defaults.
	if cfg.Bands != 5 || cfg.PSFFloor != 1e-3 {
		t.Errorf("defaults lost: bands=%d psf_floor=%g", cfg.Bands, cfg.PSFFloor)
	}
	if len(cfg.Pupils) != 1 {
		t.Fatalf("got %d pupils, want 1", len(cfg.Pupils))
	}
	p := cfg.Pupils[0]
	if p.Name != "hubble" || p.B == nil || *p.B != 0.3 || p.Struts == nil || *p.Struts != 0.02 || !p.Turbulence {
		t.Errorf("pupil = %+v", p)
	}
	if p.Options["r0"] != 0.1 {
		t.Errorf("options = %v", p.Options)
	}

	pc := p.PupilConfig(cfg.Seed)
	if pc.Seed == nil || *pc.Seed != 42 {
		t.Error("pupil did not inherit the global seed")
	}
	if pc.Spectrum != pupil.SpectrumKolmogorov {
		t.Errorf("pupil spectrum = %q, want kolmogorov", pc.Spectrum)
	}
	if pc.Option(pupil.OptR0, 0) != 0.1 {
		t.Error("pupil options not carried over")
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "run.toml", `
wavelength = 5.0e-7
bands = 3

[[pupils]]
name = "plain"
variant = "simple"
diameter = 1.0
samples = 64
padscale = 1.5
seed = 7
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Wavelength != 5e-7 || cfg.Bands != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	p, ok := cfg.Pupil("plain")
	if !ok {
		t.Fatal("pupil plain not found")
	}
	if p.Padscale != 1.5 || p.Seed == nil || *p.Seed != 7 {
		t.Errorf("pupil = %+v", p)
	}
	if _, ok := cfg.Pupil("missing"); ok {
		t.Error("found a pupil that does not exist")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeFile(t, "run.json", "{}")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("json error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := Load(writeFile(t, "bad.yaml", "wavelength: [1")); err == nil {
		t.Error("malformed yaml accepted")
	}
	if _, err := Load(writeFile(t, "neg.yaml", "wavelength: -1")); !errors.Is(err, ErrInvalid) {
		t.Errorf("negative wavelength error = %v, want ErrInvalid", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero wavelength", func(c *Config) { c.Wavelength = 0 }},
		{"nan wavelength", func(c *Config) { c.Wavelength = math.NaN() }},
		{"zero image", func(c *Config) { c.ImageSize = 0 }},
		{"floor too high", func(c *Config) { c.PSFFloor = 1 }},
		{"no bands", func(c *Config) { c.Bands = 0 }},
		{"unknown fft", func(c *Config) { c.FFT = "fftw" }},
		{"no pupils", func(c *Config) { c.Pupils = nil }},
		{"duplicate name", func(c *Config) { c.Pupils[1].Name = c.Pupils[0].Name }},
		{"missing name", func(c *Config) { c.Pupils[0].Name = "" }},
		{"unknown variant", func(c *Config) { c.Pupils[0].Variant = "hexagon" }},
		{"zero samples", func(c *Config) { c.Pupils[0].Samples = 0 }},
		{"zero diameter", func(c *Config) { c.Pupils[0].Diameter = 0 }},
		{"unknown spectrum", func(c *Config) { c.Pupils[1].Spectrum = "gaussian" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestWavenumber(t *testing.T) {
	cfg := Default()
	if want := 2 * math.Pi / 550e-9; cfg.Wavenumber() != want {
		t.Errorf("Wavenumber() = %v, want %v", cfg.Wavenumber(), want)
	}
	if _, err := cfg.Transformer(); err != nil {
		t.Errorf("Transformer(): %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PUPILSIM_OUTPUT_DIR", "/tmp/psf")
	t.Setenv("PUPILSIM_WAVELENGTH", "7e-7")
	t.Setenv("PUPILSIM_FILTERING", "off")
	t.Setenv("PUPILSIM_FFT", "gonum")
	t.Setenv("PUPILSIM_SEED", "99")
	t.Setenv("PUPILSIM_IMAGE_SIZE", "128")
	t.Setenv("PUPILSIM_BANDS", "not-a-number")
	t.Setenv("PUPILSIM_LOG_DEV", "yes")

	cfg := Default()
	ApplyEnv(&cfg)
	if cfg.OutputDir != "/tmp/psf" || cfg.Wavelength != 7e-7 || cfg.Filtering || cfg.FFT != "gonum" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Seed == nil || *cfg.Seed != 99 {
		t.Errorf("Seed = %v", cfg.Seed)
	}
	if cfg.ImageSize != 128 {
		t.Errorf("ImageSize = %d", cfg.ImageSize)
	}
	if cfg.Bands != 5 {
		t.Errorf("unparseable BANDS changed the value to %d", cfg.Bands)
	}
	if !cfg.Log.Development {
		t.Error("LOG_DEV not applied")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "PUPILSIM_TEST_DOTENV=from-file\n")
	t.Setenv("PUPILSIM_TEST_DOTENV", "")
	os.Unsetenv("PUPILSIM_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("PUPILSIM_TEST_DOTENV"); got != "from-file" {
		t.Errorf("PUPILSIM_TEST_DOTENV = %q", got)
	}
}
