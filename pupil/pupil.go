// Package pupil models optical pupils: an aperture transmission P and a
// phase error W sampled on a configuration-space grid, rendered into a
// complex wavefront and propagated to a point-spread function.
package pupil

import (
	"fmt"
	"math/cmplx"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/psanker/pupilsim/filter"
	"github.com/psanker/pupilsim/fourier"
	"github.com/psanker/pupilsim/grid"
	"github.com/psanker/pupilsim/psf"
	"github.com/psanker/pupilsim/randfield"
)

// Wavefront is a rendered pupil, P*exp(-i*k*W), samples x samples.
type Wavefront = [][]complex128

// SmoothingSigma is the standard deviation, in grid units, of the filter
// applied by Render when filtering is requested.
const SmoothingSigma = 1.0

// Pupil is one pupil instance. It owns its sampling grid and, for turbulent
// variants, its random field; neither is shared with other instances.
type Pupil struct {
	id       string
	cfg      Config
	grid     *grid.Grid
	aperture Aperture
	fft      fourier.Transformer
	log      *zap.Logger
	spectrum randfield.Spectrum
	closed   atomic.Bool
}

// Option configures a Pupil.
type Option func(*Pupil)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pupil) {
		if l != nil {
			p.log = l
		}
	}
}

// WithTransformer selects the FFT backend used by PSF and the random field.
func WithTransformer(t fourier.Transformer) Option {
	return func(p *Pupil) {
		if t != nil {
			p.fft = t
		}
	}
}

// WithSpectrum overrides the spectrum of turbulent variants.
func WithSpectrum(s randfield.Spectrum) Option {
	return func(p *Pupil) { p.spectrum = s }
}

// New builds a pupil around a concrete aperture. A nil aperture is a
// programming error and fails with ErrNotImplemented.
func New(cfg Config, a Aperture, opts ...Option) (*Pupil, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: PFunc/WFunc", ErrNotImplemented)
	}
	p, err := newPupil(cfg, opts...)
	if err != nil {
		return nil, err
	}
	p.aperture = a
	return p, nil
}

func newPupil(cfg Config, opts ...Option) (*Pupil, error) {
	cfg = cfg.Normalize()
	g, err := grid.New(cfg.Diameter, cfg.Samples, cfg.Padscale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	p := &Pupil{
		id:   uuid.NewString(),
		cfg:  cfg,
		grid: g,
		fft:  fourier.Default,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(zap.String("pupil", p.id))
	p.log.Debug("created pupil",
		zap.Float64("diameter", cfg.Diameter),
		zap.Int("samples", cfg.Samples),
		zap.Float64("padscale", cfg.Padscale),
		zap.Float64("spatial_step", g.SpatialStep()),
		zap.Float64("frequency_step", g.FrequencyStep()))
	return p, nil
}

// NewSimple builds a clear circular pupil.
func NewSimple(cfg Config, opts ...Option) (*Pupil, error) {
	p, err := newPupil(cfg, opts...)
	if err != nil {
		return nil, err
	}
	p.aperture = &Simple{Radius: p.cfg.Radius()}
	return p, nil
}

// NewCassegrain builds an obstructed circular pupil. cfg.ObstructionRadius
// is required.
func NewCassegrain(cfg Config, opts ...Option) (*Pupil, error) {
	p, err := newPupil(cfg, opts...)
	if err != nil {
		return nil, err
	}
	c, err := p.cassegrain()
	if err != nil {
		return nil, err
	}
	p.aperture = &c
	return p, nil
}

// NewSquare builds a square pupil whose half-width equals the radius.
func NewSquare(cfg Config, opts ...Option) (*Pupil, error) {
	p, err := newPupil(cfg, opts...)
	if err != nil {
		return nil, err
	}
	p.aperture = &Square{Radius: p.cfg.Radius()}
	return p, nil
}

// NewModel builds the strutted Cassegrain pupil. With cfg.Turbulence set,
// W is drawn from a von Kármán field configured by the inner_scale,
// outer_scale, r0 and amplitude options, or from its Kolmogorov limit when
// cfg.Spectrum is SpectrumKolmogorov.
func NewModel(cfg Config, opts ...Option) (*Pupil, error) {
	p, err := newPupil(cfg, opts...)
	if err != nil {
		return nil, err
	}
	c, err := p.cassegrain()
	if err != nil {
		return nil, err
	}
	strut, err := p.cfg.strutFraction()
	if err != nil {
		return nil, err
	}
	m := &Model{Cassegrain: c, Strut: strut}
	if p.cfg.Turbulence {
		s, err := p.turbulence()
		if err != nil {
			return nil, err
		}
		m.screen, err = p.newScreen(s)
		if err != nil {
			return nil, err
		}
	}
	p.aperture = m
	return p, nil
}

// NewDirtySimple builds a circular pupil whose W is always a random field
// (inverse-square spectrum unless overridden by WithSpectrum).
func NewDirtySimple(cfg Config, opts ...Option) (*Pupil, error) {
	p, err := newPupil(cfg, opts...)
	if err != nil {
		return nil, err
	}
	screen, err := p.newScreen(randfield.InverseSquare())
	if err != nil {
		return nil, err
	}
	p.aperture = &DirtySimple{Simple: Simple{Radius: p.cfg.Radius()}, screen: screen}
	return p, nil
}

// NewDirtyCassegrain builds an obstructed pupil whose W is always a random
// field.
func NewDirtyCassegrain(cfg Config, opts ...Option) (*Pupil, error) {
	p, err := newPupil(cfg, opts...)
	if err != nil {
		return nil, err
	}
	c, err := p.cassegrain()
	if err != nil {
		return nil, err
	}
	screen, err := p.newScreen(randfield.InverseSquare())
	if err != nil {
		return nil, err
	}
	p.aperture = &DirtyCassegrain{Cassegrain: c, screen: screen}
	return p, nil
}

// Variants lists the names accepted by NewVariant.
var Variants = []string{"simple", "cassegrain", "square", "model", "dirty-simple", "dirty-cassegrain"}

// NewVariant builds a pupil by variant name.
func NewVariant(name string, cfg Config, opts ...Option) (*Pupil, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "simple":
		return NewSimple(cfg, opts...)
	case "cassegrain":
		return NewCassegrain(cfg, opts...)
	case "square":
		return NewSquare(cfg, opts...)
	case "model":
		return NewModel(cfg, opts...)
	case "dirty-simple", "dirtysimple":
		return NewDirtySimple(cfg, opts...)
	case "dirty-cassegrain", "dirtycassegrain":
		return NewDirtyCassegrain(cfg, opts...)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

func (p *Pupil) cassegrain() (Cassegrain, error) {
	b, err := p.cfg.obstruction()
	if err != nil {
		return Cassegrain{}, err
	}
	if b >= p.cfg.Radius() {
		p.log.Warn("obstruction covers the whole aperture",
			zap.Float64("b", b), zap.Float64("radius", p.cfg.Radius()))
	}
	return Cassegrain{Radius: p.cfg.Radius(), B: b}, nil
}

func (p *Pupil) vonKarman() randfield.VonKarman {
	v := randfield.DefaultVonKarman()
	v.InnerScale = p.cfg.Option(OptInnerScale, v.InnerScale)
	v.OuterScale = p.cfg.Option(OptOuterScale, v.OuterScale)
	v.R0 = p.cfg.Option(OptR0, v.R0)
	v.A = p.cfg.Option(OptAmplitude, v.A)
	return v
}

func (p *Pupil) turbulence() (randfield.Spectrum, error) {
	name, err := p.cfg.turbulence()
	if err != nil {
		return nil, err
	}
	v := p.vonKarman()
	if name == SpectrumKolmogorov {
		return randfield.Kolmogorov(v.A, v.R0), nil
	}
	return v.Spectrum(), nil
}

// newScreen prepares the lazily built random field. The spectrum is checked
// up front so a bad spectrum fails at construction, not mid-render.
func (p *Pupil) newScreen(def randfield.Spectrum) (*phaseScreen, error) {
	s := def
	if p.spectrum != nil {
		s = p.spectrum
	}
	var seed uint64
	if p.cfg.Seed != nil {
		seed = *p.cfg.Seed
	} else {
		seed = rand.Uint64()
	}
	screen := &phaseScreen{
		samples:  p.cfg.Samples,
		seed:     seed,
		spectrum: s,
		scale:    p.cfg.Option(OptPhaseScale, 1),
		opts: []randfield.Option{
			randfield.WithTransformer(p.fft),
			randfield.WithLogger(p.log),
		},
	}
	probe, err := randfield.New(p.cfg.Samples, seed)
	if err != nil {
		return nil, err
	}
	if _, err := probe.Amplitude(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	p.log.Info("random phase screen configured", zap.Uint64("seed", seed))
	return screen, nil
}

// ID returns the instance identifier used in logs.
func (p *Pupil) ID() string { return p.id }

// Config returns a copy of the configuration.
func (p *Pupil) Config() Config { return p.cfg.Normalize() }

// Grid returns the sampling grid.
func (p *Pupil) Grid() *grid.Grid { return p.grid }

// Aperture returns the variant implementation.
func (p *Pupil) Aperture() Aperture { return p.aperture }

// ConfigurationMesh returns the memoized spatial mesh (X, Y).
func (p *Pupil) ConfigurationMesh() (X, Y [][]float64) { return p.grid.Spatial() }

// FourierMesh returns the memoized spatial-frequency mesh (KX, KY).
func (p *Pupil) FourierMesh() (KX, KY [][]float64) { return p.grid.Fourier() }

// Radius returns diameter/2.
func (p *Pupil) Radius() float64 { return p.cfg.Radius() }

// NyquistFrequency returns samples / (4*diameter*padscale).
func (p *Pupil) NyquistFrequency() float64 { return p.grid.Nyquist() }

// PFunc evaluates the aperture transmission over x, y.
func (p *Pupil) PFunc(x, y [][]float64) ([][]float64, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	return p.aperture.PFunc(x, y), nil
}

// WFunc evaluates the phase error over x, y.
func (p *Pupil) WFunc(x, y [][]float64) ([][]float64, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	return p.aperture.WFunc(x, y)
}

// Render returns P*exp(-i*k*W) over the configuration mesh. With filtering,
// the real and imaginary channels are each smoothed by a Gaussian of
// SmoothingSigma grid units to soften the hard aperture edge.
func (p *Pupil) Render(k float64, filtering bool) (Wavefront, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	X, Y := p.grid.Spatial()
	P := p.aperture.PFunc(X, Y)
	W, err := p.aperture.WFunc(X, Y)
	if err != nil {
		return nil, fmt.Errorf("phase error: %w", err)
	}

	out := make(Wavefront, len(P))
	for i := range P {
		out[i] = make([]complex128, len(P[i]))
		for j := range P[i] {
			if P[i][j] == 0 {
				continue
			}
			out[i][j] = complex(P[i][j], 0) * cmplx.Exp(complex(0, -k*W[i][j]))
		}
	}
	if filtering {
		out = filter.SmoothComplex(out, SmoothingSigma)
	}
	return out, nil
}

// PSF renders the pupil and runs the PSF pipeline. The image is left
// unnormalized; unless noshift is set, zero frequency sits at the center.
func (p *Pupil) PSF(k float64, filtering, noshift bool) (*psf.Image, error) {
	w, err := p.Render(k, filtering)
	if err != nil {
		return nil, err
	}
	return &psf.Image{
		Data:    psf.Compute(w, p.fft, noshift),
		Extent:  p.grid.FourierExtent(),
		Shifted: !noshift,
	}, nil
}

// Regenerate discards a cached random realization so the next render draws
// a new one. It is a no-op for variants without a random field.
func (p *Pupil) Regenerate() {
	if r, ok := p.aperture.(regenerator); ok {
		r.regenerate()
		p.log.Debug("random phase screen reset")
	}
}

// Close releases cached grids and random fields. The pupil cannot be
// rendered afterwards.
func (p *Pupil) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.grid.Release()
	if r, ok := p.aperture.(regenerator); ok {
		r.release()
	}
	p.log.Debug("closed pupil")
}
