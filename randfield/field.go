// Package randfield synthesizes 2D Gaussian random fields whose power
// spectrum follows a supplied spectral function, used as turbulence-like
// phase screens.
package randfield

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/psanker/pupilsim/fourier"
)

// Epsilon is the threshold below which squared frequencies and spectral
// amplitudes are treated as zero.
const Epsilon = 1e-15

// Spectrum is a spectral function S(kx, ky) over integer frequency bins.
type Spectrum func(kx, ky float64) float64

// Field generates realizations over a samples x samples grid. A Field keeps
// at most one cached realization; see Realization.
type Field struct {
	samples int
	seed    uint64
	fft     fourier.Transformer
	log     *zap.Logger

	kx, ky [][]float64

	mu     sync.Mutex
	normal distuv.Normal
	cached [][]complex128
}

// Option configures a Field.
type Option func(*Field)

// WithTransformer selects the FFT backend.
func WithTransformer(t fourier.Transformer) Option {
	return func(f *Field) {
		if t != nil {
			f.fft = t
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Field) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates a Field bound to samples with a deterministic noise stream
// derived from seed.
func New(samples int, seed uint64, opts ...Option) (*Field, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSamples, samples)
	}
	f := &Field{
		samples: samples,
		seed:    seed,
		fft:     fourier.Default,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.normal = distuv.Normal{
		Mu:    0,
		Sigma: 1,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}

	// Integer bins -samples/2 .. samples-samples/2-1, centered like fourier.Shift.
	f.kx = make([][]float64, samples)
	f.ky = make([][]float64, samples)
	half := samples / 2
	for i := 0; i < samples; i++ {
		f.kx[i] = make([]float64, samples)
		f.ky[i] = make([]float64, samples)
		for j := 0; j < samples; j++ {
			f.kx[i][j] = float64(j - half)
			f.ky[i][j] = float64(i - half)
		}
	}
	return f, nil
}

// Samples returns the grid size per axis.
func (f *Field) Samples() int { return f.samples }

// Seed returns the seed of the noise stream.
func (f *Field) Seed() uint64 { return f.seed }

// Mesh returns the centered integer frequency mesh.
func (f *Field) Mesh() (KX, KY [][]float64) { return f.kx, f.ky }

// Amplitude evaluates |S| over the centered mesh. The zero-frequency bin and
// amplitudes below Epsilon are set to 0; S is not called at the zero bin.
func (f *Field) Amplitude(s Spectrum) ([][]float64, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil spectrum", ErrInvalidSpectrum)
	}
	amp := make([][]float64, f.samples)
	for i := range amp {
		amp[i] = make([]float64, f.samples)
		for j := range amp[i] {
			kx, ky := f.kx[i][j], f.ky[i][j]
			if kx*kx+ky*ky < Epsilon {
				continue
			}
			a := math.Abs(s(kx, ky))
			if math.IsNaN(a) || math.IsInf(a, 0) {
				return nil, fmt.Errorf("%w: amplitude %v at (%g, %g)", ErrInvalidSpectrum, a, kx, ky)
			}
			if a < Epsilon {
				continue
			}
			amp[i][j] = a
		}
	}
	return amp, nil
}

// Generate draws a new realization: white unit-variance noise is
// transformed, weighted by the spectral amplitude, transformed back and
// recentered. It does not touch the cached realization.
func (f *Field) Generate(s Spectrum) ([][]complex128, error) {
	amp, err := f.Amplitude(s)
	if err != nil {
		return nil, err
	}
	// Amplitude is laid out centered; bring it into transform order.
	amp = fourier.IShift(amp)

	noise := make([][]complex128, f.samples)
	f.mu.Lock()
	for i := range noise {
		noise[i] = make([]complex128, f.samples)
		for j := range noise[i] {
			noise[i][j] = complex(f.normal.Rand(), 0)
		}
	}
	f.mu.Unlock()

	spec := f.fft.FFT2(noise)
	for i := range spec {
		for j := range spec[i] {
			spec[i][j] *= complex(amp[i][j], 0)
		}
	}
	return fourier.Shift(f.fft.IFFT2(spec)), nil
}

// Realization returns the cached realization, generating it on first use.
// Every later call returns the same array until Reset is called, so repeated
// renders of one mirror stay comparable.
func (f *Field) Realization(s Spectrum) ([][]complex128, error) {
	f.mu.Lock()
	cached := f.cached
	f.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	field, err := f.Generate(s)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached == nil {
		f.cached = field
		f.log.Debug("generated random field realization",
			zap.Int("samples", f.samples),
			zap.Uint64("seed", f.seed))
	}
	return f.cached, nil
}

// Reset drops the cached realization; the next Realization draws a new one
// from the continuing noise stream.
func (f *Field) Reset() {
	f.mu.Lock()
	f.cached = nil
	f.mu.Unlock()
}

// PowerSpectrum returns |FFT2(field)|^2 in transform order.
func PowerSpectrum(field [][]complex128, t fourier.Transformer) [][]float64 {
	if t == nil {
		t = fourier.Default
	}
	spec := t.FFT2(field)
	out := make([][]float64, len(spec))
	for i := range spec {
		out[i] = make([]float64, len(spec[i]))
		for j, v := range spec[i] {
			out[i][j] = real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return out
}

// Real returns the real part of a field.
func Real(field [][]complex128) [][]float64 {
	out := make([][]float64, len(field))
	for i := range field {
		out[i] = make([]float64, len(field[i]))
		for j, v := range field[i] {
			out[i][j] = real(v)
		}
	}
	return out
}
