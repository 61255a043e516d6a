package pupil

import (
	"fmt"
	"math"
	"sync"

	"github.com/psanker/pupilsim/randfield"
)

// Aperture is the capability every pupil variant provides: the transmission
// P(x, y) and the phase error W(x, y), both evaluated over a mesh and
// returned with the mesh's shape. PFunc must be a pure function of position.
type Aperture interface {
	PFunc(x, y [][]float64) [][]float64
	WFunc(x, y [][]float64) ([][]float64, error)
}

// regenerator is implemented by apertures holding a random phase screen.
type regenerator interface {
	regenerate()
	release()
}

// Simple is a clear circular aperture: P = 1 where x²+y² <= r², W = 0.
type Simple struct {
	Radius float64
}

func (a *Simple) PFunc(x, y [][]float64) [][]float64 {
	r2 := a.Radius * a.Radius
	return mask(x, y, func(xv, yv float64) bool {
		return xv*xv+yv*yv <= r2
	})
}

func (a *Simple) WFunc(x, y [][]float64) ([][]float64, error) {
	return zeros(x), nil
}

// Cassegrain is a circular aperture with a central obstruction of radius B.
// Points on the obstruction edge are blocked.
type Cassegrain struct {
	Radius float64
	B      float64
}

func (a *Cassegrain) PFunc(x, y [][]float64) [][]float64 {
	return mask(x, y, a.open)
}

func (a *Cassegrain) open(xv, yv float64) bool {
	r2 := xv*xv + yv*yv
	return r2 <= a.Radius*a.Radius && r2 > a.B*a.B
}

func (a *Cassegrain) WFunc(x, y [][]float64) ([][]float64, error) {
	return zeros(x), nil
}

// Square is an axis-aligned square aperture of half-width Radius.
type Square struct {
	Radius float64
}

func (a *Square) PFunc(x, y [][]float64) [][]float64 {
	return mask(x, y, func(xv, yv float64) bool {
		return math.Abs(xv) <= a.Radius && math.Abs(yv) <= a.Radius
	})
}

func (a *Square) WFunc(x, y [][]float64) ([][]float64, error) {
	return zeros(x), nil
}

// Model is the strutted Cassegrain telescope: the obstructed aperture with
// two strips |x| < Strut*Radius and |y| < Strut*Radius blocked. With a
// screen, W comes from a von Kármán random field; otherwise W = 0.
type Model struct {
	Cassegrain
	Strut  float64
	screen *phaseScreen
}

func (a *Model) PFunc(x, y [][]float64) [][]float64 {
	half := a.Strut * a.Radius
	return mask(x, y, func(xv, yv float64) bool {
		if math.Abs(xv) < half || math.Abs(yv) < half {
			return false
		}
		return a.open(xv, yv)
	})
}

func (a *Model) WFunc(x, y [][]float64) ([][]float64, error) {
	if a.screen == nil {
		return zeros(x), nil
	}
	return a.screen.phase(len(x))
}

func (a *Model) regenerate() {
	if a.screen != nil {
		a.screen.reset()
	}
}

func (a *Model) release() {
	if a.screen != nil {
		a.screen.drop()
	}
}

// DirtySimple is Simple with W always drawn from a random field.
type DirtySimple struct {
	Simple
	screen *phaseScreen
}

func (a *DirtySimple) WFunc(x, y [][]float64) ([][]float64, error) {
	return a.screen.phase(len(x))
}

func (a *DirtySimple) regenerate() { a.screen.reset() }
func (a *DirtySimple) release()    { a.screen.drop() }

// DirtyCassegrain is Cassegrain with W always drawn from a random field.
type DirtyCassegrain struct {
	Cassegrain
	screen *phaseScreen
}

func (a *DirtyCassegrain) WFunc(x, y [][]float64) ([][]float64, error) {
	return a.screen.phase(len(x))
}

func (a *DirtyCassegrain) regenerate() { a.screen.reset() }
func (a *DirtyCassegrain) release()    { a.screen.drop() }

// phaseScreen lazily owns the random field of one pupil and the phase map
// derived from its cached realization.
type phaseScreen struct {
	samples  int
	seed     uint64
	spectrum randfield.Spectrum
	scale    float64
	opts     []randfield.Option

	mu    sync.Mutex
	field *randfield.Field
	w     [][]float64
}

// phase returns scale*Re(realization), building the field on first use.
// Repeated calls return the same array until reset.
func (s *phaseScreen) phase(rows int) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rows != s.samples {
		return nil, fmt.Errorf("%w: mesh has %d rows, random field has %d samples", ErrConfig, rows, s.samples)
	}
	if s.w != nil {
		return s.w, nil
	}
	if s.field == nil {
		f, err := randfield.New(s.samples, s.seed, s.opts...)
		if err != nil {
			return nil, err
		}
		s.field = f
	}
	r, err := s.field.Realization(s.spectrum)
	if err != nil {
		return nil, err
	}
	w := randfield.Real(r)
	if s.scale != 1 {
		for i := range w {
			for j := range w[i] {
				w[i][j] *= s.scale
			}
		}
	}
	s.w = w
	return s.w, nil
}

func (s *phaseScreen) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = nil
	if s.field != nil {
		s.field.Reset()
	}
}

func (s *phaseScreen) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = nil
	s.field = nil
}

// mask evaluates inside over the mesh, writing 1 or 0.
func mask(x, y [][]float64, inside func(xv, yv float64) bool) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		out[i] = make([]float64, len(x[i]))
		for j := range x[i] {
			if inside(x[i][j], y[i][j]) {
				out[i][j] = 1
			}
		}
	}
	return out
}

func zeros(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i := range x {
		out[i] = make([]float64, len(x[i]))
	}
	return out
}
