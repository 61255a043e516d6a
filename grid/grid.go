// Package grid builds and memoizes the configuration-space and Fourier-space
// coordinate meshes shared by a pupil instance.
package grid

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidGeometry is returned for non-positive sizes or a padscale below 1.
var ErrInvalidGeometry = errors.New("grid: invalid geometry")

// Grid holds the sampling geometry of one pupil. Meshes are computed on
// first access and reused for the lifetime of the Grid.
type Grid struct {
	diameter float64
	samples  int
	padscale float64

	mu     sync.Mutex
	x, y   [][]float64 // configuration space (samples x samples)
	kx, ky [][]float64 // Fourier space, zero frequency at samples/2
}

// New validates the geometry and returns an empty Grid.
func New(diameter float64, samples int, padscale float64) (*Grid, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("%w: samples must be positive, got %d", ErrInvalidGeometry, samples)
	}
	if diameter <= 0 {
		return nil, fmt.Errorf("%w: diameter must be positive, got %g", ErrInvalidGeometry, diameter)
	}
	if padscale < 1 {
		return nil, fmt.Errorf("%w: padscale must be >= 1, got %g", ErrInvalidGeometry, padscale)
	}
	return &Grid{diameter: diameter, samples: samples, padscale: padscale}, nil
}

// Diameter returns the aperture diameter the grid was built for.
func (g *Grid) Diameter() float64 { return g.diameter }

// Samples returns the number of points per axis.
func (g *Grid) Samples() int { return g.samples }

// Padscale returns the ratio of the domain half-width to the diameter.
func (g *Grid) Padscale() float64 { return g.padscale }

// HalfWidth is the half-extent padscale*diameter of the sampled domain.
func (g *Grid) HalfWidth() float64 { return g.padscale * g.diameter }

// Nyquist returns samples / (4*diameter*padscale).
func (g *Grid) Nyquist() float64 {
	return float64(g.samples) / (4 * g.diameter * g.padscale)
}

// SpatialStep is the distance between neighbouring configuration-space
// samples. A single-sample grid reports the full domain width.
func (g *Grid) SpatialStep() float64 {
	if g.samples == 1 {
		return 2 * g.HalfWidth()
	}
	return 2 * g.HalfWidth() / float64(g.samples-1)
}

// FrequencyStep is the spacing of the Fourier axis, 2*Nyquist/samples.
func (g *Grid) FrequencyStep() float64 {
	return 2 * g.Nyquist() / float64(g.samples)
}

// Spatial returns the configuration-space mesh with xy indexing:
// X[i][j] is the x coordinate of column j, Y[i][j] the y coordinate of row i.
func (g *Grid) Spatial() (X, Y [][]float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.x == nil || g.y == nil {
		axis := g.spatialAxis()
		g.x, g.y = mesh(axis, axis)
	}
	return g.x, g.y
}

// Fourier returns the spatial-frequency mesh matching a shifted transform of
// a samples x samples array: index 0 holds the most negative frequency and
// index samples/2 holds zero.
func (g *Grid) Fourier() (KX, KY [][]float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.kx == nil || g.ky == nil {
		axis := g.frequencyAxis()
		g.kx, g.ky = mesh(axis, axis)
	}
	return g.kx, g.ky
}

// SpatialExtent returns [xmin, xmax, ymin, ymax] of the configuration mesh.
func (g *Grid) SpatialExtent() [4]float64 {
	h := g.HalfWidth()
	return [4]float64{-h, h, -h, h}
}

// FourierExtent returns [kxmin, kxmax, kymin, kymax] of the Fourier mesh.
func (g *Grid) FourierExtent() [4]float64 {
	axis := g.frequencyAxis()
	lo, hi := axis[0], axis[len(axis)-1]
	return [4]float64{lo, hi, lo, hi}
}

// Release drops the cached meshes. They are rebuilt on the next access.
func (g *Grid) Release() {
	g.mu.Lock()
	g.x, g.y, g.kx, g.ky = nil, nil, nil, nil
	g.mu.Unlock()
}

func (g *Grid) spatialAxis() []float64 {
	axis := make([]float64, g.samples)
	if g.samples == 1 {
		return axis // single point at the origin
	}
	h := g.HalfWidth()
	// floats.Span fills len(axis) points from -h to h inclusive.
	floats.Span(axis, -h, h)
	// Span accumulates rounding differently at each end; force exact
	// antisymmetry so the mesh mirrors cleanly about the origin.
	n := g.samples
	for j := 0; j < n/2; j++ {
		v := (axis[n-1-j] - axis[j]) / 2
		axis[j], axis[n-1-j] = -v, v
	}
	if n%2 == 1 {
		axis[n/2] = 0
	}
	axis[0], axis[n-1] = -h, h
	return axis
}

func (g *Grid) frequencyAxis() []float64 {
	axis := make([]float64, g.samples)
	df := g.FrequencyStep()
	half := g.samples / 2
	for j := range axis {
		axis[j] = float64(j-half) * df
	}
	return axis
}

// mesh expands two axes into 2D arrays with xy indexing.
func mesh(xs, ys []float64) (X, Y [][]float64) {
	X = make([][]float64, len(ys))
	Y = make([][]float64, len(ys))
	for i, yv := range ys {
		X[i] = make([]float64, len(xs))
		Y[i] = make([]float64, len(xs))
		copy(X[i], xs)
		for j := range Y[i] {
			Y[i][j] = yv
		}
	}
	return X, Y
}
