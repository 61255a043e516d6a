package psf

import (
	"context"
	"errors"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ErrNoWavenumbers is returned by Polychromatic for an empty band.
var ErrNoWavenumbers = errors.New("psf: no wavenumbers")

// VisibleSpectrum returns 2π/λ for n wavelengths spaced evenly over
// 400–700 nm, in inverse meters.
func VisibleSpectrum(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{2 * math.Pi / 550e-9}
	}
	lambdas := floats.Span(make([]float64, n), 400e-9, 700e-9)
	ks := make([]float64, n)
	for i, l := range lambdas {
		ks[i] = 2 * math.Pi / l
	}
	return ks
}

// Polychromatic averages the PSFs of src over ks. Wavenumbers are evaluated
// concurrently, at most GOMAXPROCS at a time; src must be safe for
// concurrent PSF calls.
func Polychromatic(ctx context.Context, src Source, ks []float64, filtering bool) (*Image, error) {
	if len(ks) == 0 {
		return nil, ErrNoWavenumbers
	}
	images := make([]*Image, len(ks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, k := range ks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := src.PSF(k, filtering, false)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	first := images[0]
	sum := make([][]float64, len(first.Data))
	for i := range sum {
		sum[i] = make([]float64, len(first.Data[i]))
	}
	for _, img := range images {
		for i := range sum {
			floats.Add(sum[i], img.Data[i])
		}
	}
	inv := 1 / float64(len(images))
	for i := range sum {
		floats.Scale(inv, sum[i])
	}
	return &Image{Data: sum, Extent: first.Extent, Shifted: first.Shifted}, nil
}
