package randfield

import "errors"

var (
	// ErrInvalidSamples is returned by New for a non-positive size.
	ErrInvalidSamples = errors.New("randfield: samples must be positive")

	// ErrInvalidSpectrum is returned when a spectrum yields a non-finite
	// amplitude or when no spectrum is supplied.
	ErrInvalidSpectrum = errors.New("randfield: invalid spectrum")
)
