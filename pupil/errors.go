package pupil

import "errors"

var (
	// ErrConfig marks an invalid or missing configuration parameter.
	ErrConfig = errors.New("pupil: configuration error")

	// ErrNotImplemented is returned when a pupil is built without a concrete
	// aperture providing PFunc and WFunc.
	ErrNotImplemented = errors.New("pupil: aperture capability not implemented")

	// ErrClosed is returned by operations on a pupil after Close.
	ErrClosed = errors.New("pupil: instance closed")

	// ErrUnknownVariant is returned by NewVariant for an unrecognized name.
	ErrUnknownVariant = errors.New("pupil: unknown variant")
)
