package pyramid

import "errors"

var (
	// ErrBuildCancelled is returned when a build's context is cancelled at a
	// block boundary. It is a normal outcome of switching assets, not a
	// failure to surface to the user.
	ErrBuildCancelled = errors.New("pyramid build cancelled")

	// ErrInvalidViewport is returned for empty time ranges or non-positive
	// pixel widths
	ErrInvalidViewport = errors.New("invalid viewport")

	// ErrCorruptEncoding is returned when persisted level data cannot be decoded
	ErrCorruptEncoding = errors.New("corrupt pyramid encoding")
)
