package markers

import "errors"

var (
	// ErrMarkerNotFound indicates no marker exists for the given identifier
	ErrMarkerNotFound = errors.New("marker not found")

	// ErrInvalidRange indicates the marker's time range is outside the asset
	// or inverted
	ErrInvalidRange = errors.New("invalid marker time range")
)
