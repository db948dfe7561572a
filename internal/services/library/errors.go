package library

import "errors"

var (
	// ErrAssetNotFound is returned when no catalog entry matches
	ErrAssetNotFound = errors.New("asset not found")
)
