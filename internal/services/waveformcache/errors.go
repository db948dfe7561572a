package waveformcache

import "errors"

var (
	// ErrRecordNotFound is returned when no persisted pyramid exists
	ErrRecordNotFound = errors.New("waveform record not found")

	// ErrInvalidFingerprint is returned when a fingerprint is empty
	ErrInvalidFingerprint = errors.New("invalid asset fingerprint")

	// ErrNotCached is returned when a pin or resolve targets a pyramid that
	// is not resident in memory
	ErrNotCached = errors.New("pyramid not cached")
)
