package wavio

import "errors"

var (
	// ErrUnsupportedFormat is returned for non-PCM files or unrecognized bit depths
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrTruncated is returned when the declared data length exceeds the actual file size
	ErrTruncated = errors.New("audio data chunk is truncated")

	// ErrNotRIFF is returned when the file is not a RIFF/WAVE container
	ErrNotRIFF = errors.New("not a RIFF/WAVE file")

	// ErrReadOutOfBounds is returned when a frame read starts past the end of the data chunk
	ErrReadOutOfBounds = errors.New("frame read out of bounds")
)
