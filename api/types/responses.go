package types

// Status constants for API responses
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusQueued = "queued"
)

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// AssetsResponse for catalog listings
type AssetsResponse struct {
	Assets interface{} `json:"assets"`
	Count  int         `json:"count"`
}

// WaveformResponse carries a resolved viewport. Mins and Maxs are parallel
// slices, one entry per requested pixel column.
type WaveformResponse struct {
	Fingerprint string    `json:"fingerprint"`
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Width       int       `json:"width"`
	Duration    float64   `json:"duration"`
	SampleRate  int       `json:"sample_rate"`
	Mins        []float32 `json:"mins"`
	Maxs        []float32 `json:"maxs"`
}
