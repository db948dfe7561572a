package models

// ViewState remembers where the user left a waveform: the visible time range
// and the playhead position, all in seconds. Zero value means "never viewed"
// and the renderer falls back to the full duration.
type ViewState struct {
	ZoomStart float64 `json:"zoom_start"`
	ZoomEnd   float64 `json:"zoom_end"`
	Position  float64 `json:"position"`
}

// IsZero reports whether the view state was never set
func (v ViewState) IsZero() bool {
	return v.ZoomStart == 0 && v.ZoomEnd == 0 && v.Position == 0
}
