package models

import (
	"time"

	"gorm.io/gorm"
)

// Asset represents one audio file known to the library. The fingerprint is
// derived from the file content, so a renamed file keeps its identity while
// a re-recorded file gets a new one.
type Asset struct {
	gorm.Model
	Fingerprint string `json:"fingerprint" gorm:"not null;uniqueIndex"`
	Path        string `json:"path" gorm:"not null;index"`

	SampleRate  int   `json:"sample_rate" gorm:"not null"`
	Channels    int   `json:"channels" gorm:"not null"`
	BitDepth    int   `json:"bit_depth" gorm:"not null"`
	TotalFrames int64 `json:"total_frames" gorm:"not null"`

	FileSize    int64     `json:"file_size"`
	FileModTime time.Time `json:"file_mod_time"`

	// Read-only BWF description, when the file carries a bext chunk
	BextDescription string `json:"bext_description,omitempty"`

	LastScannedAt time.Time `json:"last_scanned_at"`
}

// Duration returns the asset length in seconds
func (a *Asset) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.TotalFrames) / float64(a.SampleRate)
}

// TableName returns the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}
