package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Marker represents an annotated time region of an asset. A nil EndTime
// makes it a point marker; otherwise it spans [StartTime, EndTime).
type Marker struct {
	gorm.Model
	UUID             string   `json:"uuid" gorm:"uniqueIndex"`
	AssetFingerprint string   `json:"asset_fingerprint" gorm:"not null;index"`
	StartTime        float64  `json:"start_time" gorm:"not null"` // Seconds from start of asset
	EndTime          *float64 `json:"end_time,omitempty"`
	Label            string   `json:"label"`
	TagRefs          string   `json:"tag_refs"` // Comma-separated tag keys this marker references

	// Markers imported from the file's cue chunk keep their cue ID so a
	// rescan does not import them twice
	CueID uint32 `json:"cue_id,omitempty" gorm:"default:0"`
}

// BeforeCreate generates a UUID before creating a new marker
func (m *Marker) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == "" {
		m.UUID = uuid.New().String()
	}
	return nil
}

// IsRange reports whether the marker spans a time region
func (m *Marker) IsRange() bool {
	return m.EndTime != nil
}

// TableName returns the table name for the Marker model
func (Marker) TableName() string {
	return "markers"
}
