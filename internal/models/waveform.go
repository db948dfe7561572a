package models

import (
	"gorm.io/gorm"
)

// WaveformRecord persists a built pyramid so an unchanged file is not
// re-analyzed after a restart. LevelData is the pyramid's binary encoding.
type WaveformRecord struct {
	gorm.Model
	AssetFingerprint string `json:"asset_fingerprint" gorm:"not null;uniqueIndex"`
	LevelData        []byte `json:"-" gorm:"type:blob;not null"`
	BaseFactor       int    `json:"base_factor" gorm:"not null"`
	LevelMultiplier  int    `json:"level_multiplier" gorm:"not null"`
	LevelCount       int    `json:"level_count" gorm:"not null"`
	TotalFrames      int64  `json:"total_frames" gorm:"not null"`
	SampleRate       int    `json:"sample_rate" gorm:"not null"`
	Channels         int    `json:"channels" gorm:"not null"`
}

// TableName returns the table name for the WaveformRecord model
func (WaveformRecord) TableName() string {
	return "waveform_records"
}
