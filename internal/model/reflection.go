package model

import (
	"time"

	"gorm.io/datatypes"
)

// VoiceReflection 语音反思，可选关联模块与序列
// swagger:model
type VoiceReflection struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string         `gorm:"type:varchar(36);not null;index" json:"userId"`
	ModuleID        *string        `gorm:"type:varchar(36)" json:"moduleId"`
	SequenceID      *string        `gorm:"type:varchar(36)" json:"sequenceId"`
	AudioURL        string         `gorm:"size:512;not null" json:"audioUrl"`
	Transcript      string         `gorm:"type:text" json:"transcript"`
	DurationSeconds int            `gorm:"not null" json:"durationSeconds"`
	Tags            datatypes.JSON `json:"tags,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func (VoiceReflection) TableName() string {
	return "voice_reflections"
}
