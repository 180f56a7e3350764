package model

import "fmt"

// SequenceType 序列类型的封闭集合
type SequenceType string

const (
	SequenceIntroVideo          SequenceType = "intro_video"
	SequenceGiftSong            SequenceType = "gift_song"
	SequenceCanvaReflection     SequenceType = "canva_reflection"
	SequenceGoalSetting         SequenceType = "goal_setting"
	SequenceVideoUpload         SequenceType = "video_upload"
	SequenceInstructorResponse  SequenceType = "instructor_response"
	SequenceMovementIntegration SequenceType = "movement_integration"
	SequenceLoveIntegration     SequenceType = "love_integration"
	SequenceText                SequenceType = "text"
)

var sequenceTypes = []SequenceType{
	SequenceIntroVideo,
	SequenceGiftSong,
	SequenceCanvaReflection,
	SequenceGoalSetting,
	SequenceVideoUpload,
	SequenceInstructorResponse,
	SequenceMovementIntegration,
	SequenceLoveIntegration,
	SequenceText,
}

func ParseSequenceType(s string) (SequenceType, error) {
	for _, t := range sequenceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown sequence type %q", s)
}

// MediaKind 决定前端用哪种播放器渲染内容，未知类型按文本渲染
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaImage MediaKind = "image"
	MediaText  MediaKind = "text"
	MediaForm  MediaKind = "form"
)

func (t SequenceType) MediaKind() MediaKind {
	switch t {
	case SequenceIntroVideo, SequenceVideoUpload, SequenceInstructorResponse,
		SequenceMovementIntegration, SequenceLoveIntegration:
		return MediaVideo
	case SequenceGiftSong:
		return MediaAudio
	case SequenceCanvaReflection:
		return MediaImage
	case SequenceGoalSetting:
		return MediaForm
	}
	return MediaText
}

// swagger:model
type Sequence struct {
	UUIDBase
	ModuleID                   string       `gorm:"type:varchar(36);not null;uniqueIndex:idx_sequence_module_number" json:"moduleId"`
	SequenceNumber             int          `gorm:"not null;uniqueIndex:idx_sequence_module_number" json:"sequenceNumber"`
	Title                      string       `gorm:"size:255;not null" json:"title"`
	Description                string       `gorm:"type:text" json:"description"`
	SequenceType               SequenceType `gorm:"size:32;not null" json:"sequenceType"`
	ContentURL                 string       `gorm:"size:512" json:"contentUrl"`
	ContentText                string       `gorm:"type:text" json:"contentText"`
	ContentImageURL            string       `gorm:"size:512" json:"contentImageUrl"`
	Instructions               string       `gorm:"type:text" json:"instructions"`
	RequiresUpload             bool         `gorm:"default:false" json:"requiresUpload"`
	RequiresInstructorResponse bool         `gorm:"default:false" json:"requiresInstructorResponse"`
	MinVideoSeconds            *int         `json:"minVideoSeconds"`
	MaxVideoSeconds            *int         `json:"maxVideoSeconds"`
}

func (Sequence) TableName() string {
	return "sequences"
}

// Gated 学员无法自行完成的序列
func (s *Sequence) Gated() bool {
	return s.RequiresUpload || s.RequiresInstructorResponse
}

// DurationWindow 返回上传视频的时长窗口，未配置时使用默认值
func (s *Sequence) DurationWindow(defMin, defMax int) (int, int) {
	lo, hi := defMin, defMax
	if s.MinVideoSeconds != nil {
		lo = *s.MinVideoSeconds
	}
	if s.MaxVideoSeconds != nil {
		hi = *s.MaxVideoSeconds
	}
	return lo, hi
}
