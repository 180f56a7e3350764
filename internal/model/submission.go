package model

import "time"

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionReviewed SubmissionStatus = "reviewed"
	SubmissionRejected SubmissionStatus = "rejected"
)

// VideoSubmission 学员针对需审核序列上传的视频
// swagger:model
type VideoSubmission struct {
	ID              string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string           `gorm:"type:varchar(36);not null;index:idx_submission_user_seq" json:"userId"`
	ModuleID        string           `gorm:"type:varchar(36);not null" json:"moduleId"`
	SequenceID      string           `gorm:"type:varchar(36);not null;index:idx_submission_user_seq" json:"sequenceId"`
	VideoURL        string           `gorm:"size:512;not null" json:"videoUrl"`
	DurationSeconds *int             `json:"durationSeconds"`
	ThumbnailURL    string           `gorm:"size:512" json:"thumbnailUrl"`
	Status          SubmissionStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	SubmittedAt     time.Time        `gorm:"not null;index" json:"submittedAt"`
	ReviewedAt      *time.Time       `json:"reviewedAt"`
}

func (VideoSubmission) TableName() string {
	return "video_submissions"
}

// InstructorResponse 导师对某次提交的回应，只追加不修改
// swagger:model
type InstructorResponse struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SubmissionID      string    `gorm:"type:varchar(36);not null;index" json:"submissionId"`
	InstructorID      string    `gorm:"type:varchar(36);not null" json:"instructorId"`
	UserID            string    `gorm:"type:varchar(36);not null;index:idx_response_user_seq" json:"userId"`
	ModuleID          string    `gorm:"type:varchar(36);not null" json:"moduleId"`
	SequenceID        string    `gorm:"type:varchar(36);not null;index:idx_response_user_seq" json:"sequenceId"`
	ResponseVideoURL  string    `gorm:"size:512" json:"responseVideoUrl"`
	ResponseAudioURL  string    `gorm:"size:512" json:"responseAudioUrl"`
	Message           string    `gorm:"type:text" json:"message"`
	NextMeditationURL string    `gorm:"size:512" json:"nextMeditationUrl"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (InstructorResponse) TableName() string {
	return "instructor_responses"
}
