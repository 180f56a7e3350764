package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationStepCompleted      NotificationType = "step_completed"
	NotificationSubmissionReceived NotificationType = "submission_received"
	NotificationReviewDigest       NotificationType = "review_digest"
)

// swagger:model
type Notification struct {
	ID            string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type          NotificationType `gorm:"size:32;not null;index" json:"type"`
	UserID        string           `gorm:"type:varchar(36);index" json:"userId"`
	UserEmail     string           `gorm:"size:255" json:"userEmail"`
	UserName      string           `gorm:"size:255" json:"userName"`
	ModuleID      string           `gorm:"type:varchar(36)" json:"moduleId"`
	ModuleTitle   string           `gorm:"size:255" json:"moduleTitle"`
	SequenceID    string           `gorm:"type:varchar(36)" json:"sequenceId"`
	SequenceTitle string           `gorm:"size:255" json:"sequenceTitle"`
	Message       string           `gorm:"type:text" json:"message"`
	Payload       datatypes.JSON   `json:"payload,omitempty"`
	Read          bool             `gorm:"default:false;index" json:"read"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
