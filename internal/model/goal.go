package model

import "time"

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
)

// UserGoal 目标设定序列中填写的意图
// swagger:model
type UserGoal struct {
	UUIDBase
	UserID        string     `gorm:"type:varchar(36);not null;index" json:"userId"`
	GoalText      string     `gorm:"type:text;not null" json:"goalText"`
	SmallAction   string     `gorm:"type:text" json:"smallAction"`
	TargetDate    time.Time  `gorm:"not null" json:"targetDate"`
	Status        GoalStatus `gorm:"size:16;default:'active';not null" json:"status"`
	ProgressNotes string     `gorm:"type:text" json:"progressNotes"`
}

func (UserGoal) TableName() string {
	return "user_goals"
}
