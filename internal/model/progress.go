package model

import "time"

// SequenceStatus 进度条目的状态
type SequenceStatus string

const (
	StatusLocked           SequenceStatus = "locked"
	StatusUnlocked         SequenceStatus = "unlocked"
	StatusCompleted        SequenceStatus = "completed"
	StatusAwaitingResponse SequenceStatus = "awaiting_response"
)

func (s SequenceStatus) Valid() bool {
	switch s {
	case StatusLocked, StatusUnlocked, StatusCompleted, StatusAwaitingResponse:
		return true
	}
	return false
}

// Settled 已完成或等待审核的状态不会被解锁写入覆盖
func (s SequenceStatus) Settled() bool {
	return s == StatusCompleted || s == StatusAwaitingResponse
}

// ProgressEntry (user, module, sequence) 唯一
// swagger:model
type ProgressEntry struct {
	UUIDBase
	UserID      string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_triple,priority:1" json:"userId"`
	ModuleID    string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_triple,priority:2" json:"moduleId"`
	SequenceID  string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_triple,priority:3" json:"sequenceId"`
	Status      SequenceStatus `gorm:"size:24;not null;default:'locked'" json:"status"`
	CompletedAt *time.Time     `json:"completedAt"`
}

func (ProgressEntry) TableName() string {
	return "progress_entries"
}
