package model

type ModuleStatus string

const (
	ModuleDraft     ModuleStatus = "draft"
	ModulePublished ModuleStatus = "published"
	ModuleArchived  ModuleStatus = "archived"
)

// swagger:model
type Module struct {
	UUIDBase
	Title          string       `gorm:"size:255;not null" json:"title"`
	Subtitle       string       `gorm:"size:255" json:"subtitle"`
	Description    string       `gorm:"type:text" json:"description"`
	CoverImageURL  string       `gorm:"size:512" json:"coverImageUrl"`
	IntroVideoURL  string       `gorm:"size:512" json:"introVideoUrl"`
	ModuleOrder    int          `gorm:"index;not null" json:"moduleOrder"`
	Status         ModuleStatus `gorm:"size:16;default:'draft';not null" json:"status"`
	TotalSequences int          `gorm:"default:0" json:"totalSequences"`

	Sequences []Sequence `gorm:"foreignKey:ModuleID" json:"sequences,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

// ModuleProgressStatus 仪表盘上的模块汇总状态
type ModuleProgressStatus string

const (
	ModuleNotStarted ModuleProgressStatus = "not_started"
	ModuleInProgress ModuleProgressStatus = "in_progress"
	ModuleAwaiting   ModuleProgressStatus = "awaiting"
	ModuleCompleted  ModuleProgressStatus = "completed"
)
