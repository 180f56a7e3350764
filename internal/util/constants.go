package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo = "video/"
	MimeAudio = "audio/"
	MimeImage = "image/"
)

// 上下文键
const (
	ContextUserKey = "user"
	ContextRoleKey = "role"
)

// 页面路由
const (
	LoginPath           = "/login"
	DashboardPath       = "/dashboard"
	PendingApprovalPath = "/pending-approval"
)

var (
	AllowedVideoExtensions = []string{".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm"}
	AllowedAudioExtensions = []string{".mp3", ".m4a", ".wav", ".ogg", ".webm", ".aac"}
	AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)
