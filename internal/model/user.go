package model

type UserRole string

const (
	Student    UserRole = "student"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

// CanReview 管理员与导师可以审核学员提交
func (r UserRole) CanReview() bool {
	return r == Admin || r == Instructor
}

// User 与外部认证平台的用户一一对应，ID 即令牌中的 sub
// swagger:model User
type User struct {
	UUIDBase
	Email     string   `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName  string   `gorm:"size:255" json:"fullName"`
	AvatarURL string   `gorm:"size:512" json:"avatarUrl"`
	Role      UserRole `gorm:"size:16;default:'student';not null" json:"role"`
	Approved  bool     `gorm:"default:false" json:"approved"`
	Bio       string   `gorm:"type:text" json:"bio"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName 没有姓名时使用邮箱
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}
