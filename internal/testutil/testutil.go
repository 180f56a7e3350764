// Package testutil 测试用的 sqlite 数据库与种子数据
package testutil

import (
	"path/filepath"
	"testing"
	"time"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/util"
	"yoi_portal_backend/pkg/database"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const JWTSecret = "test-secret-with-at-least-32-characters!"

// NewDB 每个测试使用独立的临时 sqlite 文件并完成迁移
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email string, role model.UserRole, approved bool) *model.User {
	t.Helper()
	u := &model.User{
		Email:    email,
		Role:     role,
		Approved: approved,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeqSpec 种子序列的配置
type SeqSpec struct {
	Title              string
	Type               model.SequenceType
	RequiresUpload     bool
	RequiresInstructor bool
}

// CreateModule 按顺序创建序列，sequence_number 从 1 开始
func CreateModule(t *testing.T, db *gorm.DB, title string, order int, specs ...SeqSpec) (*model.Module, []model.Sequence) {
	t.Helper()
	m := &model.Module{
		Title:          title,
		ModuleOrder:    order,
		Status:         model.ModulePublished,
		TotalSequences: len(specs),
	}
	require.NoError(t, db.Create(m).Error)

	seqs := make([]model.Sequence, 0, len(specs))
	for i, spec := range specs {
		typ := spec.Type
		if typ == "" {
			typ = model.SequenceText
		}
		s := model.Sequence{
			ModuleID:                   m.ID,
			SequenceNumber:             i + 1,
			Title:                      spec.Title,
			SequenceType:               typ,
			RequiresUpload:             spec.RequiresUpload,
			RequiresInstructorResponse: spec.RequiresInstructor,
		}
		require.NoError(t, db.Create(&s).Error)
		seqs = append(seqs, s)
	}
	return m, seqs
}

// Plain 学员可以直接完成的序列
func Plain(title string) SeqSpec {
	return SeqSpec{Title: title, Type: model.SequenceText}
}

// Upload 需要上传视频并等待导师回应的序列
func Upload(title string) SeqSpec {
	return SeqSpec{Title: title, Type: model.SequenceVideoUpload, RequiresUpload: true, RequiresInstructor: true}
}

// Token 使用测试密钥签发访问令牌
func Token(t *testing.T, userID string) string {
	t.Helper()
	claims := util.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return signed
}
