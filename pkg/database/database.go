package database

import (
	"fmt"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models 需要迁移的全部模型，测试中的 sqlite 也使用同一份列表
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Module{},
		&model.Sequence{},
		&model.ProgressEntry{},
		&model.VideoSubmission{},
		&model.InstructorResponse{},
		&model.Notification{},
		&model.UserGoal{},
		&model.VoiceReflection{},
	}
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.Port,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate 建表并补齐索引，(user_id, module_id, sequence_id) 的唯一索引由 AutoMigrate 创建
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	logger.Log.Info("Database migration completed")
	return nil
}
