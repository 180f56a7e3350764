package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Redis        RedisConfig
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Notification NotificationConfig `mapstructure:"notification"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port    string
	Mode    string
	WebRoot string `mapstructure:"web_root"`
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
}

// JWTConfig 描述外部认证平台签发的访问令牌
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	Cookie string `mapstructure:"cookie"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type NotificationConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	SendgridAPIKey string        `mapstructure:"sendgrid_api_key"`
	FromName       string        `mapstructure:"from_name"`
	FromEmail      string        `mapstructure:"from_email"`
	AdminEmail     string        `mapstructure:"admin_email"`
}

// UploadConfig 上传大小（字节）与默认视频时长窗口（秒）
type UploadConfig struct {
	MaxAssignmentBytes int64 `mapstructure:"max_assignment_bytes"`
	MaxResponseBytes   int64 `mapstructure:"max_response_bytes"`
	MaxVoiceBytes      int64 `mapstructure:"max_voice_bytes"`
	MaxAvatarBytes     int64 `mapstructure:"max_avatar_bytes"`
	DefaultMinSeconds  int   `mapstructure:"default_min_seconds"`
	DefaultMaxSeconds  int   `mapstructure:"default_max_seconds"`
	ProbeDuration      bool  `mapstructure:"probe_duration"`
}

type SchedulerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	DigestCron string        `mapstructure:"digest_cron"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("jwt.cookie", "access_token")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("notification.webhook_timeout", 5*time.Second)
	v.SetDefault("notification.from_name", "YOI Portal")
	v.SetDefault("upload.max_assignment_bytes", 100<<20)
	v.SetDefault("upload.max_response_bytes", 200<<20)
	v.SetDefault("upload.max_voice_bytes", 25<<20)
	v.SetDefault("upload.max_avatar_bytes", 5<<20)
	v.SetDefault("upload.default_min_seconds", 60)
	v.SetDefault("upload.default_max_seconds", 120)
	v.SetDefault("scheduler.digest_cron", "0 9 * * *")
	v.SetDefault("scheduler.stale_after", 48*time.Hour)
}

func LoadConfig(path string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("YOI")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.issuer", "JWT_ISSUER")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.web_root", "WEB_ROOT")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Notification
	v.BindEnv("notification.webhook_url", "NOTIFICATION_WEBHOOK_URL")
	v.BindEnv("notification.sendgrid_api_key", "SENDGRID_API_KEY")
	v.BindEnv("notification.admin_email", "NOTIFICATION_ADMIN_EMAIL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Upload.DefaultMinSeconds > c.Upload.DefaultMaxSeconds {
		return fmt.Errorf("upload.default_min_seconds (%d) exceeds upload.default_max_seconds (%d)", c.Upload.DefaultMinSeconds, c.Upload.DefaultMaxSeconds)
	}
	return nil
}
