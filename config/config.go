package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 应用程序配置
type Config struct {
	APIPort  int
	LogLevel string
	LogFile  LogFileConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Notice   NoticeConfig
	R2       R2Config
}

// DatabaseConfig MySQL数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int // 单个文件最大大小，单位MB
	MaxBackups int // 最大保留旧文件数量
	MaxAge     int // 最大保留天数
	Compress   bool
}

// JWTConfig 管理员令牌配置
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AdminConfig 默认管理员配置
type AdminConfig struct {
	Username string
	Password string
}

// NoticeConfig 公告存储与同步配置
type NoticeConfig struct {
	UploadDir     string   // 本地上传根目录
	SourceDir     string   // 外部公告文件目录
	BlockedTitles []string // 同步时需要剔除的标题（未归一化）
}

// R2Config Cloudflare R2对象存储配置
type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

// Enabled R2配置齐全才启用远端存储
func (c R2Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != "" && c.PublicURL != ""
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 加载.env文件，文件不存在时仅依赖环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return &Config{
		APIPort:  getEnvInt("API_PORT", 8080),
		LogLevel: os.Getenv("LOG_LEVEL"),
		LogFile: LogFileConfig{
			Enabled:    getEnvBool("LOG_FILE_ENABLED", false),
			Path:       os.Getenv("LOG_FILE_PATH"),
			MaxSize:    getEnvInt("LOG_FILE_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 7),
			MaxAge:     getEnvInt("LOG_FILE_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
		},
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      getEnvDefault("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("TOKEN_EXPIRE_HOURS", 24),
		},
		Admin: AdminConfig{
			Username: getEnvDefault("ADMIN_USERNAME", "admin"),
			Password: getEnvDefault("ADMIN_PASSWORD", "admin123"),
		},
		Notice: NoticeConfig{
			UploadDir:     getEnvDefault("UPLOAD_DIR", "uploads"),
			SourceDir:     os.Getenv("NOTICE_SOURCE_DIR"),
			BlockedTitles: splitList(os.Getenv("BLOCKED_NOTICE_TITLES")),
		},
		R2: R2Config{
			Endpoint:        strings.TrimRight(os.Getenv("R2_ENDPOINT"), "/"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			Bucket:          os.Getenv("R2_BUCKET"),
			PublicURL:       strings.TrimRight(os.Getenv("R2_PUBLIC_URL"), "/"),
		},
	}, nil
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
