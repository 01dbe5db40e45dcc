package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	SessionSecret string
	GinMode       string
	LogLevel      string
	LogFormat     string
	PageSize      int

	DocstoreDriver string
	DatabasePath   string
	MongoURI       string
	MongoDatabase  string

	BlobstoreDriver string
	UploadDir       string
	UploadURLPath   string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string
}

// LoadDotEnv 读取工作目录下的 .env 文件（若存在），已设置的环境变量不会被覆盖。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := env("PORT", "8080")

	listenAddr := env("LISTEN_ADDR", "")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	pageSize := 10
	if raw := env("PAGE_SIZE", ""); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	return AppConfig{
		ListenAddr:    listenAddr,
		Port:          port,
		SessionSecret: env("SESSION_SECRET", "quillpress-dev-secret"),
		GinMode:       env("GIN_MODE", "release"),
		LogLevel:      strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(env("LOG_FORMAT", "json")),
		PageSize:      pageSize,

		DocstoreDriver: strings.ToLower(env("DOCSTORE_DRIVER", "sqlite")),
		DatabasePath:   env("DATABASE_PATH", "quillpress.db"),
		MongoURI:       env("MONGO_URI", ""),
		MongoDatabase:  env("MONGO_DATABASE", "quillpress"),

		BlobstoreDriver: strings.ToLower(env("BLOBSTORE_DRIVER", "local")),
		UploadDir:       env("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath:   env("UPLOAD_URL_PATH", "/static/uploads"),
		S3Bucket:        env("S3_BUCKET", ""),
		S3Region:        env("S3_REGION", ""),
		S3Endpoint:      env("S3_ENDPOINT", ""),
		S3PublicBaseURL: env("S3_PUBLIC_BASE_URL", ""),
	}
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
