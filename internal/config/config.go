package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alfredjeanlab/qna/internal/i18n"
)

type Config struct {
	DatabaseURL string // QNA_DATABASE_URL (optional, empty = in-memory store)
	GRPCAddr    string // QNA_GRPC_ADDR (default ":9090")
	HTTPAddr    string // QNA_HTTP_ADDR (default ":8080")
	NATSURL     string // QNA_NATS_URL (optional, empty = single instance, no bus)
	RedisURL    string // QNA_REDIS_URL (optional, empty = identities not registered)

	// Identity
	AdminUID    string        // QNA_ADMIN_UID (empty = nobody can answer)
	TokenSecret string        // QNA_TOKEN_SECRET (required)
	TokenTTL    time.Duration // QNA_TOKEN_TTL (default 8760h)

	UILang         i18n.Lang     // QNA_UI_LANG (default "ko")
	ResyncInterval time.Duration // QNA_RESYNC_INTERVAL (default 30s; 0 = disabled)

	// Backup settings
	BackupInterval   time.Duration // QNA_BACKUP_INTERVAL (default 0 = disabled)
	BackupS3Bucket   string        // QNA_BACKUP_S3_BUCKET (enables S3 when set)
	BackupS3Endpoint string        // QNA_BACKUP_S3_ENDPOINT (custom endpoint for MinIO)
	BackupS3Region   string        // QNA_BACKUP_S3_REGION (default "us-east-1")
	BackupS3Key      string        // QNA_BACKUP_S3_KEY (default "qna/questions.jsonl")
	BackupGitRepo    string        // QNA_BACKUP_GIT_REPO (enables git when set; path to clone)
	BackupGitFile    string        // QNA_BACKUP_GIT_FILE (default "questions.jsonl")
	BackupGitBranch  string        // QNA_BACKUP_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("QNA_DATABASE_URL"),
		GRPCAddr:         envOrDefault("QNA_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("QNA_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("QNA_NATS_URL"),
		RedisURL:         os.Getenv("QNA_REDIS_URL"),
		AdminUID:         os.Getenv("QNA_ADMIN_UID"),
		TokenSecret:      os.Getenv("QNA_TOKEN_SECRET"),
		UILang:           i18n.ParseLang(os.Getenv("QNA_UI_LANG")),
		BackupS3Bucket:   os.Getenv("QNA_BACKUP_S3_BUCKET"),
		BackupS3Endpoint: os.Getenv("QNA_BACKUP_S3_ENDPOINT"),
		BackupS3Region:   envOrDefault("QNA_BACKUP_S3_REGION", "us-east-1"),
		BackupS3Key:      envOrDefault("QNA_BACKUP_S3_KEY", "qna/questions.jsonl"),
		BackupGitRepo:    os.Getenv("QNA_BACKUP_GIT_REPO"),
		BackupGitFile:    envOrDefault("QNA_BACKUP_GIT_FILE", "questions.jsonl"),
		BackupGitBranch:  envOrDefault("QNA_BACKUP_GIT_BRANCH", "main"),
	}
	if c.TokenSecret == "" {
		return nil, fmt.Errorf("QNA_TOKEN_SECRET is required")
	}

	var err error
	if c.TokenTTL, err = durationEnv("QNA_TOKEN_TTL", "8760h"); err != nil {
		return nil, err
	}
	if c.TokenTTL <= 0 {
		return nil, fmt.Errorf("QNA_TOKEN_TTL must be positive")
	}
	if c.ResyncInterval, err = durationEnv("QNA_RESYNC_INTERVAL", "30s"); err != nil {
		return nil, err
	}
	if c.BackupInterval, err = durationEnv("QNA_BACKUP_INTERVAL", "0"); err != nil {
		return nil, err
	}

	return c, nil
}

// BackupEnabled reports whether a backup interval and at least one
// destination are configured.
func (c *Config) BackupEnabled() bool {
	return c.BackupInterval > 0 && (c.BackupS3Bucket != "" || c.BackupGitRepo != "")
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
