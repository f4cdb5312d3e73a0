package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alfredjeanlab/dojolog/internal/store"
)

// Remote kinds accepted by DOJO_REMOTE.
const (
	RemoteREST     = "rest"
	RemotePostgres = "postgres"
)

type Config struct {
	Mode            store.Mode // DOJO_MODE (default "local")
	DataPath        string     // DOJO_DATA_PATH (default ~/.local/share/dojolog/sessions.db; ":memory:" = no file)
	Remote          string     // DOJO_REMOTE (default "rest")
	RESTURL         string     // DOJO_REST_URL
	AnonKey         string     // DOJO_ANON_KEY
	DatabaseURL     string     // DOJO_DATABASE_URL
	UserID          string     // DOJO_USER_ID (postgres remote only)
	CredentialsPath string     // DOJO_CREDENTIALS_PATH (default ~/.local/state/dojolog/credentials.toml)
	NATSURL         string     // DOJO_NATS_URL (optional, empty = no events)
	HTTPAddr        string     // DOJO_HTTP_ADDR (default ":8080")
	AuthToken       string     // DOJO_AUTH_TOKEN (optional, empty = auth disabled)

	// Sync settings
	ProbeInterval   time.Duration // DOJO_PROBE_INTERVAL (default 30s; 0 = no probing)
	MaxSyncAttempts int           // DOJO_MAX_SYNC_ATTEMPTS (default 5; 0 = never give up)

	// Export settings
	ExportS3Bucket   string // DOJO_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string // DOJO_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string // DOJO_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string // DOJO_EXPORT_S3_KEY (default "dojolog/sessions.jsonl")
	ExportGitRepo    string // DOJO_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile    string // DOJO_EXPORT_GIT_FILE (default "sessions.jsonl")
	ExportGitBranch  string // DOJO_EXPORT_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	home, _ := os.UserHomeDir()
	c := &Config{
		DataPath:         envOrDefault("DOJO_DATA_PATH", filepath.Join(home, ".local", "share", "dojolog", "sessions.db")),
		Remote:           envOrDefault("DOJO_REMOTE", RemoteREST),
		RESTURL:          os.Getenv("DOJO_REST_URL"),
		AnonKey:          os.Getenv("DOJO_ANON_KEY"),
		DatabaseURL:      os.Getenv("DOJO_DATABASE_URL"),
		UserID:           os.Getenv("DOJO_USER_ID"),
		CredentialsPath:  envOrDefault("DOJO_CREDENTIALS_PATH", filepath.Join(home, ".local", "state", "dojolog", "credentials.toml")),
		NATSURL:          os.Getenv("DOJO_NATS_URL"),
		HTTPAddr:         envOrDefault("DOJO_HTTP_ADDR", ":8080"),
		AuthToken:        os.Getenv("DOJO_AUTH_TOKEN"),
		ExportS3Bucket:   os.Getenv("DOJO_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("DOJO_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("DOJO_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("DOJO_EXPORT_S3_KEY", "dojolog/sessions.jsonl"),
		ExportGitRepo:    os.Getenv("DOJO_EXPORT_GIT_REPO"),
		ExportGitFile:    envOrDefault("DOJO_EXPORT_GIT_FILE", "sessions.jsonl"),
		ExportGitBranch:  envOrDefault("DOJO_EXPORT_GIT_BRANCH", "main"),
	}

	mode, err := store.ParseMode(os.Getenv("DOJO_MODE"))
	if err != nil {
		return nil, fmt.Errorf("DOJO_MODE: %w", err)
	}
	c.Mode = mode

	switch c.Remote {
	case RemoteREST, RemotePostgres:
	default:
		return nil, fmt.Errorf("DOJO_REMOTE: unknown remote %q (want %q or %q)", c.Remote, RemoteREST, RemotePostgres)
	}

	d, err := time.ParseDuration(envOrDefault("DOJO_PROBE_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("DOJO_PROBE_INTERVAL: %w", err)
	}
	if d < 0 {
		return nil, fmt.Errorf("DOJO_PROBE_INTERVAL: must not be negative")
	}
	c.ProbeInterval = d

	n, err := strconv.Atoi(envOrDefault("DOJO_MAX_SYNC_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("DOJO_MAX_SYNC_ATTEMPTS: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("DOJO_MAX_SYNC_ATTEMPTS: must not be negative")
	}
	c.MaxSyncAttempts = n

	return c, nil
}

// RemoteConfigured reports whether the selected remote has the settings it
// needs to be constructed. It says nothing about whether anyone is signed in.
func (c *Config) RemoteConfigured() bool {
	switch c.Remote {
	case RemoteREST:
		return c.RESTURL != ""
	case RemotePostgres:
		return c.DatabaseURL != ""
	}
	return false
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
