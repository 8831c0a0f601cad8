// Package config builds the immutable process configuration for repodoc.
//
// Configuration is resolved once at process start from an optional YAML file,
// a .env file, and environment variables (highest precedence), then passed
// explicitly into constructors. Core logic never reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
)

// StorageMode selects the storage backend variant.
type StorageMode string

const (
	StorageModeLocal StorageMode = "local"
	StorageModeS3    StorageMode = "s3"
)

// Config holds all environment-derived settings for one process.
type Config struct {
	// HTTP API
	ListenAddr string `yaml:"listen_addr"`
	// PublicBaseURL is the externally reachable base URL of the API, used to
	// build access URLs for the local storage variant.
	PublicBaseURL string `yaml:"public_base_url"`

	// Storage
	StorageMode   StorageMode `yaml:"storage_mode"`
	LocalDocsRoot string      `yaml:"local_docs_root"`

	S3 S3Config `yaml:"s3"`

	// Job distribution
	NATSURL string `yaml:"nats_url"`
	// JobStorePath is the sqlite database path used when NATS is not
	// configured (single-binary mode). ":memory:" is valid.
	JobStorePath string `yaml:"job_store_path"`
	Workers      int    `yaml:"workers"`

	// Workspace for repository working copies and bundle staging.
	WorkspaceDir string `yaml:"workspace_dir"`

	// LLM
	OpenAIAPIKey string `yaml:"-"`
	OpenAIModel  string `yaml:"openai_model"`

	// Deadlines bounding one job run. Soft must stay strictly below hard.
	SoftDeadline time.Duration `yaml:"soft_deadline"`
	HardDeadline time.Duration `yaml:"hard_deadline"`

	// Reaper sweeps workspace directories older than this age.
	ReaperInterval time.Duration `yaml:"reaper_interval"`

	Verbose bool `yaml:"verbose"`
}

// S3Config holds remote object store settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Defaults mirrors the documented default deployment.
func Defaults() Config {
	return Config{
		ListenAddr:     ":8000",
		PublicBaseURL:  "http://localhost:8000",
		StorageMode:    StorageModeLocal,
		LocalDocsRoot:  "/tmp/repodoc-docs",
		JobStorePath:   "repodoc-jobs.db",
		Workers:        2,
		WorkspaceDir:   "/tmp/repodoc-workspace",
		OpenAIModel:    "gpt-4o-mini",
		SoftDeadline:   55 * time.Minute,
		HardDeadline:   time.Hour,
		ReaperInterval: 10 * time.Minute,
	}
}

// Load resolves the configuration: defaults, then the YAML file (if path is
// non-empty and exists), then .env, then process environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// Existing process environment variables are not overwritten.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ListenAddr, "REPODOC_LISTEN_ADDR")
	setString(&cfg.PublicBaseURL, "REPODOC_PUBLIC_BASE_URL")
	if v := os.Getenv("STORAGE_MODE"); v != "" {
		cfg.StorageMode = StorageMode(v)
	}
	setString(&cfg.LocalDocsRoot, "LOCAL_DOCS_ROOT")
	setString(&cfg.NATSURL, "NATS_URL")
	setString(&cfg.JobStorePath, "JOB_STORE_PATH")
	setInt(&cfg.Workers, "REPODOC_WORKERS")
	setString(&cfg.WorkspaceDir, "REPODOC_WORKSPACE_DIR")
	setString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAIModel, "OPENAI_MODEL")
	setDuration(&cfg.SoftDeadline, "REPODOC_SOFT_DEADLINE")
	setDuration(&cfg.HardDeadline, "REPODOC_HARD_DEADLINE")
	setDuration(&cfg.ReaperInterval, "REPODOC_REAPER_INTERVAL")

	setString(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setString(&cfg.S3.Region, "AWS_REGION")
	setString(&cfg.S3.Bucket, "S3_BUCKET_NAME")
	setString(&cfg.S3.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&cfg.S3.SecretKey, "AWS_SECRET_ACCESS_KEY")
	if v := os.Getenv("S3_USE_SSL"); v != "" {
		cfg.S3.UseSSL, _ = strconv.ParseBool(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// Validate checks invariants that would otherwise surface deep inside a job run.
func (c *Config) Validate() error {
	switch c.StorageMode {
	case StorageModeLocal:
		if c.LocalDocsRoot == "" {
			return rderrors.ConfigRequired("local_docs_root")
		}
	case StorageModeS3:
		if c.S3.Bucket == "" {
			return rderrors.ConfigRequired("s3.bucket")
		}
		if c.S3.Endpoint == "" {
			return rderrors.ConfigRequired("s3.endpoint")
		}
	default:
		return rderrors.ValidationError("storage_mode must be \"local\" or \"s3\"").
			WithContext("storage_mode", string(c.StorageMode))
	}

	if c.WorkspaceDir == "" {
		return rderrors.ConfigRequired("workspace_dir")
	}
	if c.Workers <= 0 {
		return rderrors.ValidationError("workers must be positive").
			WithContext("workers", c.Workers)
	}
	if c.SoftDeadline <= 0 || c.HardDeadline <= 0 {
		return rderrors.ValidationError("deadlines must be positive")
	}
	// The soft deadline gives cleanup a window before the hard kill.
	if c.SoftDeadline >= c.HardDeadline {
		return rderrors.ValidationError("soft_deadline must be strictly below hard_deadline").
			WithContext("soft_deadline", c.SoftDeadline.String()).
			WithContext("hard_deadline", c.HardDeadline.String())
	}
	return nil
}
