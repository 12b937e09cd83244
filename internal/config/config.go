// Package config handles loading and parsing of AudioKeep configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for AudioKeep.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Metadata MetadataConfig `yaml:"metadata"`
	Storage  StorageConfig  `yaml:"storage"`
	Split    SplitConfig    `yaml:"split"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout is the graceful shutdown timeout in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: text, json.
	Format string `yaml:"format"`
}

// AuthConfig holds the bootstrap API token seeded into the token table on
// startup. Additional tokens can be inserted directly into the record store.
type AuthConfig struct {
	// Token is the bearer token accepted by the API.
	Token string `yaml:"token"`
	// UserID is the owner identity the bootstrap token resolves to.
	UserID string `yaml:"user_id"`
}

// MetadataConfig holds record store settings.
type MetadataConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig holds SQLite-specific record store settings.
type SQLiteConfig struct {
	// Path is the filesystem path for the SQLite database file.
	Path string `yaml:"path"`
}

// StorageConfig holds object storage backend settings.
type StorageConfig struct {
	// Backend is the storage backend type: "local" or "s3".
	Backend string      `yaml:"backend"`
	Local   LocalConfig `yaml:"local"`
	S3      S3Config    `yaml:"s3"`
}

// LocalConfig holds local filesystem storage backend settings.
type LocalConfig struct {
	// RootDir is the base directory for local audio storage.
	RootDir string `yaml:"root_dir"`
}

// S3Config holds S3-compatible storage backend settings.
type S3Config struct {
	// Bucket is the bucket all recordings are stored in.
	Bucket string `yaml:"bucket"`
	// Region is the bucket region.
	Region string `yaml:"region"`
	// Prefix is an optional key prefix applied to every object.
	Prefix string `yaml:"prefix"`
	// Endpoint overrides the S3 endpoint for non-AWS S3-compatible services.
	Endpoint string `yaml:"endpoint"`
	// UsePathStyle forces path-style addressing (required by most
	// S3-compatible services such as MinIO).
	UsePathStyle bool `yaml:"use_path_style"`
	// AccessKeyID and SecretAccessKey are optional static credentials.
	// When empty the standard AWS credential chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// SplitConfig holds settings for the external audio segmenter.
type SplitConfig struct {
	// FFmpegPath is the ffmpeg binary to invoke. Defaults to "ffmpeg" on PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`
	// TimeoutSeconds bounds a single segmenter invocation. The process is
	// killed when the budget is exceeded.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Load reads a YAML configuration file from the given path and returns
// a parsed Config. It applies sensible defaults for unset values.
// A missing file is not an error; defaults are returned so the server can
// start with local storage out of the box.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for empty fields that YAML didn't set.
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: AuthConfig{
			Token:  "audiokeep-dev-token",
			UserID: "audiokeep",
		},
		Metadata: MetadataConfig{
			SQLite: SQLiteConfig{
				Path: "./data/audiokeep.db",
			},
		},
		Storage: StorageConfig{
			Backend: "local",
			Local: LocalConfig{
				RootDir: "./data/audio",
			},
		},
		Split: SplitConfig{
			FFmpegPath:     "ffmpeg",
			TimeoutSeconds: 600,
		},
	}
}

// applyDefaults fills in any fields that are still at their zero value
// after YAML unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Auth.Token == "" {
		cfg.Auth.Token = "audiokeep-dev-token"
	}
	if cfg.Auth.UserID == "" {
		cfg.Auth.UserID = "audiokeep"
	}
	if cfg.Metadata.SQLite.Path == "" {
		cfg.Metadata.SQLite.Path = "./data/audiokeep.db"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.Local.RootDir == "" {
		cfg.Storage.Local.RootDir = "./data/audio"
	}
	if cfg.Split.FFmpegPath == "" {
		cfg.Split.FFmpegPath = "ffmpeg"
	}
	if cfg.Split.TimeoutSeconds == 0 {
		cfg.Split.TimeoutSeconds = 600
	}
}

// validate rejects configurations that would fail at first use.
func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "local":
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when backend is \"s3\"")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when backend is \"s3\"")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %q", cfg.Storage.Backend)
	}
	return nil
}
