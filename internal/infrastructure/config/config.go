package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Filesystem FilesystemConfig
	Logging    LogConfig
}

// FilesystemConfig holds virtual filesystem settings.
type FilesystemConfig struct {
	Identity       string   `envconfig:"VFS_IDENTITY"`
	AppendIdentity bool     `envconfig:"VFS_APPEND_IDENTITY" default:"false"`
	Source         string   `envconfig:"VFS_SOURCE"`
	Fused          bool     `envconfig:"VFS_FUSED" default:"false"`
	RequirePath    string   `envconfig:"VFS_REQUIRE_PATH" default:"?.lua;?/init.lua"`
	Symlinks       bool     `envconfig:"VFS_SYMLINKS" default:"true"`
	AllowedMounts  []string `envconfig:"VFS_ALLOWED_MOUNTS"`
	AppdataFolder  string   `envconfig:"VFS_APPDATA_FOLDER" default:"vfs"`
	MaxReadSize    int64    `envconfig:"VFS_MAX_READ_SIZE" default:"67108864"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Filesystem.MaxReadSize <= 0 {
		return nil, fmt.Errorf("failed to load config: VFS_MAX_READ_SIZE must be positive, got %d", cfg.Filesystem.MaxReadSize)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Filesystem: FilesystemConfig{
			RequirePath:   "?.lua;?/init.lua",
			Symlinks:      true,
			AppdataFolder: "vfs",
			MaxReadSize:   64 << 20,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
