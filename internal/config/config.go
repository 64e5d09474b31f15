package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddress        = "127.0.0.1:8123"
	DefaultMaxUploadBytes = 256 << 20
	DefaultCacheSize      = 64
	DefaultHistoryLimit   = 50
)

type Config struct {
	Server struct {
		Address        string `yaml:"address"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Stats struct {
		CacheSize    int `yaml:"cache_size"`
		HistoryLimit int `yaml:"history_limit"`
	} `yaml:"stats"`
}

// Default returns the built-in configuration rooted at the platform data dir.
func Default() (*Config, error) {
	dataDir, err := ApplicationDirectory()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	cfg.Server.Address = DefaultAddress
	cfg.Server.MaxUploadBytes = DefaultMaxUploadBytes
	cfg.Database.Path = filepath.Join(dataDir, "analyses.db")
	cfg.Stats.CacheSize = DefaultCacheSize
	cfg.Stats.HistoryLimit = DefaultHistoryLimit
	return cfg, nil
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if address := os.Getenv("RRWEB_VIEWER_ADDRESS"); address != "" {
		c.Server.Address = address
	}
	if path := os.Getenv("RRWEB_VIEWER_DB"); path != "" {
		c.Database.Path = path
	}
	if raw := os.Getenv("RRWEB_VIEWER_MAX_UPLOAD"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RRWEB_VIEWER_MAX_UPLOAD: %w", err)
		}
		c.Server.MaxUploadBytes = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address cannot be empty")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if c.Stats.CacheSize <= 0 {
		return fmt.Errorf("stats.cache_size must be positive")
	}
	return nil
}

// ApplicationDirectory returns (and creates) the per-user data directory.
func ApplicationDirectory() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	var applicationDirectory string
	switch runtime.GOOS {
	case "darwin":
		applicationDirectory = filepath.Join(homeDirectory, "Library", "Application Support", "RRWebViewer")
	case "windows":
		applicationDirectory = filepath.Join(homeDirectory, "AppData", "Roaming", "RRWebViewer")
	default: // linux and others
		applicationDirectory = filepath.Join(homeDirectory, ".local", "share", "RRWebViewer")
	}
	if err := os.MkdirAll(applicationDirectory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create application directory: %w", err)
	}
	return applicationDirectory, nil
}
