// Package config loads the tracker's YAML configuration and applies
// environment overrides. Loaded values are passed to services as explicit
// immutable parameter structs, never read as ambient state.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty means stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LocalPathConfig configures the filesystem state backend.
type LocalPathConfig struct {
	StatePath string `yaml:"state_path"`
	MetaPath  string `yaml:"meta_path"`
}

// SQLiteConfig configures the SQLite state backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// GitHubReleaseConfig configures the release-asset state backend.
type GitHubReleaseConfig struct {
	Repository     string `yaml:"repository"` // owner/name
	Tag            string `yaml:"tag"`
	StateAssetName string `yaml:"state_asset_name"`
	MetaAssetName  string `yaml:"meta_asset_name"`
}

// StateBackendConfig selects and configures snapshot persistence.
type StateBackendConfig struct {
	Kind          string              `yaml:"kind"` // local_path, sqlite, github_release
	LocalPath     LocalPathConfig     `yaml:"local_path"`
	SQLite        SQLiteConfig        `yaml:"sqlite"`
	GitHubRelease GitHubReleaseConfig `yaml:"github_release"`
}

// DailyConfig holds the spike-detection run parameters.
type DailyConfig struct {
	Market       string  `yaml:"market"`
	Provider     string  `yaml:"provider"`
	PriceType    string  `yaml:"price_type"`
	StateDays    int     `yaml:"state_days"`
	Windows      []int   `yaml:"windows"`
	PriceFloor   float64 `yaml:"price_floor"`
	PctThreshold float64 `yaml:"pct_threshold"`
	AbsMin       float64 `yaml:"abs_min"`
	PctOverride  float64 `yaml:"pct_override"`
}

// ServerConfig holds the dashboard server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	DailyCron   string   `yaml:"daily_cron"` // empty disables the scheduler
}

// Config is the full tracker configuration.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	StateBackend StateBackendConfig `yaml:"state_backend"`
	Daily        DailyConfig        `yaml:"daily"`
	Server       ServerConfig       `yaml:"server"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		StateBackend: StateBackendConfig{
			Kind: "local_path",
			LocalPath: LocalPathConfig{
				StatePath: "data/state/state.csv",
				MetaPath:  "data/state/meta.json",
			},
		},
		Daily: DailyConfig{
			Market:       "paper",
			Provider:     "tcgplayer",
			PriceType:    "retail",
			StateDays:    14,
			Windows:      []int{1, 3, 7},
			PriceFloor:   5.0,
			PctThreshold: 0.20,
			AbsMin:       1.0,
			PctOverride:  0.50,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// Load reads the YAML config at path (missing file falls back to defaults)
// and applies MTG_TRACKER_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env overrides are a valid configuration.
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if kind := os.Getenv("MTG_TRACKER_STATE_BACKEND"); kind != "" {
		cfg.StateBackend.Kind = kind
	}
	if level := os.Getenv("MTG_TRACKER_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if repo := os.Getenv("MTG_TRACKER_GITHUB_REPOSITORY"); repo != "" {
		cfg.StateBackend.GitHubRelease.Repository = repo
	}
	if port := os.Getenv("MTG_TRACKER_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = parsed
		}
	}
}

// Validate rejects configurations that would fail mid-run: malformed
// thresholds must be caught before the detection algorithm starts.
func (c Config) Validate() error {
	switch c.StateBackend.Kind {
	case "local_path", "sqlite", "github_release":
	default:
		return fmt.Errorf("unknown state backend: %q", c.StateBackend.Kind)
	}

	if c.Daily.StateDays <= 0 {
		return fmt.Errorf("daily.state_days must be positive, got %d", c.Daily.StateDays)
	}
	for _, value := range []struct {
		name  string
		value float64
	}{
		{"daily.price_floor", c.Daily.PriceFloor},
		{"daily.pct_threshold", c.Daily.PctThreshold},
		{"daily.abs_min", c.Daily.AbsMin},
		{"daily.pct_override", c.Daily.PctOverride},
	} {
		if value.value < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", value.name, value.value)
		}
	}
	return nil
}
