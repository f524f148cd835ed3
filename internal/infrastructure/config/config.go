package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all agent configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Tracking    TrackingConfig    `yaml:"tracking"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Cloud       CloudConfig       `yaml:"cloud"`
	Logging     LogConfig         `yaml:"logging"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// ServerConfig holds the local HTTP API configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"7600" yaml:"port"`
	Host string `envconfig:"HOST" default:"127.0.0.1" yaml:"host"`
}

// TrackingConfig holds the tick loop configuration.
type TrackingConfig struct {
	// Interval is the poll cadence and also the quantum attributed to each
	// recorded snapshot when reconstructing bucket time.
	Interval               time.Duration `envconfig:"TRACK_INTERVAL" default:"2s" yaml:"interval"`
	LiveHistoryCap         int           `envconfig:"TRACK_LIVE_HISTORY_CAP" default:"150" yaml:"live_history_cap"`
	ActiveThresholdPercent float64       `envconfig:"TRACK_ACTIVE_THRESHOLD" default:"10" yaml:"active_threshold_percent"`
	// ProductiveApps and DistractiveApps seed the category mapping for the
	// daily rollup; unlisted apps count as neutral.
	ProductiveApps  []string `envconfig:"TRACK_PRODUCTIVE_APPS" yaml:"productive_apps"`
	DistractiveApps []string `envconfig:"TRACK_DISTRACTIVE_APPS" yaml:"distractive_apps"`
}

// PersistenceConfig holds the local store configuration.
type PersistenceConfig struct {
	DataDir string `envconfig:"DATA_DIR" yaml:"data_dir"`
	Backup  bool   `envconfig:"DATA_BACKUP" default:"true" yaml:"backup"`
}

// CloudConfig holds the optional cloud store configuration.
type CloudConfig struct {
	Enabled  bool          `envconfig:"CLOUD_ENABLED" default:"false" yaml:"enabled"`
	BaseURL  string        `envconfig:"CLOUD_URL" yaml:"base_url"`
	Token    string        `envconfig:"CLOUD_TOKEN" yaml:"token"`
	Debounce time.Duration `envconfig:"CLOUD_DEBOUNCE" default:"30s" yaml:"debounce"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFile loads configuration from a YAML file. Fields absent from the
// file keep their zero values, so file-based configs should be complete;
// environment variables are ignored on this path.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: "7600",
			Host: "127.0.0.1",
		},
		Tracking: TrackingConfig{
			Interval:               2 * time.Second,
			LiveHistoryCap:         150,
			ActiveThresholdPercent: 10,
		},
		Persistence: PersistenceConfig{
			Backup: true,
		},
		Cloud: CloudConfig{
			Debounce: 30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
	cfg.applyDefaults()
	return cfg
}

// DataFile returns the path of the local data file.
func (c *Config) DataFile() string {
	return filepath.Join(c.Persistence.DataDir, "perfguard_data.json")
}

func (c *Config) applyDefaults() {
	if c.Persistence.DataDir == "" {
		c.Persistence.DataDir = defaultDataDir()
	}
	if c.Tracking.Interval <= 0 {
		c.Tracking.Interval = 2 * time.Second
	}
	if c.Tracking.LiveHistoryCap <= 0 {
		c.Tracking.LiveHistoryCap = 150
	}
}

func defaultDataDir() string {
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, "perfguard")
	}
	return filepath.Join(os.TempDir(), "perfguard")
}
