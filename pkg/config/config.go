package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents playtennis configuration
type Config struct {
	// Training data
	Dataset DatasetConfig `yaml:"dataset"`

	// Inference settings
	Model ModelConfig `yaml:"model"`

	// Prediction result cache
	Cache CacheConfig `yaml:"cache"`

	// Web form settings
	Server ServerConfig `yaml:"server"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// DatasetConfig describes the CSV the model is built from
type DatasetConfig struct {
	Path     string   `yaml:"path"`
	Label    string   `yaml:"label"`    // label column name
	Features []string `yaml:"features"` // empty = every non-label column
}

// ModelConfig contains inference parameters
type ModelConfig struct {
	// Probability substituted for (value, label) pairs never seen in training
	Floor float64 `yaml:"floor"`
}

// CacheConfig contains prediction cache settings
type CacheConfig struct {
	// Backend selection: "none", "memory" or "redis"
	Backend string `yaml:"backend"`

	// Memory backend capacity (entries)
	Size int `yaml:"size"`

	// Entry lifetime, duration string like "10m"; redis only
	TTL string `yaml:"ttl"`

	Redis RedisCacheConfig `yaml:"redis"`
}

// RedisCacheConfig contains Redis connection settings
type RedisCacheConfig struct {
	RedisURL    string `yaml:"redis_url"`
	KeyPrefix   string `yaml:"key_prefix"`
	DatabaseNum int    `yaml:"database_num"`
}

// ServerConfig contains web form settings
type ServerConfig struct {
	Address        string `yaml:"address"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	Title          string `yaml:"title"`
	PreviewRows    int    `yaml:"preview_rows"` // 0 = whole dataset
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	File       string `yaml:"file"`   // log file path, empty = stderr
	Format     string `yaml:"format"` // json, text
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Path:     "data/PlayTennis.csv",
			Label:    "Play Tennis",
			Features: []string{"Outlook", "Temperature", "Humidity", "Wind"},
		},
		Model: ModelConfig{
			Floor: 1e-6,
		},
		Cache: CacheConfig{
			Backend: "none",
			Size:    1024,
			TTL:     "10m",
			Redis: RedisCacheConfig{
				RedisURL:    "redis://localhost:6379",
				KeyPrefix:   "playtennis:predict",
				DatabaseNum: 0,
			},
		},
		Server: ServerConfig{
			Address:        "127.0.0.1:8501",
			ReadTimeoutMs:  10000,
			WriteTimeoutMs: 10000,
			Title:          "Naive Bayes Classifier – Play Tennis Prediction",
			PreviewRows:    0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// If no config file specified, return defaults
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if c.Dataset.Label == "" {
		return fmt.Errorf("dataset.label is required")
	}
	for _, f := range c.Dataset.Features {
		if f == c.Dataset.Label {
			return fmt.Errorf("dataset.features must not contain the label column %q", f)
		}
	}

	if !(c.Model.Floor > 0 && c.Model.Floor < 1) {
		return fmt.Errorf("model.floor must be between 0 and 1 (exclusive)")
	}

	switch c.Cache.Backend {
	case "none", "":
	case "memory":
		if c.Cache.Size < 1 {
			return fmt.Errorf("cache.size must be >= 1")
		}
	case "redis":
		if c.Cache.Redis.RedisURL == "" {
			return fmt.Errorf("cache.redis.redis_url is required for the redis backend")
		}
		if _, err := c.Cache.TTLDuration(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cache.backend must be one of: none, memory, redis")
	}

	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.ReadTimeoutMs < 100 || c.Server.WriteTimeoutMs < 100 {
		return fmt.Errorf("server timeouts must be >= 100ms")
	}
	if c.Server.PreviewRows < 0 {
		return fmt.Errorf("server.preview_rows must be >= 0")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// TTLDuration parses the cache TTL; empty means no expiry
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache.ttl %q: %w", c.TTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("cache.ttl must not be negative")
	}
	return d, nil
}

// ReadTimeout returns the server read timeout
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the server write timeout
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMs) * time.Millisecond
}
