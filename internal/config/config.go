package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Network  NetworkConfig  `yaml:"network"`
	Log      LogConfig      `yaml:"log"`

	// Env holds values that only come from the environment
	Env EnvConfig `yaml:"-"`
}

// DefaultsConfig holds default values for the photo pipeline
type DefaultsConfig struct {
	Provider         string `yaml:"provider"`
	APICacheTTL      string `yaml:"api_cache_ttl"`
	CarouselTTL      string `yaml:"carousel_ttl"`
	CarouselInterval string `yaml:"carousel_interval"`
	PreloadCapacity  int    `yaml:"preload_capacity"`
	ImageCacheTTL    string `yaml:"image_cache_ttl"`
}

// NetworkConfig holds request bounds
type NetworkConfig struct {
	FetchTimeout string `yaml:"fetch_timeout"`
	ProbeTimeout string `yaml:"probe_timeout"`
	UserAgent    string `yaml:"user_agent"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// EnvConfig is parsed from TABR_* environment variables
type EnvConfig struct {
	Home        string `env:"TABR_HOME"`
	Provider    string `env:"TABR_PROVIDER"`
	LogLevel    string `env:"TABR_LOG_LEVEL"`
	UnsplashKey string `env:"TABR_UNSPLASH_KEY"`
	PixabayKey  string `env:"TABR_PIXABAY_KEY"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Provider:         "unsplash",
			APICacheTTL:      "2m",
			CarouselTTL:      "2m",
			CarouselInterval: "2m",
			PreloadCapacity:  2,
			ImageCacheTTL:    "7d",
		},
		Network: NetworkConfig{
			FetchTimeout: "10s",
			ProbeTimeout: "15s",
			UserAgent:    "tabr/0.1",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// AppDir returns the application directory (~/.tabr, or $TABR_HOME)
func AppDir() string {
	if dir := os.Getenv("TABR_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tabr"
	}
	return filepath.Join(home, ".tabr")
}

// ImageCacheDir returns the directory holding warmed images
func ImageCacheDir() string {
	return filepath.Join(AppDir(), "images")
}

// StorePath returns the key/value database path
func StorePath() string {
	return filepath.Join(AppDir(), "tabr.db")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.yaml")
}

// EnsureDirs creates all required directories
func EnsureDirs() error {
	dirs := []string{AppDir(), ImageCacheDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads config from file, returns default if not exists.
// Environment overrides are applied on top in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads config from default path
func LoadDefault() (*Config, error) {
	return Load(ConfigPath())
}

func (c *Config) applyEnv() error {
	if err := env.Parse(&c.Env); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if c.Env.Provider != "" {
		c.Defaults.Provider = c.Env.Provider
	}
	if c.Env.LogLevel != "" {
		c.Log.Level = c.Env.LogLevel
	}
	return nil
}

// Save writes config to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveDefault saves config to default path
func (c *Config) SaveDefault() error {
	return c.Save(ConfigPath())
}

// Durations is the parsed form of every duration setting
type Durations struct {
	APICacheTTL      time.Duration
	CarouselTTL      time.Duration
	CarouselInterval time.Duration
	ImageCacheTTL    time.Duration
	FetchTimeout     time.Duration
	ProbeTimeout     time.Duration
}

// GetDurations parses all duration settings, reporting the first invalid one
func (c *Config) GetDurations() (Durations, error) {
	var d Durations
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"defaults.api_cache_ttl", c.Defaults.APICacheTTL, &d.APICacheTTL},
		{"defaults.carousel_ttl", c.Defaults.CarouselTTL, &d.CarouselTTL},
		{"defaults.carousel_interval", c.Defaults.CarouselInterval, &d.CarouselInterval},
		{"defaults.image_cache_ttl", c.Defaults.ImageCacheTTL, &d.ImageCacheTTL},
		{"network.fetch_timeout", c.Network.FetchTimeout, &d.FetchTimeout},
		{"network.probe_timeout", c.Network.ProbeTimeout, &d.ProbeTimeout},
	}
	for _, f := range fields {
		v, err := ParseDuration(f.value)
		if err != nil {
			return Durations{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return d, nil
}

var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// ParseDuration parses duration strings like "30s", "2m", "24h", "7d"
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid duration format: %s (use format like 30s, 2m, 24h, 7d)", s)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	switch unit {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %s", unit)
	}
}
