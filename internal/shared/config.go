package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values loaded from the config file.
const (
	EnvCatalogURL = "LIMUZIC_CATALOG_URL"
	EnvDBPath     = "LIMUZIC_DB_PATH"
	EnvLogLevel   = "LIMUZIC_LOG_LEVEL"
	EnvMPVPath    = "LIMUZIC_MPV_PATH"
)

// Backend names accepted by [PlayerConfig.Backend].
const (
	BackendClock = "clock"
	BackendMPV   = "mpv"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Database DatabaseConfig `toml:"database"`
	Player   PlayerConfig   `toml:"player"`
	Session  SessionConfig  `toml:"session"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// CatalogConfig contains catalog service settings.
type CatalogConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Timeout returns the request timeout as a [time.Duration].
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// PlayerConfig contains media backend and transport defaults.
type PlayerConfig struct {
	Volume             int    `toml:"volume"`
	Backend            string `toml:"backend"`
	MPVPath            string `toml:"mpv_path"`
	ProgressIntervalMS int    `toml:"progress_interval_ms"`
}

// ProgressInterval returns the progress polling cadence.
func (p PlayerConfig) ProgressInterval() time.Duration {
	return time.Duration(p.ProgressIntervalMS) * time.Millisecond
}

// SessionConfig contains playback session policies.
type SessionConfig struct {
	DiscardStaleFetches bool `toml:"discard_stale_fetches"`
}

// ServerConfig contains HTTP remote-control server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveConfig loads the config at path when it exists, falling back to defaults, then applies environment overrides.
//
// A .env file in the working directory is loaded first; variables already set in the environment win.
func ResolveConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return config, config.Validate()
}

// ApplyEnv overrides config values from environment variables using the given lookup function.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvCatalogURL); ok && v != "" {
		c.Catalog.BaseURL = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvMPVPath); ok && v != "" {
		c.Player.MPVPath = v
	}
	if v, ok := lookup("LIMUZIC_VOLUME"); ok && v != "" {
		volume, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LIMUZIC_VOLUME=%q", ErrInvalidConfig, v)
		}
		c.Player.Volume = volume
	}
	return nil
}

// Validate checks the configuration for values the player cannot work with.
func (c *Config) Validate() error {
	var problems []string

	if !strings.HasPrefix(c.Catalog.BaseURL, "http://") && !strings.HasPrefix(c.Catalog.BaseURL, "https://") {
		problems = append(problems, fmt.Sprintf("catalog.base_url must be an http(s) URL, got %q", c.Catalog.BaseURL))
	}
	if c.Catalog.TimeoutSeconds < 0 {
		problems = append(problems, "catalog.timeout_seconds must not be negative")
	}
	if c.Catalog.RequestsPerSecond < 0 {
		problems = append(problems, "catalog.requests_per_second must not be negative")
	}
	if c.Database.Path == "" {
		problems = append(problems, "database.path is required")
	}
	if c.Player.Volume < 0 || c.Player.Volume > 100 {
		problems = append(problems, fmt.Sprintf("player.volume must be between 0 and 100, got %d", c.Player.Volume))
	}
	if c.Player.Backend != BackendClock && c.Player.Backend != BackendMPV {
		problems = append(problems, fmt.Sprintf("player.backend must be %q or %q, got %q", BackendClock, BackendMPV, c.Player.Backend))
	}
	if c.Player.ProgressIntervalMS <= 0 {
		problems = append(problems, "player.progress_interval_ms must be positive")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
