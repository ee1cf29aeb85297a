package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Scenarios ScenarioConfig  `toml:"scenarios"`
	Database  DatabaseConfig  `toml:"database"`
}

// ServiceConfig points the HTTP transport at the media-library proxy and its session.
type ServiceConfig struct {
	BaseURL     string        `toml:"base_url"`
	CurlPath    string        `toml:"curl_path"` // browser "Copy as cURL" capture holding the session cookie
	AccessToken string        `toml:"access_token"`
	Timeout     time.Duration `toml:"timeout"`
}

// ReconcileConfig holds read-after-write verification timings.
type ReconcileConfig struct {
	Settle       time.Duration `toml:"settle"`
	MaxWait      time.Duration `toml:"max_wait"`
	PollInterval time.Duration `toml:"poll_interval"`
	Backoff      float64       `toml:"backoff"`
	MaxInterval  time.Duration `toml:"max_interval"`
}

// ScenarioConfig holds inputs for the built-in verification scenarios.
type ScenarioConfig struct {
	UploadFile  string  `toml:"upload_file"`
	SongID      string  `toml:"song_id"` // empty picks a random library song
	Concurrency int     `toml:"concurrency"`
	RateLimit   float64 `toml:"rate_limit"` // scenario starts per second
	ExactNames  bool    `toml:"exact_names"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// Validate rejects timings the reconciler cannot work with.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("%w: service.base_url is required", ErrInvalidConfig)
	}
	if c.Reconcile.PollInterval <= 0 {
		return fmt.Errorf("%w: reconcile.poll_interval must be positive", ErrInvalidConfig)
	}
	if c.Reconcile.MaxWait < c.Reconcile.Settle {
		return fmt.Errorf("%w: reconcile.max_wait must not be shorter than reconcile.settle", ErrInvalidConfig)
	}
	if c.Reconcile.Backoff != 0 && c.Reconcile.Backoff < 1 {
		return fmt.Errorf("%w: reconcile.backoff must be >= 1", ErrInvalidConfig)
	}
	return nil
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
