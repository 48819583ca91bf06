package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Remote     RemoteConfig     `yaml:"remote"`
	Engine     EngineConfig     `yaml:"engine"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig describes the backend the executor pushes mutations to.
type RemoteConfig struct {
	BaseURL       string  `yaml:"base_url"`
	Token         string  `yaml:"token"`
	TimeoutSec    int     `yaml:"timeout_seconds"`
	RPS           float64 `yaml:"rps"`
	Burst         int     `yaml:"burst"`
	ProbeInterval string  `yaml:"probe_interval"`
}

func (c RemoteConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c RemoteConfig) Probe() time.Duration {
	if d, err := time.ParseDuration(c.ProbeInterval); err == nil && d > 0 {
		return d
	}
	return 15 * time.Second
}

type EngineConfig struct {
	MaxRetries  int    `yaml:"max_retries"`
	DeferLimit  int    `yaml:"defer_limit"`
	BackoffBase string `yaml:"backoff_base"`
	BackoffMax  string `yaml:"backoff_max"`
	LogCapacity int    `yaml:"log_capacity"`
}

func (c EngineConfig) BackoffBaseDuration() time.Duration {
	if d, err := time.ParseDuration(c.BackoffBase); err == nil && d > 0 {
		return d
	}
	return models.DefaultBackoffBase
}

func (c EngineConfig) BackoffMaxDuration() time.Duration {
	if d, err := time.ParseDuration(c.BackoffMax); err == nil && d > 0 {
		return d
	}
	return models.DefaultBackoffMax
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey names an authenticated principal. The Name is used as the
// ownerId for mutations pushed through the admin API.
type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables referenced from the YAML are
	// expanded before parsing.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Remote.BaseURL == "" {
		return errors.New("remote base_url is required")
	}
	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api_keys are configured")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "vmind-sync"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Enabled && !c.API.Auth.Enabled {
		// auth on by default when the API is exposed
		c.API.Auth.Enabled = true
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Engine.MaxRetries == 0 {
		c.Engine.MaxRetries = models.DefaultMaxRetries
	}
	if c.Engine.DeferLimit == 0 {
		c.Engine.DeferLimit = models.DefaultDeferLimit
	}
	if c.Engine.LogCapacity == 0 {
		c.Engine.LogCapacity = models.DefaultLogCapacity
	}
	if c.Remote.RPS == 0 {
		c.Remote.RPS = 10
	}
	if c.Remote.Burst == 0 {
		c.Remote.Burst = 5
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
