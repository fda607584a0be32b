package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reviewkit/adapters/redis"
	"reviewkit/adapters/sqlx"
	"reviewkit/core"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage adapters understood by the binaries.
const (
	AdapterMemory = "memory"
	AdapterFile   = "file"
	AdapterRedis  = "redis"
	AdapterSQL    = "sql"
	AdapterSQLite = "sqlite"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"ENV"`
	Profile     string      `json:"profile" env:"PROFILE"`

	// Review policy shared by every installation
	Review ReviewConfig `json:"review" envPrefix:"REVIEW_"`

	// Server configuration
	Server ServerConfig `json:"server" envPrefix:"SERVER_"`

	// Storage configuration
	Storage StorageConfig `json:"storage" envPrefix:"STORAGE_"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" envPrefix:"LOG_"`

	// Prompt funnel export
	Analytics AnalyticsConfig `json:"analytics" envPrefix:"ANALYTICS_"`

	// Security configuration
	Security SecurityConfig `json:"security" envPrefix:"SECURITY_"`

	// Outbound event delivery
	Webhooks WebhookConfig `json:"webhooks" envPrefix:"WEBHOOK_"`
}

// ReviewConfig mirrors core.Settings.
type ReviewConfig struct {
	AppID                 string `json:"app_id" env:"APP_ID"`
	DaysUntilFirstRequest int    `json:"days_until_first_request" env:"DAYS_UNTIL_FIRST_REQUEST" validate:"gte=0"`
	DaysUntilRemember     int    `json:"days_until_remember" env:"DAYS_UNTIL_REMEMBER" validate:"gte=0"`
	DevelopmentMode       bool   `json:"development_mode" env:"DEVELOPMENT_MODE"`
	Locale                string `json:"locale" env:"LOCALE"`
	StoreURLTemplate      string `json:"store_url_template" env:"STORE_URL_TEMPLATE" validate:"required,contains={appID}"`
	Texts                 Texts  `json:"texts,omitempty" envPrefix:"TEXT_"`
}

// Texts overrides the localized dialog strings.
type Texts struct {
	Title          string `json:"title,omitempty" env:"TITLE"`
	Message        string `json:"message,omitempty" env:"MESSAGE"`
	ReviewAction   string `json:"review_action,omitempty" env:"REVIEW"`
	RememberAction string `json:"remember_action,omitempty" env:"REMEMBER"`
	DeclineAction  string `json:"decline_action,omitempty" env:"DECLINE"`
}

// Settings converts the review section for the library.
func (r ReviewConfig) Settings() core.Settings {
	return core.Settings{
		AppID:                 r.AppID,
		DevelopmentMode:       r.DevelopmentMode,
		DaysUntilFirstRequest: r.DaysUntilFirstRequest,
		DaysUntilRemember:     r.DaysUntilRemember,
		Locale:                r.Locale,
		StoreURLTemplate:      r.StoreURLTemplate,
		Texts:                 core.Texts(r.Texts),
	}
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"ADDR" validate:"required"`
	PathPrefix        string        `json:"path_prefix" env:"PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"READ_HEADER_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"ADAPTER" validate:"oneof=memory file redis sql sqlite"`
	Redis   redis.Config `json:"redis,omitempty" envPrefix:"REDIS_"`
	SQL     sqlx.Config  `json:"sql,omitempty" envPrefix:"SQL_"`
	File    FileConfig   `json:"file,omitempty" envPrefix:"FILE_"`
	SQLite  SQLiteConfig `json:"sqlite,omitempty" envPrefix:"SQLITE_"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"PATH"`
}

// SQLiteConfig holds embedded database configuration
type SQLiteConfig struct {
	Path  string `json:"path" env:"PATH"`
	Debug bool   `json:"debug" env:"DEBUG"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format     string            `json:"format" env:"FORMAT" validate:"oneof=json text"`
	Output     string            `json:"output" env:"OUTPUT" validate:"oneof=stdout stderr"`
	Attributes map[string]string `json:"attributes,omitempty" env:"ATTRIBUTES"`
}

// AnalyticsConfig controls the prompt funnel exporter. Without an endpoint
// snapshots are logged.
type AnalyticsConfig struct {
	Enabled  bool          `json:"enabled" env:"ENABLED"`
	Interval time.Duration `json:"interval" env:"INTERVAL"`
	Endpoint string        `json:"endpoint,omitempty" env:"ENDPOINT" validate:"omitempty,url"`
	Token    string        `json:"token,omitempty" env:"TOKEN"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" envPrefix:"RATE_LIMIT_"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" env:"RPM"`
	BurstSize         int `json:"burst_size" env:"BURST"`
}

// WebhookConfig lists endpoints that receive review events.
type WebhookConfig struct {
	URLs    []string      `json:"urls,omitempty" env:"URLS" validate:"dive,url"`
	Secret  string        `json:"secret,omitempty" env:"SECRET"`
	Events  []string      `json:"events,omitempty" env:"EVENTS"`
	Timeout time.Duration `json:"timeout" env:"TIMEOUT" validate:"gt=0"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadProfile returns the preset for a named environment, with environment
// variables applied on top.
func LoadProfile(name string) (*Config, error) {
	cfg, err := profile(Environment(strings.ToLower(strings.TrimSpace(name))))
	if err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func profile(env Environment) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Environment = env
	cfg.Profile = string(env)
	switch env {
	case EnvDevelopment:
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	case EnvTesting:
		cfg.Logging.Level = "warn"
		cfg.Review.DevelopmentMode = true
	case EnvStaging:
		cfg.Storage.Adapter = AdapterSQLite
		cfg.Analytics.Enabled = true
	case EnvProduction:
		cfg.Storage.Adapter = AdapterRedis
		cfg.Server.CORSOrigin = ""
		cfg.Security.EnableRateLimit = true
		cfg.Analytics.Enabled = true
	default:
		return nil, fmt.Errorf("unknown profile %q", env)
	}
	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Review: ReviewConfig{
			DaysUntilFirstRequest: core.DefaultDaysUntilFirstRequest,
			DaysUntilRemember:     core.DefaultDaysUntilRemember,
			StoreURLTemplate:      core.AppStoreTemplate,
		},
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: AdapterMemory,
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/reviewkit.json",
			},
			SQLite: SQLiteConfig{
				Path: "./data/reviewkit.db",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Analytics: AnalyticsConfig{
			Enabled:  false,
			Interval: time.Minute,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
			APIKeys: []string{},
		},
		Webhooks: WebhookConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Var(c.Environment, "required,oneof=development testing staging production"); err != nil {
		errs = append(errs, "environment must be one of: development, testing, staging, production")
	}

	sections := []struct {
		name string
		err  error
	}{
		{"review", c.Review.Validate(c.Environment)},
		{"server", c.Server.Validate()},
		{"storage", c.Storage.Validate()},
		{"logging", c.Logging.Validate()},
		{"analytics", c.Analytics.Validate()},
		{"security", c.Security.Validate()},
		{"webhooks", c.Webhooks.Validate()},
	}
	for _, s := range sections {
		if s.err != nil {
			errs = append(errs, fmt.Sprintf("%s config: %v", s.name, s.err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if cfg.Webhooks.Secret != "" {
		cfg.Webhooks.Secret = "[REDACTED]"
	}
	if cfg.Analytics.Token != "" {
		cfg.Analytics.Token = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{fmt.Sprintf("[%d REDACTED]", len(c.Security.APIKeys))}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
