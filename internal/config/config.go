// Package config provides configuration management for the gateway.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Venue       VenueConfig     `mapstructure:"venue"`
	Transport   TransportConfig `mapstructure:"transport"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Security    SecurityConfig  `mapstructure:"security"`
	Store       StoreConfig     `mapstructure:"store"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
}

// VenueConfig selects the trading environment.
type VenueConfig struct {
	Environment string `mapstructure:"environment"` // "live", "paper"
}

// TransportConfig tunes the HTTP transport.
type TransportConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  bool   `mapstructure:"file"`
	Path  string `mapstructure:"path"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	ReadOnlyMode bool   `mapstructure:"read_only_mode"`
	AuditEnabled bool   `mapstructure:"audit_enabled"`
	AuditPath    string `mapstructure:"audit_path"`
}

// StoreConfig holds order ledger configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"` // ":memory:" keeps nothing across restarts
}

// MetricsConfig toggles the in-process metric reader.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Credentials holds venue credentials.
type Credentials struct {
	AppKey    string `mapstructure:"app_key"`
	AppSecret string `mapstructure:"app_secret"`
	AccountNo string `mapstructure:"account_no"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/kis-gateway"
	}
	return filepath.Join(home, ".config", "kis-gateway")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files
// are created from templates and loading continues with their defaults.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("venue.environment", "paper")
	v.SetDefault("transport.timeout", 30*time.Second)
	v.SetDefault("transport.max_retries", 2)
	v.SetDefault("transport.breaker_threshold", 5)
	v.SetDefault("transport.breaker_cooldown", 30*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.path", filepath.Join(configDir, "logs", "kisgw.log"))
	v.SetDefault("security.read_only_mode", false)
	v.SetDefault("security.audit_enabled", true)
	v.SetDefault("security.audit_path", filepath.Join(configDir, "logs", "audit.log"))
	v.SetDefault("store.path", ":memory:")
	v.SetDefault("metrics.enabled", false)
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplate(configDir, "config.toml", configTemplate, 0644); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		return createTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
	}

	return v.UnmarshalKey("kis", creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KIS_APP_KEY"); v != "" {
		cfg.Credentials.AppKey = v
	}
	if v := os.Getenv("KIS_APP_SECRET"); v != "" {
		cfg.Credentials.AppSecret = v
	}
	if v := os.Getenv("KIS_ACCOUNT_NO"); v != "" {
		cfg.Credentials.AccountNo = v
	}
	if v := os.Getenv("KIS_ENVIRONMENT"); v != "" {
		cfg.Venue.Environment = v
	}
	if v := os.Getenv("KIS_READ_ONLY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Security.ReadOnlyMode = b
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	env := strings.ToLower(c.Venue.Environment)
	if env != "live" && env != "paper" {
		return fmt.Errorf("invalid environment: %s (must be 'live' or 'paper')", c.Venue.Environment)
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("transport.timeout must be non-negative")
	}
	if c.Transport.MaxRetries < 0 {
		return fmt.Errorf("transport.max_retries must be non-negative")
	}
	if c.Transport.BreakerThreshold < 0 {
		return fmt.Errorf("transport.breaker_threshold must be non-negative")
	}
	return nil
}

// ValidateCredentials checks that the credentials needed for any venue call
// are present. It is separate from Validate so offline commands still work.
func (c *Config) ValidateCredentials() error {
	if c.Credentials.AppKey == "" {
		return fmt.Errorf("app_key is not configured (set it in credentials.toml or KIS_APP_KEY)")
	}
	if c.Credentials.AppSecret == "" {
		return fmt.Errorf("app_secret is not configured (set it in credentials.toml or KIS_APP_SECRET)")
	}
	digits := strings.ReplaceAll(c.Credentials.AccountNo, "-", "")
	if len(digits) != 10 {
		return fmt.Errorf("account_no must have 10 digits, got %d", len(digits))
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("account_no must be numeric")
		}
	}
	return nil
}

// IsPaperMode returns true if the paper environment is selected.
func (c *Config) IsPaperMode() bool {
	return strings.ToLower(c.Venue.Environment) == "paper"
}
