package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Homesynth.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site          SiteConfig          `yaml:"site"`
	Database      DatabaseConfig      `yaml:"database"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Suggestions   SuggestionsConfig   `yaml:"suggestions"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HomeAssistantConfig contains connection settings for the external runtime.
// The core treats Home Assistant as the sole read/write boundary to live
// smart-home state.
type HomeAssistantConfig struct {
	// BaseURL is the root of the Home Assistant REST API (e.g., "http://homeassistant:8123").
	BaseURL string `yaml:"base_url"`

	// Token is the long-lived access token used for bearer authentication.
	Token string `yaml:"token"`

	// VerifySSL controls TLS certificate verification for HTTPS endpoints.
	VerifySSL bool `yaml:"verify_ssl"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`

	// RetryAttempts is the number of attempts for transient failures (min 1).
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryBackoff is the initial retry backoff in milliseconds; doubles per attempt.
	RetryBackoff int `yaml:"retry_backoff"`

	// CacheTTL is how long the entity snapshot cache stays fresh, in seconds.
	CacheTTL int `yaml:"cache_ttl"`
}

// MQTTConfig contains MQTT broker connection settings for the state-event stream.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// StatestreamPrefix is the topic prefix of Home Assistant's MQTT
	// Statestream integration. Default: "homeassistant/statestream".
	StatestreamPrefix string `yaml:"statestream_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings for the long-term
// state-event archive.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SynthesisConfig contains document synthesis defaults.
type SynthesisConfig struct {
	// DefaultTheme is applied to dashboards that do not specify one.
	DefaultTheme string `yaml:"default_theme"`

	// DefaultIcon is the fallback icon for views whose domain has no mapping.
	DefaultIcon string `yaml:"default_icon"`
}

// SuggestionsConfig contains pattern-mining settings.
type SuggestionsConfig struct {
	// Threshold is the minimum co-occurrence count for a pattern to qualify (min 1).
	Threshold int `yaml:"threshold"`

	// MaxSuggestions caps the number of candidates returned per mining run (min 1).
	MaxSuggestions int `yaml:"max_suggestions"`

	// WindowDays is the sliding analysis window over the event log.
	WindowDays int `yaml:"window_days"`

	// LagSeconds is the trigger-to-effect co-occurrence window.
	LagSeconds int `yaml:"lag_seconds"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMESYNTH_SECTION_KEY
// For example: HOMESYNTH_DATABASE_PATH, HOMESYNTH_HA_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Homesynth",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/homesynth.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		HomeAssistant: HomeAssistantConfig{
			BaseURL:       "http://localhost:8123",
			VerifySSL:     true,
			Timeout:       10,
			RetryAttempts: 3,
			RetryBackoff:  500,
			CacheTTL:      60,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homesynth",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			StatestreamPrefix: "homeassistant/statestream",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Synthesis: SynthesisConfig{
			DefaultTheme: "default",
			DefaultIcon:  "mdi:home",
		},
		Suggestions: SuggestionsConfig{
			Threshold:      3,
			MaxSuggestions: 5,
			WindowDays:     7,
			LagSeconds:     60,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMESYNTH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HOMESYNTH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Home Assistant
	if v := os.Getenv("HOMESYNTH_HA_URL"); v != "" {
		cfg.HomeAssistant.BaseURL = v
	}
	if v := os.Getenv("HOMESYNTH_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}

	// MQTT
	if v := os.Getenv("HOMESYNTH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMESYNTH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMESYNTH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HOMESYNTH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOMESYNTH_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("HOMESYNTH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Home Assistant validation
	if c.HomeAssistant.BaseURL == "" {
		errs = append(errs, "homeassistant.base_url is required")
	}
	if c.HomeAssistant.Token == "" {
		errs = append(errs, "homeassistant.token is required (set HOMESYNTH_HA_TOKEN environment variable)")
	}
	if c.HomeAssistant.Timeout < 1 {
		errs = append(errs, "homeassistant.timeout must be at least 1 second")
	}
	if c.HomeAssistant.RetryAttempts < 1 {
		errs = append(errs, "homeassistant.retry_attempts must be at least 1")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Suggestion knobs are consumed as pre-validated integers; reject
	// nonsensical values here so downstream code never has to.
	if c.Suggestions.Threshold < 1 {
		errs = append(errs, "suggestions.threshold must be at least 1")
	}
	if c.Suggestions.MaxSuggestions < 1 {
		errs = append(errs, "suggestions.max_suggestions must be at least 1")
	}
	if c.Suggestions.WindowDays < 1 {
		errs = append(errs, "suggestions.window_days must be at least 1")
	}
	if c.Suggestions.LagSeconds < 1 {
		errs = append(errs, "suggestions.lag_seconds must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// RequestTimeout returns the Home Assistant per-request timeout as a Duration.
func (h HomeAssistantConfig) RequestTimeout() time.Duration {
	return time.Duration(h.Timeout) * time.Second
}

// BackoffInterval returns the initial retry backoff as a Duration.
func (h HomeAssistantConfig) BackoffInterval() time.Duration {
	return time.Duration(h.RetryBackoff) * time.Millisecond
}

// CacheStaleness returns the entity snapshot cache TTL as a Duration.
func (h HomeAssistantConfig) CacheStaleness() time.Duration {
	return time.Duration(h.CacheTTL) * time.Second
}

// Window returns the sliding analysis window as a Duration.
func (s SuggestionsConfig) Window() time.Duration {
	return time.Duration(s.WindowDays) * 24 * time.Hour
}

// Lag returns the co-occurrence lag window as a Duration.
func (s SuggestionsConfig) Lag() time.Duration {
	return time.Duration(s.LagSeconds) * time.Second
}
