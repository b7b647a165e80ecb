package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every environment variable override.
const envPrefix = "MQTTPUB_"

// Config is the root configuration structure for the MQTT event publisher.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT    MQTTConfig    `yaml:"mqtt" envPrefix:"MQTT_"`
	Codec   CodecConfig   `yaml:"codec" envPrefix:"CODEC_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOGGING_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Input   InputConfig   `yaml:"input" envPrefix:"INPUT_"`
}

// MQTTConfig contains the broker connection and delivery settings of one output.
type MQTTConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Topic    string `yaml:"topic" env:"TOPIC"`
	Retain   bool   `yaml:"retain" env:"RETAIN"`
	QoS      int    `yaml:"qos" env:"QOS"`
	ClientID string `yaml:"client_id" env:"CLIENT_ID"`

	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`

	// SSL enables TLS. CertFile, KeyFile and CAFile are used for mutual TLS
	// and must be given together.
	SSL      bool   `yaml:"ssl" env:"SSL"`
	CertFile string `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile  string `yaml:"key_file" env:"KEY_FILE"`
	CAFile   string `yaml:"ca_file" env:"CA_FILE"`

	// Intervals and timeouts, in seconds.
	ConnectRetryInterval int `yaml:"connect_retry_interval" env:"CONNECT_RETRY_INTERVAL"`
	ConnectTimeout       int `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	PublishTimeout       int `yaml:"publish_timeout" env:"PUBLISH_TIMEOUT"`
	KeepAlive            int `yaml:"keep_alive" env:"KEEP_ALIVE"`
}

// CodecConfig selects the payload encoding.
type CodecConfig struct {
	// Name is one of "json", "plain" or "line".
	Name string `yaml:"name" env:"NAME"`
	// Format is the field template used by the plain and line codecs.
	Format string `yaml:"format" env:"FORMAT"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Address string `yaml:"address" env:"ADDRESS"`
}

// InputConfig controls how the standalone host batches incoming records.
type InputConfig struct {
	BatchSize       int `yaml:"batch_size" env:"BATCH_SIZE"`
	FlushIntervalMS int `yaml:"flush_interval_ms" env:"FLUSH_INTERVAL_MS"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MQTTPUB_SECTION_KEY
// For example: MQTTPUB_MQTT_HOST, MQTTPUB_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: DefaultMQTTConfig(),
		Codec: CodecConfig{
			Name: "json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
		Input: InputConfig{
			BatchSize:       100,
			FlushIntervalMS: 1000,
		},
	}
}

// DefaultMQTTConfig returns the MQTT defaults. Host and Topic have no
// default and must be configured.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Port:                 8883,
		QoS:                  0,
		ConnectRetryInterval: 10,
		ConnectTimeout:       30,
		PublishTimeout:       10,
		KeepAlive:            60,
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Only variables that are set replace file values.
func applyEnvOverrides(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix})
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	errs := c.MQTT.problems()

	switch strings.ToLower(c.Codec.Name) {
	case "", "json", "plain", "line":
	default:
		errs = append(errs, fmt.Sprintf("codec.name %q is not one of json, plain, line", c.Codec.Name))
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = append(errs, "metrics.address is required when metrics are enabled")
	}

	if c.Input.BatchSize < 1 {
		errs = append(errs, "input.batch_size must be at least 1")
	}
	if c.Input.FlushIntervalMS < 1 {
		errs = append(errs, "input.flush_interval_ms must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Validate checks the MQTT section on its own. Hosts that do not use the
// YAML loader (such as the Benthos plugin) call this directly.
func (m MQTTConfig) Validate() error {
	if errs := m.problems(); len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (m MQTTConfig) problems() []string {
	var errs []string

	if m.Host == "" {
		errs = append(errs, "mqtt.host is required")
	}
	if m.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if m.Port < 1 || m.Port > 65535 {
		errs = append(errs, "mqtt.port must be between 1 and 65535")
	}

	// QoS 2 is not supported.
	if m.QoS < 0 || m.QoS > 1 {
		errs = append(errs, "mqtt.qos must be 0 or 1")
	}

	if m.SSL {
		set := 0
		for _, f := range []string{m.CertFile, m.KeyFile, m.CAFile} {
			if f != "" {
				set++
			}
		}
		if set != 0 && set != 3 {
			errs = append(errs, "mqtt.cert_file, mqtt.key_file and mqtt.ca_file must be set together")
		}
	}

	if m.ConnectRetryInterval < 1 {
		errs = append(errs, "mqtt.connect_retry_interval must be at least 1 second")
	}
	if m.ConnectTimeout < 1 {
		errs = append(errs, "mqtt.connect_timeout must be at least 1 second")
	}
	if m.PublishTimeout < 1 {
		errs = append(errs, "mqtt.publish_timeout must be at least 1 second")
	}
	if m.KeepAlive < 0 {
		errs = append(errs, "mqtt.keep_alive cannot be negative")
	}

	return errs
}

// GetConnectRetryInterval returns the backoff between delivery attempts as a Duration.
func (m MQTTConfig) GetConnectRetryInterval() time.Duration {
	return time.Duration(m.ConnectRetryInterval) * time.Second
}

// GetConnectTimeout returns the connection handshake timeout as a Duration.
func (m MQTTConfig) GetConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeout) * time.Second
}

// GetPublishTimeout returns the publish acknowledgement timeout as a Duration.
func (m MQTTConfig) GetPublishTimeout() time.Duration {
	return time.Duration(m.PublishTimeout) * time.Second
}

// GetKeepAlive returns the MQTT keepalive interval as a Duration.
func (m MQTTConfig) GetKeepAlive() time.Duration {
	return time.Duration(m.KeepAlive) * time.Second
}

// GetFlushInterval returns the input batch flush interval as a Duration.
func (i InputConfig) GetFlushInterval() time.Duration {
	return time.Duration(i.FlushIntervalMS) * time.Millisecond
}
