package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Ensto bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	BLE      BLEConfig      `yaml:"ble"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Storage  StorageConfig  `yaml:"storage"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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
}

// BLEConfig contains Bluetooth transport settings.
//
// The settle delay matters: the thermostats report "connected" before their
// GATT table is resolved, and characteristic operations issued too early fail
// or return garbage. Do not lower it below a few seconds.
type BLEConfig struct {
	// DiscoverTimeout is the scan timeout per device (seconds).
	DiscoverTimeout int `yaml:"discover_timeout"`

	// ConnectTimeout is the connection timeout per device (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// SettleDelay is the wait after connect before the first
	// characteristic operation (seconds).
	SettleDelay int `yaml:"settle_delay"`

	// HandshakeRetries is the number of attempts for the unauthenticated
	// factory-id read before the session is declared failed.
	HandshakeRetries int `yaml:"handshake_retries"`

	// HandshakeBackoff is the delay between handshake attempts (seconds).
	HandshakeBackoff int `yaml:"handshake_backoff"`
}

// BridgeConfig contains the polling schedule and the device list.
type BridgeConfig struct {
	// PollInterval is the sleep between full polling cycles (seconds).
	PollInterval int `yaml:"poll_interval"`

	// DiscoveryPrefix is the Home Assistant MQTT discovery prefix.
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	// DiscoveryEnabled toggles Home Assistant discovery publishing.
	DiscoveryEnabled bool `yaml:"discovery_enabled"`

	// HealthInterval is how often bridge health is published (seconds).
	HealthInterval int `yaml:"health_interval"`

	// Devices is the list of thermostats to poll, serviced in order.
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig identifies one thermostat.
//
// Either Name or Address must be set. Discovery matches on the address when
// one is given, otherwise on the advertised name. Layout selects the telemetry
// frame encoding ("a" or "b"); firmware revisions in the field disagree and no
// reliable discriminant byte is known, so this is configured per device.
type DeviceConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Layout  string `yaml:"layout"`
}

// Identifier returns the value used for scan matching: the address when
// configured, otherwise the advertised name.
func (d DeviceConfig) Identifier() string {
	if d.Address != "" {
		return d.Address
	}
	return d.Name
}

// StorageConfig contains durable storage paths.
type StorageConfig struct {
	// CredentialsPath is the JSON document holding per-device factory IDs.
	CredentialsPath string `yaml:"credentials_path"`

	// DatabasePath is the SQLite database for the reading history.
	DatabasePath string `yaml:"database_path"`

	// HistoryEnabled toggles recording readings to SQLite.
	HistoryEnabled bool `yaml:"history_enabled"`

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ENSTO_SECTION_KEY
// For example: ENSTO_MQTT_HOST, ENSTO_MQTT_PASSWORD
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

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// The BLE timing defaults come from field experience with ECO16BT units
// and should only be changed with a physical device at hand.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ensto-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		BLE: BLEConfig{
			DiscoverTimeout:  10,
			ConnectTimeout:   20,
			SettleDelay:      5,
			HandshakeRetries: 3,
			HandshakeBackoff: 2,
		},
		Bridge: BridgeConfig{
			PollInterval:     120,
			DiscoveryPrefix:  "homeassistant",
			DiscoveryEnabled: true,
			HealthInterval:   60,
		},
		Storage: StorageConfig{
			CredentialsPath: "./data/ensto_devices.json",
			DatabasePath:    "./data/ensto.db",
			HistoryEnabled:  true,
			BusyTimeout:     5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ENSTO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("ENSTO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ENSTO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ENSTO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Storage
	if v := os.Getenv("ENSTO_CREDENTIALS_PATH"); v != "" {
		cfg.Storage.CredentialsPath = v
	}
	if v := os.Getenv("ENSTO_DATABASE_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}

	// InfluxDB
	if v := os.Getenv("ENSTO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Bridge validation
	if c.Bridge.PollInterval < 1 {
		errs = append(errs, "bridge.poll_interval must be at least 1 second")
	}
	if len(c.Bridge.Devices) == 0 {
		errs = append(errs, "bridge.devices must list at least one device")
	}
	for i, d := range c.Bridge.Devices {
		if d.Name == "" && d.Address == "" {
			errs = append(errs, fmt.Sprintf("bridge.devices[%d]: name or address is required", i))
		}
		switch strings.ToLower(d.Layout) {
		case "", "a", "b":
		default:
			errs = append(errs, fmt.Sprintf("bridge.devices[%d]: layout must be \"a\" or \"b\"", i))
		}
	}

	// Storage validation
	if c.Storage.CredentialsPath == "" {
		errs = append(errs, "storage.credentials_path is required")
	}
	if c.Storage.HistoryEnabled && c.Storage.DatabasePath == "" {
		errs = append(errs, "storage.database_path is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetDiscoverTimeout returns the BLE discovery timeout as a Duration.
func (c *Config) GetDiscoverTimeout() time.Duration {
	return time.Duration(c.BLE.DiscoverTimeout) * time.Second
}

// GetConnectTimeout returns the BLE connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.BLE.ConnectTimeout) * time.Second
}

// GetSettleDelay returns the post-connect settle delay as a Duration.
func (c *Config) GetSettleDelay() time.Duration {
	return time.Duration(c.BLE.SettleDelay) * time.Second
}

// GetHandshakeBackoff returns the handshake retry backoff as a Duration.
func (c *Config) GetHandshakeBackoff() time.Duration {
	return time.Duration(c.BLE.HandshakeBackoff) * time.Second
}

// GetPollInterval returns the poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Bridge.PollInterval) * time.Second
}

// GetHealthInterval returns the health reporting interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}
