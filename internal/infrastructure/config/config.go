package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // scratch images ship no zoneinfo

	"github.com/caarlos0/env/v7"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for tibber_refiner.
// Values come from defaults, an optional YAML file and environment variables, in that order.
type Config struct {
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Tibber   TibberConfig   `yaml:"tibber"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InfluxDBConfig contains the InfluxDB 1.x connection settings.
type InfluxDBConfig struct {
	Addr            string `yaml:"addr" env:"INFLUXDB_ADDR"`
	Database        string `yaml:"database" env:"INFLUXDB_DB_NAME"`
	Username        string `yaml:"username" env:"INFLUXDB_USERNAME"`
	Password        string `yaml:"password" env:"INFLUXDB_PASSWORD"`
	RetentionPolicy string `yaml:"retention_policy" env:"INFLUXDB_RETENTION_POLICY"`
	Timeout         int    `yaml:"timeout" env:"INFLUXDB_TIMEOUT"` // seconds
}

// TibberConfig contains Tibber API settings.
type TibberConfig struct {
	Endpoint        string `yaml:"endpoint" env:"TIBBER_ENDPOINT"`
	Token           string `yaml:"token" env:"TIBBER_TOKEN"`
	CredentialsFile string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`
	HomeID          string `yaml:"home_id" env:"TIBBER_HOME_ID"`
	Interactive     bool   `yaml:"interactive" env:"TIBBER_INTERACTIVE"`
	Timeout         int    `yaml:"timeout" env:"TIBBER_TIMEOUT"` // seconds
}

// ScheduleConfig controls when prices are fetched and refined.
type ScheduleConfig struct {
	// UpdateTime is the local time of day new prices are fetched, "H" or "HH:MM".
	UpdateTime string `yaml:"update_time" env:"UPDATE_TIME"`
	Retries    int    `yaml:"retries" env:"RETRIES"`
	Timezone   string `yaml:"timezone" env:"TIMEZONE"`
	RunOnStart bool   `yaml:"run_on_start" env:"RUN_ON_START"`
}

// DatabaseConfig contains SQLite journal settings.
type DatabaseConfig struct {
	Path        string `yaml:"path" env:"DATABASE_PATH"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled" env:"MQTT_ENABLED"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos" env:"MQTT_QOS"`
	TopicPrefix string              `yaml:"topic_prefix" env:"MQTT_TOPIC_PREFIX"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host" env:"MQTT_HOST"`
	Port     int    `yaml:"port" env:"MQTT_PORT"`
	TLS      bool   `yaml:"tls" env:"MQTT_TLS"`
	ClientID string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" env:"MQTT_USERNAME"`
	Password string `yaml:"password" env:"MQTT_PASSWORD"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled" env:"API_ENABLED"`
	Host     string           `yaml:"host" env:"API_HOST"`
	Port     int              `yaml:"port" env:"API_PORT"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level" env:"LOG_LEVEL"`
	Format string            `yaml:"format" env:"LOG_FORMAT"`
	Output string            `yaml:"output" env:"LOG_OUTPUT"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path" env:"LOG_FILE"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is not empty
//  3. Environment variables
//
// The container deployment sets everything through the environment, so the
// YAML file is optional.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for none
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, an environment value is malformed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the defaults of the container deployment.
func defaultConfig() *Config {
	return &Config{
		InfluxDB: InfluxDBConfig{
			Timeout: 10,
		},
		Tibber: TibberConfig{
			Endpoint:        "https://api.tibber.com/v1-beta/gql",
			CredentialsFile: "/credentials/credentials",
			Interactive:     true,
			Timeout:         30,
		},
		Schedule: ScheduleConfig{
			UpdateTime: "0",
			Retries:    10,
			Timezone:   "Local",
			RunOnStart: true,
		},
		Database: DatabaseConfig{
			Path:        "/var/log/tibber_refiner.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tibber-refiner",
			},
			QoS:         1,
			TopicPrefix: "casamack/tibber",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "both",
			File: FileLoggingConfig{
				Path:       "/var/log/tibber_refiner.log",
				MaxSize:    10,
				MaxBackups: 7,
				MaxAge:     30,
			},
		},
	}
}

// applyEnvOverrides overwrites fields whose environment variable is set.
// Unset variables leave the current value untouched.
func applyEnvOverrides(cfg *Config) error {
	return env.Parse(cfg)
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.InfluxDB.Addr == "" {
		errs = append(errs, "influxdb.addr is required (set INFLUXDB_ADDR)")
	}
	if c.InfluxDB.Database == "" {
		errs = append(errs, "influxdb.database is required (set INFLUXDB_DB_NAME)")
	}

	if c.Schedule.Retries < 0 {
		errs = append(errs, "schedule.retries must not be negative")
	}
	if _, _, err := ParseUpdateTime(c.Schedule.UpdateTime); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("schedule.timezone %q: %v", c.Schedule.Timezone, err))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required")
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ParseUpdateTime parses the update time of day.
//
// Accepted forms are an hour ("0", "13") or hour and minute ("6:30", "06:30").
func ParseUpdateTime(value string) (hour, minute int, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, fmt.Errorf("schedule.update_time is required")
	}

	h, m, hasMinute := strings.Cut(value, ":")
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("schedule.update_time %q: hour must be 0-23", value)
	}
	if hasMinute {
		minute, err = strconv.Atoi(m)
		if err != nil || len(m) != 2 || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("schedule.update_time %q: minute must be 00-59", value)
		}
	}

	return hour, minute, nil
}

// Location returns the time zone prices are bucketed into days with.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" || c.Schedule.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

// GetInfluxTimeout returns the InfluxDB request timeout as a Duration.
func (c *Config) GetInfluxTimeout() time.Duration {
	return time.Duration(c.InfluxDB.Timeout) * time.Second
}

// GetTibberTimeout returns the Tibber request timeout as a Duration.
func (c *Config) GetTibberTimeout() time.Duration {
	return time.Duration(c.Tibber.Timeout) * time.Second
}
