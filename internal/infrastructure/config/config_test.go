package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the two variables every deployment must provide.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("INFLUXDB_ADDR", "http://influxdb:8086")
	t.Setenv("INFLUXDB_DB_NAME", "energy")
}

func TestLoad_EnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InfluxDB.Addr != "http://influxdb:8086" {
		t.Errorf("InfluxDB.Addr = %q, want %q", cfg.InfluxDB.Addr, "http://influxdb:8086")
	}
	if cfg.InfluxDB.Database != "energy" {
		t.Errorf("InfluxDB.Database = %q, want %q", cfg.InfluxDB.Database, "energy")
	}
	if cfg.Schedule.Retries != 10 {
		t.Errorf("Schedule.Retries = %d, want 10", cfg.Schedule.Retries)
	}
	if cfg.Schedule.UpdateTime != "0" {
		t.Errorf("Schedule.UpdateTime = %q, want %q", cfg.Schedule.UpdateTime, "0")
	}
	if cfg.Tibber.CredentialsFile != "/credentials/credentials" {
		t.Errorf("Tibber.CredentialsFile = %q, want /credentials/credentials", cfg.Tibber.CredentialsFile)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	// The container persists only /var/log; the journal must live there too.
	if filepath.Dir(cfg.Database.Path) != filepath.Dir(cfg.Logging.File.Path) {
		t.Errorf("Database.Path = %q, want it beside the log file %q", cfg.Database.Path, cfg.Logging.File.Path)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("INFLUXDB_ADDR", "")
	t.Setenv("INFLUXDB_DB_NAME", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error without INFLUXDB_ADDR/INFLUXDB_DB_NAME, got nil")
	}
	if !strings.Contains(err.Error(), "INFLUXDB_ADDR") || !strings.Contains(err.Error(), "INFLUXDB_DB_NAME") {
		t.Errorf("error %q should name both missing variables", err)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	content := `
influxdb:
  addr: "http://file:8086"
  database: "from_file"
schedule:
  update_time: "13:30"
  retries: 3
mqtt:
  enabled: true
  broker:
    host: "broker.local"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("INFLUXDB_DB_NAME", "from_env")
	t.Setenv("RETRIES", "5")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InfluxDB.Addr != "http://file:8086" {
		t.Errorf("InfluxDB.Addr = %q, want file value", cfg.InfluxDB.Addr)
	}
	if cfg.InfluxDB.Database != "from_env" {
		t.Errorf("InfluxDB.Database = %q, want env override", cfg.InfluxDB.Database)
	}
	if cfg.Schedule.Retries != 5 {
		t.Errorf("Schedule.Retries = %d, want 5", cfg.Schedule.Retries)
	}
	if cfg.Schedule.UpdateTime != "13:30" {
		t.Errorf("Schedule.UpdateTime = %q, want 13:30", cfg.Schedule.UpdateTime)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT = %+v, want enabled with host broker.local", cfg.MQTT)
	}
	// Untouched defaults survive a partial file.
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default 1883", cfg.MQTT.Broker.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_MalformedRetries(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RETRIES", "ten")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error for non-numeric RETRIES, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.InfluxDB.Addr = "http://localhost:8086"
		cfg.InfluxDB.Database = "energy"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing addr", mutate: func(c *Config) { c.InfluxDB.Addr = "" }, wantErr: true},
		{name: "missing database", mutate: func(c *Config) { c.InfluxDB.Database = "" }, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.Schedule.Retries = -1 }, wantErr: true},
		{name: "zero retries", mutate: func(c *Config) { c.Schedule.Retries = 0 }, wantErr: false},
		{name: "bad update time", mutate: func(c *Config) { c.Schedule.UpdateTime = "25" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "named timezone", mutate: func(c *Config) { c.Schedule.Timezone = "Europe/Oslo" }, wantErr: false},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{
			name:    "invalid QoS when mqtt enabled",
			mutate:  func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid QoS ignored when mqtt disabled",
			mutate:  func(c *Config) { c.MQTT.Enabled = false; c.MQTT.QoS = 3 },
			wantErr: false,
		},
		{
			name:    "invalid port when api enabled",
			mutate:  func(c *Config) { c.API.Enabled = true; c.API.Port = 70000 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseUpdateTime(t *testing.T) {
	tests := []struct {
		input      string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{input: "0", wantHour: 0, wantMinute: 0},
		{input: "13", wantHour: 13, wantMinute: 0},
		{input: " 7 ", wantHour: 7, wantMinute: 0},
		{input: "06:30", wantHour: 6, wantMinute: 30},
		{input: "6:05", wantHour: 6, wantMinute: 5},
		{input: "23:59", wantHour: 23, wantMinute: 59},
		{input: "", wantErr: true},
		{input: "24", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "12:5", wantErr: true},
		{input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			hour, minute, err := ParseUpdateTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUpdateTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if hour != tt.wantHour || minute != tt.wantMinute {
				t.Errorf("ParseUpdateTime(%q) = %d:%d, want %d:%d", tt.input, hour, minute, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := defaultConfig()

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc != time.Local {
		t.Errorf("Location() = %v, want time.Local", loc)
	}

	cfg.Schedule.Timezone = "Europe/Oslo"
	loc, err = cfg.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "Europe/Oslo" {
		t.Errorf("Location() = %v, want Europe/Oslo", loc)
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		InfluxDB: InfluxDBConfig{Timeout: 10},
		Tibber:   TibberConfig{Timeout: 30},
	}

	if got := cfg.GetInfluxTimeout().Seconds(); got != 10 {
		t.Errorf("GetInfluxTimeout() = %v, want 10", got)
	}
	if got := cfg.GetTibberTimeout().Seconds(); got != 30 {
		t.Errorf("GetTibberTimeout() = %v, want 30", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("INFLUXDB_ADDR", "http://influx:8086")
	t.Setenv("TIBBER_TOKEN", "secret-token")
	t.Setenv("CREDENTIALS_FILE", "/run/secrets/tibber")
	t.Setenv("UPDATE_TIME", "14")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("API_ENABLED", "true")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.InfluxDB.Addr != "http://influx:8086" {
		t.Errorf("InfluxDB.Addr = %q", cfg.InfluxDB.Addr)
	}
	if cfg.Tibber.Token != "secret-token" {
		t.Errorf("Tibber.Token = %q", cfg.Tibber.Token)
	}
	if cfg.Tibber.CredentialsFile != "/run/secrets/tibber" {
		t.Errorf("Tibber.CredentialsFile = %q", cfg.Tibber.CredentialsFile)
	}
	if cfg.Schedule.UpdateTime != "14" {
		t.Errorf("Schedule.UpdateTime = %q", cfg.Schedule.UpdateTime)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if !cfg.API.Enabled {
		t.Error("API.Enabled = false, want true")
	}
	// Unset variables keep defaults.
	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want default", cfg.MQTT.Broker.Host)
	}
}
