package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
display:
  target: ":1"
  restore_on_start: true
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Display.Target != ":1" {
		t.Errorf("Display.Target = %q, want %q", cfg.Display.Target, ":1")
	}
	if !cfg.Display.RestoreOnStart {
		t.Error("Display.RestoreOnStart = false, want true")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	// Defaults survive for keys the file leaves out.
	if cfg.Bridge.ID != "vibrant" {
		t.Errorf("Bridge.ID = %q, want default %q", cfg.Bridge.ID, "vibrant")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	cfg, err := LoadOptional("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOptional() error = %v", err)
	}
	if cfg.API.Port != 8642 {
		t.Errorf("API.Port = %d, want default 8642", cfg.API.Port)
	}
}

func TestLoadOptional_InvalidYAML(t *testing.T) {
	_, err := LoadOptional(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("LoadOptional() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
mqtt:
  qos: 5
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for qos 5, got nil")
	}
	if !strings.Contains(err.Error(), "mqtt.qos") {
		t.Errorf("error = %v, want mention of mqtt.qos", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"database enabled without path", func(c *Config) { c.Database.Path = "" }, true},
		{"database disabled without path", func(c *Config) {
			c.Database.Enabled = false
			c.Database.Path = ""
		}, false},
		{"negative qos", func(c *Config) { c.MQTT.QoS = -1 }, true},
		{"mqtt without bridge id", func(c *Config) {
			c.MQTT.Enabled = true
			c.Bridge.ID = ""
		}, true},
		{"api port zero", func(c *Config) { c.API.Port = 0 }, true},
		{"api disabled port zero", func(c *Config) {
			c.API.Enabled = false
			c.API.Port = 0
		}, false},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true }, true},
		{"influx complete", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.URL = "http://localhost:8086"
		}, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("VIBRANT_DATABASE_PATH", "/env/vibrant.db")
	t.Setenv("VIBRANT_MQTT_HOST", "mqtt.env")
	t.Setenv("VIBRANT_API_PORT", "9000")
	t.Setenv("VIBRANT_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("VIBRANT_LOG_LEVEL", "debug")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/env/vibrant.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.env" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_DisplayTarget(t *testing.T) {
	t.Setenv("VIBRANT_DISPLAY", ":7")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if cfg.Display.Target != ":7" {
		t.Errorf("Display.Target = %q, want :7 from environment", cfg.Display.Target)
	}

	cfg = defaultConfig()
	cfg.Display.Target = ":2"
	applyEnvOverrides(cfg)
	if cfg.Display.Target != ":2" {
		t.Errorf("Display.Target = %q, explicit target must win", cfg.Display.Target)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	t.Setenv("VIBRANT_API_PORT", "not-a-port")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if cfg.API.Port != 8642 {
		t.Errorf("API.Port = %d, want default kept", cfg.API.Port)
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetHealthInterval(); got != 30*time.Second {
		t.Errorf("GetHealthInterval() = %v", got)
	}
}
