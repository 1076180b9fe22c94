package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestConfig_LoadDefaults(t *testing.T) {
	viper.Reset()

	config, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if config.Server.Endpoint != "http://localhost:8980" {
		t.Errorf("Expected default endpoint 'http://localhost:8980', got '%s'", config.Server.Endpoint)
	}

	if config.Server.Timeout != 10*time.Second {
		t.Errorf("Expected default timeout 10s, got %v", config.Server.Timeout)
	}

	if config.Log.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", config.Log.Level)
	}

	if config.State.Dir == "" {
		t.Error("State dir should default to a non-empty path")
	}
}

func TestConfig_LoadWithFile(t *testing.T) {
	tempDir := t.TempDir()

	configFile := filepath.Join(tempDir, "config.yaml")
	configContent := `
server:
  endpoint: "http://pos.example.com:8980"
  timeout: 5s
log:
  level: "debug"
state:
  dir: "/var/lib/kioskterm"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	viper.Reset()
	viper.SetConfigFile(configFile)

	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		t.Fatalf("Failed to unmarshal config: %v", err)
	}

	if config.Server.Endpoint != "http://pos.example.com:8980" {
		t.Errorf("Expected endpoint 'http://pos.example.com:8980', got '%s'", config.Server.Endpoint)
	}

	if config.Log.Level != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", config.Log.Level)
	}

	if config.State.Dir != "/var/lib/kioskterm" {
		t.Errorf("Expected state dir '/var/lib/kioskterm', got '%s'", config.State.Dir)
	}
}
