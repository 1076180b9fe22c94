package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config is the terminal's static configuration. Credential state lives in
// the state directory, managed by the session layer, not here.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	State  StateConfig  `mapstructure:"state"`
}

type ServerConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// ConfigureZerolog applies the configured log level globally.
func (c *LogConfig) ConfigureZerolog() {
	level := zerolog.InfoLevel
	switch strings.ToLower(c.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)
}

func defaultStateDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".kioskterm"
	}
	return filepath.Join(homeDir, ".kioskterm")
}

// Load reads the terminal config from the usual search paths with
// environment overrides.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.kioskterm")
	viper.AddConfigPath("/etc/kioskterm/")

	viper.SetEnvPrefix("KIOSK")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.BindEnv("server.endpoint")
	viper.BindEnv("log.level")
	viper.BindEnv("state.dir")

	viper.SetDefault("server.endpoint", "http://localhost:8980")
	viper.SetDefault("server.timeout", 10*time.Second)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("state.dir", defaultStateDir())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// Save writes the current config to the terminal's config directory.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".kioskterm")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, "config.yaml")
	viper.SetConfigFile(configFile)

	viper.Set("server.endpoint", c.Server.Endpoint)
	viper.Set("server.timeout", c.Server.Timeout)
	viper.Set("log.level", c.Log.Level)
	viper.Set("state.dir", c.State.Dir)

	return viper.WriteConfig()
}
