package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath                 = "./configs/config.yaml"
	DefaultMaxFailuresPerMinute = 30
)

type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// Handle is the bot's @username without the "@". Empty means ask the Bot API.
	Handle      string        `yaml:"handle"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
}

type SupervisorConfig struct {
	MaxFailuresPerMinute int           `yaml:"max_failures_per_minute"`
	RestartDelay         time.Duration `yaml:"restart_delay"`
}

type StorageConfig struct {
	// DBPath of the run journal. Empty disables journaling.
	DBPath          string        `yaml:"db_path"`
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

type MetricsConfig struct {
	// ListenAddr for /metrics and /healthz. Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`
}

// envOverrides are applied on top of the file. Pointers distinguish unset from empty.
type envOverrides struct {
	Token                *string `envconfig:"TELEGRAM_BOT_TOKEN"`
	Handle               *string `envconfig:"TELEGRAM_BOT_HANDLE"`
	MaxFailuresPerMinute *int    `envconfig:"TELEGRAM_BOT_MAX_FAILURES_PER_MINUTE"`
}

func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: 60 * time.Second,
		},
		Supervisor: SupervisorConfig{
			MaxFailuresPerMinute: DefaultMaxFailuresPerMinute,
			RestartDelay:         time.Second,
		},
		Storage: StorageConfig{
			DBPath:          "./data/sedbot.db",
			Retention:       30 * 24 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by CONFIG_PATH, falling back to DefaultPath.
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultPath
	}
	return LoadFrom(configPath)
}

// LoadFrom reads path over the defaults and applies environment overrides.
// A missing file is not an error: the bot can run from the environment alone.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		content := expandEnv(string(data))
		if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return err
	}
	if ov.Token != nil {
		c.Telegram.Token = *ov.Token
	}
	if ov.Handle != nil {
		c.Telegram.Handle = *ov.Handle
	}
	if ov.MaxFailuresPerMinute != nil {
		c.Supervisor.MaxFailuresPerMinute = *ov.MaxFailuresPerMinute
	}
	c.Telegram.Handle = strings.TrimPrefix(strings.TrimSpace(c.Telegram.Handle), "@")
	return nil
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required (or set TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.PollTimeout < 0 {
		return fmt.Errorf("telegram.poll_timeout must not be negative")
	}
	if c.Supervisor.MaxFailuresPerMinute <= 0 {
		return fmt.Errorf("supervisor.max_failures_per_minute must be positive")
	}
	if c.Supervisor.RestartDelay < 0 {
		return fmt.Errorf("supervisor.restart_delay must not be negative")
	}
	if c.Storage.DBPath != "" {
		if c.Storage.Retention <= 0 {
			return fmt.Errorf("storage.retention must be positive")
		}
		if c.Storage.CleanupInterval <= 0 {
			return fmt.Errorf("storage.cleanup_interval must be positive")
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Telegram Token: %s\n", maskSecret(c.Telegram.Token)))
	sb.WriteString(fmt.Sprintf("  Telegram Handle: %s\n", c.Telegram.Handle))
	sb.WriteString(fmt.Sprintf("  Telegram Poll Timeout: %s\n", c.Telegram.PollTimeout))
	sb.WriteString(fmt.Sprintf("  Max Failures Per Minute: %d\n", c.Supervisor.MaxFailuresPerMinute))
	sb.WriteString(fmt.Sprintf("  Restart Delay: %s\n", c.Supervisor.RestartDelay))
	sb.WriteString(fmt.Sprintf("  Storage DB Path: %s\n", c.Storage.DBPath))
	sb.WriteString(fmt.Sprintf("  Storage Retention: %s\n", c.Storage.Retention))
	sb.WriteString(fmt.Sprintf("  Storage Cleanup Interval: %s\n", c.Storage.CleanupInterval))
	sb.WriteString(fmt.Sprintf("  Log Level: %s\n", c.Logging.Level))
	sb.WriteString(fmt.Sprintf("  Log Format: %s\n", c.Logging.Format))
	sb.WriteString(fmt.Sprintf("  Metrics Listen Addr: %s\n", c.Metrics.ListenAddr))
	return sb.String()
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
