package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "AMPLENOTE"

// DefaultDBPath is where the Amplenote desktop app keeps its cache.
const DefaultDBPath = "~/.config/ample-electron/amplenote.db"

const maxQueryLimit = 1000

type Config struct {
	DBPath             string        `mapstructure:"db_path"`
	DefaultSearchLimit int           `mapstructure:"default_search_limit"`
	DefaultListLimit   int           `mapstructure:"default_list_limit"`
	MaxQueryLimit      int           `mapstructure:"max_query_limit"`
	BusyTimeout        time.Duration `mapstructure:"busy_timeout"`
	LockTimeout        time.Duration `mapstructure:"lock_timeout"`
	LogLevel           string        `mapstructure:"log_level"`
	LogPretty          bool          `mapstructure:"log_pretty"`
	DevLogFile         string        `mapstructure:"dev_log_file"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("default_search_limit", 10)
	v.SetDefault("default_list_limit", 20)
	v.SetDefault("max_query_limit", maxQueryLimit)
	v.SetDefault("busy_timeout", 5*time.Second)
	v.SetDefault("lock_timeout", 2*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("dev_log_file", "")
}

// Load reads configuration from, in increasing precedence: defaults, the
// optional YAML file, and AMPLENOTE_* environment variables. A .env file in
// the working directory fills in variables that are not already set.
// configFile may be empty; AMPLENOTE_CONFIG is consulted then.
func Load(configFile string) (Config, error) {
	initEnvFile()

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv(envPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	path, err := expandHome(cfg.DBPath)
	if err != nil {
		return Config{}, err
	}
	cfg.DBPath = path
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.MaxQueryLimit < 1 || c.MaxQueryLimit > maxQueryLimit {
		return fmt.Errorf("max_query_limit must be between 1 and %d, got %d", maxQueryLimit, c.MaxQueryLimit)
	}
	if c.DefaultSearchLimit < 1 || c.DefaultSearchLimit > c.MaxQueryLimit {
		return fmt.Errorf("default_search_limit must be between 1 and %d, got %d", c.MaxQueryLimit, c.DefaultSearchLimit)
	}
	if c.DefaultListLimit < 1 || c.DefaultListLimit > c.MaxQueryLimit {
		return fmt.Errorf("default_list_limit must be between 1 and %d, got %d", c.MaxQueryLimit, c.DefaultListLimit)
	}
	if c.BusyTimeout < 0 || c.LockTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
