// Package config loads the CLI configuration from file, environment, and
// defaults, in that order of increasing precedence for env overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is everything the CLI needs to construct its clients.
type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Token             string        `mapstructure:"token"`
	TokenFile         string        `mapstructure:"token_file"`
	DefaultCollection string        `mapstructure:"default_collection"`
	DeltaPolicy       string        `mapstructure:"delta_policy"`  // incremental | cumulative
	SwitchPolicy      string        `mapstructure:"switch_policy"` // detach | cancel
	PageSize          int           `mapstructure:"page_size"`
	LogLevel          string        `mapstructure:"log_level"`
	SearchCacheSize   int           `mapstructure:"search_cache_size"`
	SearchRetries     int           `mapstructure:"search_retries"`
}

// Load reads agonx.yaml from the given path (or $HOME/.agonx and the
// working directory when empty), applies AGONX_* env overrides, and
// validates the result. A missing config file is fine; defaults apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigName("agonx")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("$HOME/.agonx")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("AGONX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", "http://localhost:8000/api/v1")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("delta_policy", "incremental")
	v.SetDefault("switch_policy", "detach")
	v.SetDefault("page_size", 20)
	v.SetDefault("log_level", "warn")
	v.SetDefault("search_cache_size", 256)
	v.SetDefault("search_retries", 2)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DeltaPolicy {
	case "incremental", "cumulative":
	default:
		return fmt.Errorf("invalid delta_policy %q (want incremental or cumulative)", c.DeltaPolicy)
	}
	switch c.SwitchPolicy {
	case "detach", "cancel":
	default:
		return fmt.Errorf("invalid switch_policy %q (want detach or cancel)", c.SwitchPolicy)
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.SearchRetries < 0 {
		return fmt.Errorf("search_retries must not be negative")
	}
	return nil
}
