// Package config loads runtime configuration from a config file and the
// environment. Environment variables use the SITEWATCH_ prefix and
// override file values; a local .env file is honored when present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rofanlabs/sitewatch/internal/extract"
)

// Config is the full runtime configuration.
type Config struct {
	// APIBaseURL is the reporting API endpoint.
	APIBaseURL string `mapstructure:"api_base_url"`
	// APIToken is the bearer token for the reporting API.
	APIToken string `mapstructure:"api_token"`

	// Interval is the pause between poll cycles.
	Interval time.Duration `mapstructure:"interval"`
	// MaxWorkers caps concurrent site checks within a cycle.
	MaxWorkers int `mapstructure:"max_workers"`

	// FetchTimeout bounds a single page download.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// UserAgent overrides the fetch user agent when set.
	UserAgent string `mapstructure:"user_agent"`
	// SessionFile points at a JSON cookie file for boards behind auth.
	SessionFile string `mapstructure:"session_file"`

	// PidFile guards against concurrent instances.
	PidFile string `mapstructure:"pid_file"`
	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string `mapstructure:"metrics_addr"`
	// Development switches to the human-readable log encoder.
	Development bool `mapstructure:"development"`

	// Rules overrides the extraction filtering lists. Empty lists fall
	// back to the built-in defaults.
	Rules extract.RulesConfig `mapstructure:"rules"`
}

// Load reads configuration. An explicit path is required to exist; with
// no path, a sitewatch.yaml in the working directory is optional.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("interval", 2*time.Second)
	v.SetDefault("max_workers", 10)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("pid_file", "sitewatch.pid")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("development", false)

	v.SetEnvPrefix("SITEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("sitewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// AutomaticEnv alone does not surface unset keys through Unmarshal;
	// bind the ones that commonly come from the environment.
	for _, key := range []string{"api_base_url", "api_token", "session_file", "user_agent"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyRuleDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the service cannot run without.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if c.APIToken == "" {
		return errors.New("api_token is required")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.MaxWorkers <= 0 {
		return errors.New("max_workers must be positive")
	}
	return nil
}

// applyRuleDefaults fills unset rule lists from the built-in defaults so a
// config file can override one list without restating the others.
func (c *Config) applyRuleDefaults() {
	defaults := extract.DefaultRulesConfig()
	if len(c.Rules.ExcludedKeywords) == 0 {
		c.Rules.ExcludedKeywords = defaults.ExcludedKeywords
	}
	if len(c.Rules.ExcludedNamePatterns) == 0 {
		c.Rules.ExcludedNamePatterns = defaults.ExcludedNamePatterns
	}
	if len(c.Rules.NameAliases) == 0 {
		c.Rules.NameAliases = defaults.NameAliases
	}
	if len(c.Rules.StripPrefixes) == 0 {
		c.Rules.StripPrefixes = defaults.StripPrefixes
	}
	if len(c.Rules.TitleDenyNames) == 0 {
		c.Rules.TitleDenyNames = defaults.TitleDenyNames
	}
}
