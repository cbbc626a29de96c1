package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides holds process-level overrides read from RLAB_* variables.
type EnvOverrides struct {
	ConfigPath string `env:"RLAB_CONFIG"`
	DBPath     string `env:"RLAB_DB_PATH"`
	StorePath  string `env:"RLAB_STORE_PATH"`
	AppName    string `env:"RLAB_APP_NAME"`
	DevMode    *bool  `env:"RLAB_DEV_MODE"`
	LogLevel   string `env:"RLAB_LOG_LEVEL"`
	HTTPBind   string `env:"RLAB_HTTP_BIND"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnvOverrides parses RLAB_* variables.
func LoadEnvOverrides() (EnvOverrides, error) {
	var out EnvOverrides
	if err := ParseEnv(&out); err != nil {
		return EnvOverrides{}, err
	}
	out.ConfigPath = strings.TrimSpace(out.ConfigPath)
	out.DBPath = strings.TrimSpace(out.DBPath)
	out.StorePath = strings.TrimSpace(out.StorePath)
	out.AppName = strings.TrimSpace(out.AppName)
	out.LogLevel = strings.TrimSpace(out.LogLevel)
	out.HTTPBind = strings.TrimSpace(out.HTTPBind)
	return out, nil
}

// Apply copies non-empty overrides that live in the config file onto cfg.
func (o EnvOverrides) Apply(cfg Config) Config {
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.HTTPBind != "" {
		cfg.Server.HTTPBind = o.HTTPBind
	}
	return cfg
}
