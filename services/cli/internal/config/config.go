// Package config loads viabctl settings from viabctl.yaml, VIABCTL_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/elofiber/viabilidade-ftth/internal/history"
)

// Config is the client configuration.
type Config struct {
	APIURL      string        `mapstructure:"api_url"`
	Token       string        `mapstructure:"token"`
	HistoryPath string        `mapstructure:"history_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Log         LogConfig     `mapstructure:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewViper returns a viper instance with the viabctl defaults, ready for
// flag bindings.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetConfigName("viabctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.viabctl")

	v.SetEnvPrefix("VIABCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", "http://localhost:3001")
	v.SetDefault("token", "")
	v.SetDefault("history_path", "")
	v.SetDefault("timeout", "45s")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	return v
}

// Load reads the optional config file (file overrides it when set) and
// decodes v.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.APIURL == "" {
		return nil, eris.New("config: api_url is required")
	}
	if cfg.Timeout <= 0 {
		return nil, eris.Errorf("config: invalid timeout %s", cfg.Timeout)
	}
	if cfg.HistoryPath == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		cfg.HistoryPath = p
	}
	return &cfg, nil
}
