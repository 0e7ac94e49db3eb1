// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"

	"starbridge.xyz/starbridge/internal/log"
)

// Config is the top-level static configuration. Maps to the `starbridge:`
// root key in YAML; env vars use the STARBRIDGE_ prefix
// (e.g. STARBRIDGE_LOG_LEVEL).
type Config struct {
	// Listen is the address clients connect to.
	Listen string `mapstructure:"listen" yaml:"listen"`
	// Upstream is the real game server, dialed once per client.
	Upstream string `mapstructure:"upstream" yaml:"upstream"`
	// MaxClients caps concurrent client connections; 0 means unlimited.
	MaxClients int    `mapstructure:"max_clients" yaml:"max_clients"`
	PIDFile    string `mapstructure:"pid_file" yaml:"pid_file"`

	Log     log.Config              `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig           `mapstructure:"metrics" yaml:"metrics"`
	Plugins map[string]PluginConfig `mapstructure:"plugins" yaml:"plugins,omitempty"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// PluginConfig is the per-handler configuration block. A nil Enabled means
// enabled.
type PluginConfig struct {
	Enabled *bool                  `mapstructure:"enabled" yaml:"enabled,omitempty"`
	Options map[string]interface{} `mapstructure:"options" yaml:"options,omitempty"`
}

// configRoot matches the YAML wrapper `starbridge: ...`.
type configRoot struct {
	Starbridge Config `mapstructure:"starbridge"`
}

// Load loads configuration from path with env-var overrides and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Key "starbridge.log.level" maps to env "STARBRIDGE_LOG_LEVEL".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Starbridge

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden, the
// same values setDefaults feeds viper.
func Default() *Config {
	return &Config{
		Listen:     "0.0.0.0:21025",
		Upstream:   "127.0.0.1:21024",
		MaxClients: 0,
		PIDFile:    "/var/run/starbridge.pid",
		Log: log.Config{
			Level: "info",
			Appenders: []log.AppenderConfig{
				{Type: "console"},
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9091",
			Path:    "/metrics",
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("starbridge.listen", "0.0.0.0:21025")
	v.SetDefault("starbridge.upstream", "127.0.0.1:21024")
	v.SetDefault("starbridge.max_clients", 0)
	v.SetDefault("starbridge.pid_file", "/var/run/starbridge.pid")

	v.SetDefault("starbridge.log.level", "info")

	v.SetDefault("starbridge.metrics.enabled", true)
	v.SetDefault("starbridge.metrics.listen", ":9091")
	v.SetDefault("starbridge.metrics.path", "/metrics")
}

// Validate checks the loaded configuration.
func (cfg *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "warning": true, "error": true,
	}
	if cfg.Log.Level != "" && !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}

	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.Listen, err)
	}
	if _, _, err := net.SplitHostPort(cfg.Upstream); err != nil {
		return fmt.Errorf("invalid upstream address %q: %w", cfg.Upstream, err)
	}
	if cfg.MaxClients < 0 {
		return fmt.Errorf("max_clients must not be negative")
	}

	for name, pc := range cfg.Plugins {
		if name == "" {
			return fmt.Errorf("plugin config with empty name")
		}
		_ = pc
	}
	return nil
}
