// Package config loads the client configuration from the user config file
// and the environment.
//
// Configuration lives at $XDG_CONFIG_HOME/hostctl/config.yaml and every
// key can be overridden through HOSTCTL_* environment variables
// (HOSTCTL_HOST, HOSTCTL_OUTPUT, and so on). Command-line flags override
// both. Priority: flag > environment > config file > default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config is the loaded client configuration.
type Config struct {
	// Host is the default target host used when --host is not given and no
	// session is marked default.
	Host string `mapstructure:"host"`
	// Output is the default output mode: human, json, yaml, or plain.
	Output string `mapstructure:"output"`
	// Insecure disables TLS certificate verification.
	Insecure bool `mapstructure:"insecure"`
	// SchemaURL overrides the actions-map location; empty uses the target
	// host's published schema.
	SchemaURL string `mapstructure:"schema_url"`
	// SchemaFile points at a local actions-map document, taking precedence
	// over any remote schema. Mainly for development.
	SchemaFile string `mapstructure:"schema_file"`
	// MinServerVersion is the oldest server version this client accepts.
	MinServerVersion string `mapstructure:"min_server_version"`
	// SessionStore selects where sessions are persisted: "file" (default)
	// or "keyring".
	SessionStore string `mapstructure:"session_store"`
}

// Path returns the user config file location.
func Path() string {
	return filepath.Join(xdg.ConfigHome, "hostctl", "config.yaml")
}

// Load reads the configuration. A missing config file is not an error; the
// returned Config then carries defaults plus environment overrides.
func Load() (*Config, error) {
	return load(Path())
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Every key needs a default so environment overrides reach Unmarshal.
	v.SetDefault("host", "")
	v.SetDefault("output", "human")
	v.SetDefault("insecure", false)
	v.SetDefault("schema_url", "")
	v.SetDefault("schema_file", "")
	v.SetDefault("min_server_version", "")
	v.SetDefault("session_store", "file")

	v.SetEnvPrefix("HOSTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
