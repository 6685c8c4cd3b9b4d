// Package config loads lspsync configuration from defaults, an optional
// TOML file, and LSPSYNC_-prefixed environment variables, in that order of
// precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ServerConfig describes one language server: how to start it and which
// language IDs it serves.
type ServerConfig struct {
	Command   string   `koanf:"command"`
	Args      []string `koanf:"args"`
	Languages []string `koanf:"languages"`
}

// Timeouts bounds the request classes that degrade to "no contribution"
// rather than failing.
type Timeouts struct {
	WillSave  time.Duration `koanf:"will_save"`
	FileOps   time.Duration `koanf:"file_ops"`
	Reconcile time.Duration `koanf:"reconcile"`
}

// Config is the full lspsync configuration.
type Config struct {
	LogLevel string `koanf:"log_level"`

	// Servers maps a server name to its launch configuration.
	Servers map[string]ServerConfig `koanf:"servers"`

	// Languages maps a file extension (without the dot) to a language ID,
	// overriding the extension-based default.
	Languages map[string]string `koanf:"languages"`

	Timeouts Timeouts `koanf:"timeouts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Timeouts: Timeouts{
			WillSave:  2 * time.Second,
			FileOps:   10 * time.Second,
			Reconcile: 10 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if
// given), then LSPSYNC_ environment variables. LSPSYNC_LOG_LEVEL=debug sets
// log_level; nested keys use double underscores.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "LSPSYNC_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "LSPSYNC_"))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// ServersForLanguage returns the names of configured servers serving lang.
func (c Config) ServersForLanguage(lang string) []string {
	var names []string
	for name, srv := range c.Servers {
		for _, l := range srv.Languages {
			if l == lang {
				names = append(names, name)
				break
			}
		}
	}
	return names
}
