// Package coreconfig loads the daemon configuration for a CoreRuntime: the
// schema and data search directories, worker pool sizing, and the
// operational-data/commit-release timeouts. Shaped on
// jra3-linear-fuse's internal/config (DefaultConfig + LoadWithEnv, yaml
// file with SYSREPO_* env overrides applied on top by LoadWithEnv),
// generalized from a single-file CLI config to the handful of settings
// this daemon's components take as constructor arguments. Field names
// follow configd.Config's own naming (Yangdir, Socket, ...) where a
// direct analogue exists.
package coreconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's on-disk configuration.
type Config struct {
	SchemaSearchDir string        `yaml:"schema_search_dir"`
	DataSearchDir   string        `yaml:"data_search_dir"`
	Socket          string        `yaml:"socket"`
	Workers         int           `yaml:"workers"`
	QueueDepth      int           `yaml:"queue_depth"`
	OperDataTimeout time.Duration `yaml:"oper_data_timeout"`
	CommitRelease   time.Duration `yaml:"commit_release_timeout"`
	Log             LogConfig     `yaml:"log"`
	Metrics         MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration a freshly installed daemon starts
// with, matching configd's own flag defaults (basepath "/run/configd",
// yangdir "/usr/share/configd/yang") renamed to this daemon's directories.
func Default() *Config {
	return &Config{
		SchemaSearchDir: "/usr/share/sysrepo-go/yang",
		DataSearchDir:   "/etc/sysrepo-go/data",
		Socket:          "/run/sysrepo-go/core.sock",
		Workers:         4,
		QueueDepth:      256,
		OperDataTimeout: 2 * time.Second,
		CommitRelease:   10 * time.Second,
		Log:             LogConfig{Level: "info"},
		Metrics:         MetricsConfig{Enabled: true, Addr: "127.0.0.1:9191"},
	}
}

// Load reads path (if it exists) over the defaults and applies
// environment overrides, the way LoadWithEnv in the linear-fuse config
// package tries a file then layers env on top; a missing file is not an
// error; an unparsable one is.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if v := getenv("SYSREPO_SCHEMA_DIR"); v != "" {
		cfg.SchemaSearchDir = v
	}
	if v := getenv("SYSREPO_DATA_DIR"); v != "" {
		cfg.DataSearchDir = v
	}
	if v := getenv("SYSREPO_SOCKET"); v != "" {
		cfg.Socket = v
	}
	if v := getenv("SYSREPO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, nil
}

// Validate reports a config that would make the daemon fail to start,
// standing in for cmd/sysrepo-cored's "check-config" subcommand.
func (c *Config) Validate() error {
	if c.SchemaSearchDir == "" {
		return fmt.Errorf("schema_search_dir must be set")
	}
	if c.DataSearchDir == "" {
		return fmt.Errorf("data_search_dir must be set")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.QueueDepth <= 0 {
		return fmt.Errorf("queue_depth must be positive, got %d", c.QueueDepth)
	}
	return nil
}
