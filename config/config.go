// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

// Package config holds the daemon configuration. Precedence, lowest to
// highest: built-in defaults, an optional YAML file, SHUTTLE_* environment
// variables, command-line flags (applied by the daemon after Load).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// ListenAddr restricts the bind interface; empty means all interfaces.
	ListenAddr string `yaml:"listen_addr"`
	Port       int    `yaml:"port"`

	// ServicesDir is scanned for process services at startup.
	ServicesDir string `yaml:"services_dir"`
	// DataDir holds per-invocation handoff files.
	DataDir string `yaml:"data_dir"`
	// WorkerCommand is the argv prefix for worker processes; the service
	// name, handoff paths, and callback port are appended per invocation.
	WorkerCommand []string `yaml:"worker_command"`
	// WorkerDir is the working directory for worker processes. Empty means
	// ServicesDir.
	WorkerDir string `yaml:"worker_dir"`

	// Server timeouts are generous: workers call external model APIs with
	// generation times measured in minutes.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// Stale handoff sweeping.
	HandoffMaxAge time.Duration `yaml:"handoff_max_age"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// DevLog switches zap to its development config.
	DevLog bool `yaml:"dev_log"`
}

func Default() Config {
	return Config{
		Port:          3000,
		ServicesDir:   "services",
		DataDir:       "tmp/data",
		WorkerCommand: []string{"python3", "entry.py"},
		ReadTimeout:   5 * time.Minute,
		IdleTimeout:   10 * time.Minute,
		HandoffMaxAge: 1 * time.Hour,
		SweepInterval: 10 * time.Minute,
	}
}

// Load builds the configuration from defaults, then the YAML file at path if
// path is non-empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config file %s", path)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHUTTLE_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("SHUTTLE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("SHUTTLE_SERVICES_DIR"); v != "" {
		c.ServicesDir = v
	}
	if v := os.Getenv("SHUTTLE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SHUTTLE_WORKER_COMMAND"); v != "" {
		c.WorkerCommand = strings.Fields(v)
	}
	if v := os.Getenv("SHUTTLE_WORKER_DIR"); v != "" {
		c.WorkerDir = v
	}
	if v := os.Getenv("SHUTTLE_DEV_LOG"); v == "true" {
		c.DevLog = true
	}
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Newf("invalid port %d", c.Port)
	}
	if len(c.WorkerCommand) == 0 {
		return errors.New("worker_command must not be empty")
	}
	if c.ServicesDir == "" {
		return errors.New("services_dir must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	return nil
}
