// Copyright (C) Shuttlecraft, Inc.
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "services", cfg.ServicesDir)
	assert.Equal(t, "tmp/data", cfg.DataDir)
	assert.Equal(t, []string{"python3", "entry.py"}, cfg.WorkerCommand)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shuttle.yaml")
	contents := `
port: 8080
services_dir: /srv/services
worker_command: ["python3", "-u", "entry.py"]
dev_log: true
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/srv/services", cfg.ServicesDir)
	assert.Equal(t, []string{"python3", "-u", "entry.py"}, cfg.WorkerCommand)
	assert.True(t, cfg.DevLog)
	// Untouched keys keep their defaults.
	assert.Equal(t, "tmp/data", cfg.DataDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shuttle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\n"), 0o644))

	t.Setenv("SHUTTLE_PORT", "9090")
	t.Setenv("SHUTTLE_WORKER_COMMAND", "node worker.js")
	t.Setenv("SHUTTLE_DATA_DIR", "/var/lib/shuttle")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"node", "worker.js"}, cfg.WorkerCommand)
	assert.Equal(t, "/var/lib/shuttle", cfg.DataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"empty worker command", func(c *Config) { c.WorkerCommand = nil }},
		{"empty services dir", func(c *Config) { c.ServicesDir = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
