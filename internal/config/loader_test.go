package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultTimeouts(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10*time.Second, cfg.Timeouts.Initialize.Std())
	assert.Equal(t, 300*time.Second, cfg.Timeouts.StartSession.Std())
	assert.Equal(t, 120*time.Second, cfg.Timeouts.SendMessage.Std())
	assert.Equal(t, 30*time.Second, cfg.Timeouts.CloseSession.Std())
	assert.Equal(t, 1*time.Second, cfg.Server.GracePeriod.Std())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
analysis:
  binary_path: /tmp/sample.bin
  task: does the function start exist
timeouts:
  initialize: 2s
  start_session: 1m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sample.bin", cfg.Analysis.BinaryPath)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Initialize.Std())
	assert.Equal(t, time.Minute, cfg.Timeouts.StartSession.Std())
	// Untouched values keep their defaults.
	assert.Equal(t, 120*time.Second, cfg.Timeouts.SendMessage.Std())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
timeouts:
  initalize: 2s
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
timeouts:
  initialize: soon
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/harness.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "server")
	require.NoError(t, os.WriteFile(target, []byte("#!/bin/sh\n"), 0o755))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Server.Command = target },
		},
		{
			name:   "command resolved on PATH",
			mutate: func(c *Config) { c.Server.Command = "sh" },
		},
		{
			name:    "missing command",
			mutate:  func(c *Config) {},
			wantErr: "server.command is required",
		},
		{
			name:    "nonexistent command",
			mutate:  func(c *Config) { c.Server.Command = "/nope/server" },
			wantErr: "server executable",
		},
		{
			name: "non-positive timeout",
			mutate: func(c *Config) {
				c.Server.Command = target
				c.Timeouts.Initialize = 0
			},
			wantErr: "timeouts.initialize must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
