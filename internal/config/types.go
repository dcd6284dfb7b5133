// Package config defines the harness run configuration and its YAML loader.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full harness configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// ServerConfig describes the target executable.
type ServerConfig struct {
	// Command is the path to the MCP server executable under test.
	Command string `yaml:"command"`
	// Args are extra arguments passed to the executable.
	Args []string `yaml:"args,omitempty"`
	// GracePeriod is how long the freshly spawned server is given before
	// liveness is confirmed.
	GracePeriod Duration `yaml:"grace_period,omitempty"`
}

// AnalysisConfig carries the arguments of the scripted tool calls.
type AnalysisConfig struct {
	// BinaryPath is passed to start_analysis_session.
	BinaryPath string `yaml:"binary_path"`
	// Task is the analysis task passed to start_analysis_session.
	Task string `yaml:"task"`
	// Message is sent to the session by the send_message step.
	Message string `yaml:"message"`
}

// TimeoutConfig holds the per-step response deadlines.
type TimeoutConfig struct {
	Initialize   Duration `yaml:"initialize"`
	ListTools    Duration `yaml:"list_tools"`
	StartSession Duration `yaml:"start_session"`
	SendMessage  Duration `yaml:"send_message"`
	CloseSession Duration `yaml:"close_session"`
	// Shutdown bounds the wait for the server to exit after termination.
	Shutdown Duration `yaml:"shutdown"`
}
