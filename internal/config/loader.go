package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration. The step deadlines mirror how
// long each stage of the target is allowed to take: session start is slow
// (it boots a full analysis environment), teardown is quick.
func Default() Config {
	return Config{
		Server: ServerConfig{
			GracePeriod: Duration(1 * time.Second),
		},
		Analysis: AnalysisConfig{
			Task:    "Confirm the session pipeline works end to end; no deep analysis required.",
			Message: "Do you still have the task from earlier in this session?",
		},
		Timeouts: TimeoutConfig{
			Initialize:   Duration(10 * time.Second),
			ListTools:    Duration(10 * time.Second),
			StartSession: Duration(300 * time.Second),
			SendMessage:  Duration(120 * time.Second),
			CloseSession: Duration(30 * time.Second),
			Shutdown:     Duration(5 * time.Second),
		},
	}
}

// Load layers a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := unmarshalStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// unmarshalStrict decodes YAML rejecting unknown fields, so a typo in a
// config key fails loudly instead of silently using a default.
func unmarshalStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that a loaded configuration can drive a run.
func (c Config) Validate() error {
	if c.Server.Command == "" {
		return fmt.Errorf("server.command is required")
	}
	if _, err := exec.LookPath(c.Server.Command); err != nil {
		return fmt.Errorf("server executable %s: %w", c.Server.Command, err)
	}
	for name, d := range map[string]Duration{
		"initialize":    c.Timeouts.Initialize,
		"list_tools":    c.Timeouts.ListTools,
		"start_session": c.Timeouts.StartSession,
		"send_message":  c.Timeouts.SendMessage,
		"close_session": c.Timeouts.CloseSession,
		"shutdown":      c.Timeouts.Shutdown,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive", name)
		}
	}
	return nil
}
