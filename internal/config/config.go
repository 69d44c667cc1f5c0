package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file and default values.
const (
	EnvPlannerBin = "WFKIT_PLANNER_BIN"
	EnvDB         = "WFKIT_DB"
)

// Config holds configuration for the wfkit CLI and server.
type Config struct {
	Addr       string        `yaml:"addr"`        // listen address of the server (default ":8080")
	LogLevel   string        `yaml:"log_level"`   // debug, info, warn, error
	LogFormat  string        `yaml:"log_format"`  // text, json
	DBPath     string        `yaml:"db"`          // run registry path (":memory:" for testing)
	PlannerBin string        `yaml:"planner_bin"` // directory holding the planner tools; empty uses PATH
	PollDelay  time.Duration `yaml:"poll_delay"`  // status polling interval of wait
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		DBPath:    defaultDBPath(),
		PollDelay: 5 * time.Second,
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wfkit.db"
	}
	return filepath.Join(home, ".wfkit", "wfkit.db")
}

// Load returns the defaults, overlaid with the YAML file at path (when
// path is not empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPlannerBin); ok {
		c.PlannerBin = v
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.DBPath = v
	}
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db must not be empty"))
	}
	if c.PollDelay <= 0 {
		errs = append(errs, fmt.Errorf("poll_delay must be positive, got %s", c.PollDelay))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
