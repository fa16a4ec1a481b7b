// Package config provides unified configuration loading for mrsbasis.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all mrsbasis configuration settings.
type Config struct {
	// Tools contains settings for locating the external binaries.
	Tools ToolsConfig `json:"tools" yaml:"tools"`

	// Sim contains defaults applied to simulation runs.
	Sim SimConfig `json:"sim" yaml:"sim"`

	// Vis contains defaults applied to visualisation runs.
	Vis VisConfig `json:"vis" yaml:"vis"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ToolsConfig configures discovery of the external simulator and
// visualiser binaries.
type ToolsConfig struct {
	// SimPath overrides PATH lookup for the simulator. Supports ${VAR}
	// syntax for env vars.
	SimPath string `json:"sim_path,omitempty" yaml:"sim_path,omitempty"`

	// VisPath overrides PATH lookup for the visualiser.
	VisPath string `json:"vis_path,omitempty" yaml:"vis_path,omitempty"`

	// AllowedDirs restricts which directories tool binaries may resolve
	// into. Empty means no restriction.
	AllowedDirs []string `json:"allowed_dirs,omitempty" yaml:"allowed_dirs,omitempty"`

	// Timeout is the maximum duration to wait for a tool invocation.
	// Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// SimConfig carries simulation defaults that flags can override.
type SimConfig struct {
	// EchoTime is the default echo time in ms.
	EchoTime float64 `json:"echo_time" yaml:"echo_time"`

	// PhaseOffset is the default zero-order receiver phase in degrees.
	PhaseOffset float64 `json:"phase_offset" yaml:"phase_offset"`
}

// VisConfig carries visualisation defaults that flags can override.
type VisConfig struct {
	// PPMLow and PPMHigh bound the plotted chemical-shift range.
	PPMLow  float64 `json:"ppm_low" yaml:"ppm_low"`
	PPMHigh float64 `json:"ppm_high" yaml:"ppm_high"`
}

// LoggingConfig configures mrsbasis's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "trace" additionally records tool invocations to
	// .mrsbasis/invocations.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults. The ppm window
// matches the standard in-vivo metabolite region.
func Default() *Config {
	return &Config{
		Tools: ToolsConfig{
			Timeout: 10 * time.Minute,
		},
		Sim: SimConfig{
			EchoTime:    0,
			PhaseOffset: 0,
		},
		Vis: VisConfig{
			PPMLow:  0.2,
			PPMHigh: 4.2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.mrsbasis/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".mrsbasis", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in tool paths
	config.Tools.SimPath = expandEnvVars(config.Tools.SimPath)
	config.Tools.VisPath = expandEnvVars(config.Tools.VisPath)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Tools.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Tools.Timeout)
	}

	if c.Sim.EchoTime < 0 {
		return fmt.Errorf("echo_time must be non-negative, got %f", c.Sim.EchoTime)
	}

	if c.Vis.PPMLow >= c.Vis.PPMHigh {
		return fmt.Errorf("ppm_low must be below ppm_high, got [%f, %f]", c.Vis.PPMLow, c.Vis.PPMHigh)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("MRSBASIS_SIM_PATH"); v != "" {
		config.Tools.SimPath = v
	}

	if v := os.Getenv("MRSBASIS_VIS_PATH"); v != "" {
		config.Tools.VisPath = v
	}

	if v := os.Getenv("MRSBASIS_ALLOWED_DIRS"); v != "" {
		config.Tools.AllowedDirs = filepath.SplitList(v)
	}

	if v := os.Getenv("MRSBASIS_TOOL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Tools.Timeout = d
		}
	}

	if v := os.Getenv("MRSBASIS_ECHO_TIME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Sim.EchoTime = f
		}
	}

	if v := os.Getenv("MRSBASIS_PHASE_OFFSET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Sim.PhaseOffset = f
		}
	}

	if v := os.Getenv("MRSBASIS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
