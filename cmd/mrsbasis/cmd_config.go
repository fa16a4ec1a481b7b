package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spectra-tools/mrsbasis/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mrsbasis configuration",
		Long: `View and modify mrsbasis configuration settings.

Configuration is stored in ~/.mrsbasis/config.yaml.

Examples:
  mrsbasis config list                              # Show all settings
  mrsbasis config get tools.sim_path                # Get a specific setting
  mrsbasis config set tools.sim_path /opt/fsl/bin/fsl_mrs_sim
  mrsbasis config set vis.ppm_high 4.0`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration (~/.mrsbasis/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Tool Settings:")
			fmt.Fprintf(out, "  tools.sim_path:     %s\n", valueOrDefault(cfg.Tools.SimPath, "(PATH lookup)"))
			fmt.Fprintf(out, "  tools.vis_path:     %s\n", valueOrDefault(cfg.Tools.VisPath, "(PATH lookup)"))
			fmt.Fprintf(out, "  tools.allowed_dirs: %s\n", valueOrDefault(strings.Join(cfg.Tools.AllowedDirs, string(os.PathListSeparator)), "(unrestricted)"))
			fmt.Fprintf(out, "  tools.timeout:      %v\n", cfg.Tools.Timeout)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Simulation Defaults:")
			fmt.Fprintf(out, "  sim.echo_time:      %g\n", cfg.Sim.EchoTime)
			fmt.Fprintf(out, "  sim.phase_offset:   %g\n", cfg.Sim.PhaseOffset)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Visualisation Defaults:")
			fmt.Fprintf(out, "  vis.ppm_low:        %g\n", cfg.Vis.PPMLow)
			fmt.Fprintf(out, "  vis.ppm_high:       %g\n", cfg.Vis.PPMHigh)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  logging.level:      %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"error": "key not found",
						"key":   key,
					})
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unknown configuration key: %s\n", key)
				return nil
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				if jsonOut {
					json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"error": err.Error(),
						"key":   key,
					})
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Error: %v\n", err)
				return nil
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (any, bool) {
	switch key {
	case "tools.sim_path":
		return cfg.Tools.SimPath, true
	case "tools.vis_path":
		return cfg.Tools.VisPath, true
	case "tools.allowed_dirs":
		return strings.Join(cfg.Tools.AllowedDirs, string(os.PathListSeparator)), true
	case "tools.timeout":
		return cfg.Tools.Timeout.String(), true
	case "sim.echo_time":
		return cfg.Sim.EchoTime, true
	case "sim.phase_offset":
		return cfg.Sim.PhaseOffset, true
	case "vis.ppm_low":
		return cfg.Vis.PPMLow, true
	case "vis.ppm_high":
		return cfg.Vis.PPMHigh, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	parseFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number: %s", value)
		}
		return f, nil
	}

	switch key {
	case "tools.sim_path":
		cfg.Tools.SimPath = value
	case "tools.vis_path":
		cfg.Tools.VisPath = value
	case "tools.allowed_dirs":
		cfg.Tools.AllowedDirs = filepath.SplitList(value)
	case "tools.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Tools.Timeout = d
	case "sim.echo_time":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Sim.EchoTime = f
	case "sim.phase_offset":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Sim.PhaseOffset = f
	case "vis.ppm_low":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Vis.PPMLow = f
	case "vis.ppm_high":
		f, err := parseFloat()
		if err != nil {
			return err
		}
		cfg.Vis.PPMHigh = f
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// saveConfig writes the configuration to ~/.mrsbasis/config.yaml.
func saveConfig(cfg *config.Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	confDir := filepath.Join(homeDir, ".mrsbasis")
	if err := os.MkdirAll(confDir, 0700); err != nil {
		return fmt.Errorf("failed to create .mrsbasis directory: %w", err)
	}

	configPath := filepath.Join(confDir, "config.yaml")
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
