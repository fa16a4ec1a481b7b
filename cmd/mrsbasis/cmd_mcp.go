package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spectra-tools/mrsbasis/internal/config"
	"github.com/spectra-tools/mrsbasis/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Start MCP server for agent integration",
		Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows AI agents to drive basis simulation and inspect run history
through a structured tool interface:
  - basis_simulate: run a basis-set simulation for a pulse sequence
  - basis_info: inspect the contents of a saved basis set
  - basis_runs: list recorded simulation and visualisation runs

The server communicates over stdin/stdout and runs until the client
disconnects or the process receives an interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "mrsbasis",
				Version: version,
				Root:    root,
				App:     cfg,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return srv.Run(cmd.Context())
		},
	}
}
